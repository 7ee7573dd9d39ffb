package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/J0YY/the-world-unscripted-sub001/internal/database"
	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
	"github.com/J0YY/the-world-unscripted-sub001/internal/migrations"
	"github.com/J0YY/the-world-unscripted-sub001/internal/narrative"
)

// scriptedNarrative is a deterministic stand-in for the collaborator.
type scriptedNarrative struct {
	mu          sync.Mutex
	chats       int
	trustChange int
	headlines   string // prefix; empty means no headline side effect
	converseErr error
	enrichErr   error
	enrichGate  chan struct{} // when set, EnrichTurn blocks until closed
}

func (s *scriptedNarrative) EnrichTurn(ctx context.Context, tc narrative.TurnContext) (*narrative.TurnReport, error) {
	s.mu.Lock()
	gate := s.enrichGate
	enrichErr := s.enrichErr
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if enrichErr != nil {
		return nil, enrichErr
	}

	reads := make([]geosim.PerceptionRead, 0, len(tc.Actors))
	for _, a := range tc.Actors {
		reads = append(reads, geosim.PerceptionRead{ActorID: a.ID, Read: "watching closely"})
	}
	return &narrative.TurnReport{
		Headlines:          []string{"Capital reacts to the directive", "Ministries scramble"},
		Narrative:          []string{"The week unfolded quietly.", "Observers remain divided."},
		PerceptionReads:    reads,
		RecommendedMoves:   []string{"Consolidate support", "Probe the border"},
		IntelBriefs:        []string{"Garrison rotations accelerated.", "A courier was intercepted."},
		Rumors:             []string{"The finance minister may resign."},
		DiplomaticMessages: []string{"Halvern requests clarification."},
		IncomingEvents:     []string{"A summit invitation arrives."},
	}, nil
}

func (s *scriptedNarrative) Converse(ctx context.Context, cc narrative.ChatContext) (*narrative.ChatReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.converseErr != nil {
		return nil, s.converseErr
	}
	s.chats++
	headline := ""
	if s.headlines != "" {
		headline = fmt.Sprintf("%s %d", s.headlines, s.chats)
	}
	return &narrative.ChatReply{
		Reply:       "Noted. We will consider it.",
		TrustChange: s.trustChange,
		Headline:    headline,
	}, nil
}

func testRouter(t *testing.T, scripted *scriptedNarrative) (*chi.Mux, *SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	store := NewSQLiteStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	addRoutes(r, logger, Deps{
		Store:            store,
		Narrative:        scripted,
		NarrativeEnabled: true,
		DebugExport:      false,
		DB:               db,
	})
	return r, store
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createGame(t *testing.T, r http.Handler, seed string) *geosim.GameSnapshot {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/games", CreateGameRequest{Seed: seed})
	if w.Code != http.StatusCreated {
		t.Fatalf("create game: status %d: %s", w.Code, w.Body.String())
	}
	var snap geosim.GameSnapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return &snap
}

func TestCreateGameSeedReproducible(t *testing.T) {
	r, _ := testRouter(t, &scriptedNarrative{})

	a := createGame(t, r, "alpha")
	b := createGame(t, r, "alpha")

	a.GameID, b.GameID = "", ""
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed produced different initial snapshots")
	}
}

func TestGetSnapshotNotFound(t *testing.T) {
	r, _ := testRouter(t, &scriptedNarrative{})

	w := doJSON(t, r, http.MethodGet, "/api/games/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error == "" {
		t.Fatal("error body missing")
	}
}

func TestSubmitTurn(t *testing.T) {
	scripted := &scriptedNarrative{enrichGate: make(chan struct{})} // hold enrichment back
	r, _ := testRouter(t, scripted)

	snap := createGame(t, r, "alpha")

	w := doJSON(t, r, http.MethodPost, "/api/games/"+snap.GameID+"/turn",
		TurnRequest{Directive: "Open backchannel with Nation X"})
	if w.Code != http.StatusOK {
		t.Fatalf("submit turn: status %d: %s", w.Code, w.Body.String())
	}

	var outcome geosim.TurnOutcome
	if err := json.NewDecoder(w.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.TurnResolved != 1 {
		t.Errorf("turnResolved = %d, want 1", outcome.TurnResolved)
	}
	if outcome.NextSnapshot == nil || outcome.NextSnapshot.Turn != 2 {
		t.Fatalf("nextSnapshot.turn = %v, want 2", outcome.NextSnapshot)
	}

	// Snapshot reads are idempotent while enrichment is held back.
	first := doJSON(t, r, http.MethodGet, "/api/games/"+snap.GameID, nil)
	second := doJSON(t, r, http.MethodGet, "/api/games/"+snap.GameID, nil)
	if first.Body.String() != second.Body.String() {
		t.Fatal("snapshot reads without intervening mutation differ")
	}
}

func TestSubmitTurnMissingGame(t *testing.T) {
	r, _ := testRouter(t, &scriptedNarrative{})

	w := doJSON(t, r, http.MethodPost, "/api/games/ghost/turn", TurnRequest{Directive: "anything"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSubmitTurnTerminalGameRejected(t *testing.T) {
	scripted := &scriptedNarrative{enrichGate: make(chan struct{})}
	r, store := testRouter(t, scripted)
	snap := createGame(t, r, "alpha")

	ctx := context.Background()
	world, err := store.GetWorld(ctx, snap.GameID)
	if err != nil {
		t.Fatal(err)
	}
	world.Indicators.Stability = 1
	world.Indicators.Legitimacy = 1
	if err := store.SaveGame(ctx, world, snap); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/games/"+snap.GameID+"/turn", TurnRequest{Directive: "hold"})
	if w.Code != http.StatusOK {
		t.Fatalf("terminal turn: status %d", w.Code)
	}
	var outcome geosim.TurnOutcome
	json.NewDecoder(w.Body).Decode(&outcome)
	if outcome.Failure == nil {
		t.Fatal("expected terminal failure")
	}

	w = doJSON(t, r, http.MethodPost, "/api/games/"+snap.GameID+"/turn", TurnRequest{Directive: "hold"})
	if w.Code != http.StatusConflict {
		t.Fatalf("turn after failure: status %d, want 409", w.Code)
	}
}

func TestDiplomacyTrustAndMirror(t *testing.T) {
	scripted := &scriptedNarrative{trustChange: -5}
	r, store := testRouter(t, scripted)
	snap := createGame(t, r, "alpha")

	nationID := snap.Diplomacy.Nations[0].ID

	// Pin the starting trust so the arithmetic is visible.
	ctx := context.Background()
	world, err := store.GetWorld(ctx, snap.GameID)
	if err != nil {
		t.Fatal(err)
	}
	world.ActorByID(nationID).Trust = 60
	if err := store.SaveGame(ctx, world, geosim.Project(world, snap)); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, http.MethodPost,
		"/api/games/"+snap.GameID+"/diplomacy/"+nationID,
		DiplomacyRequest{Message: "We propose a grain corridor."})
	if w.Code != http.StatusOK {
		t.Fatalf("diplomacy: status %d: %s", w.Code, w.Body.String())
	}

	var resp DiplomacyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Reply == "" {
		t.Fatal("empty reply")
	}
	if len(resp.ChatHistory) != 2 {
		t.Fatalf("chat history length = %d, want 2 (user + minister)", len(resp.ChatHistory))
	}
	if resp.ChatHistory[0].Role != geosim.RoleUser || resp.ChatHistory[1].Role != geosim.RoleMinister {
		t.Fatalf("chat roles wrong: %+v", resp.ChatHistory)
	}

	world, err = store.GetWorld(ctx, snap.GameID)
	if err != nil {
		t.Fatal(err)
	}
	if got := world.ActorByID(nationID).Trust; got != 55 {
		t.Errorf("world trust = %d, want 55", got)
	}

	after, err := store.GetSnapshot(ctx, snap.GameID)
	if err != nil {
		t.Fatal(err)
	}
	if got := after.Diplomacy.Nation(nationID).Stance; got != 55 {
		t.Errorf("snapshot stance = %d, want 55 (must mirror trust)", got)
	}
}

func TestDiplomacyHeadlineRing(t *testing.T) {
	scripted := &scriptedNarrative{headlines: "crisis"}
	r, store := testRouter(t, scripted)
	snap := createGame(t, r, "alpha")
	nationID := snap.Diplomacy.Nations[0].ID

	for i := 0; i < 7; i++ {
		w := doJSON(t, r, http.MethodPost,
			"/api/games/"+snap.GameID+"/diplomacy/"+nationID,
			DiplomacyRequest{Message: "status?"})
		if w.Code != http.StatusOK {
			t.Fatalf("chat %d: status %d", i, w.Code)
		}
	}

	after, err := store.GetSnapshot(context.Background(), snap.GameID)
	if err != nil {
		t.Fatal(err)
	}
	headlines := after.PlayerView.Briefing.Headlines
	if len(headlines) != geosim.HeadlineCapacity {
		t.Fatalf("headline count = %d, want %d", len(headlines), geosim.HeadlineCapacity)
	}
	for i, want := range []string{"crisis 7", "crisis 6", "crisis 5", "crisis 4", "crisis 3", "crisis 2"} {
		if headlines[i] != want {
			t.Errorf("headlines[%d] = %q, want %q", i, headlines[i], want)
		}
	}
}

func TestDiplomacyNoopDoesNotRewriteWorld(t *testing.T) {
	scripted := &scriptedNarrative{} // no trust change, no headline
	r, store := testRouter(t, scripted)
	snap := createGame(t, r, "alpha")
	nationID := snap.Diplomacy.Nations[0].ID

	ctx := context.Background()
	before, err := store.GetWorld(ctx, snap.GameID)
	if err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, http.MethodPost,
		"/api/games/"+snap.GameID+"/diplomacy/"+nationID,
		DiplomacyRequest{Message: "weather report?"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	after, err := store.GetWorld(ctx, snap.GameID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatal("no-op interaction rewrote world state")
	}

	// The chat itself still landed in the snapshot.
	s, _ := store.GetSnapshot(ctx, snap.GameID)
	if len(s.Diplomacy.Nation(nationID).ChatHistory) != 2 {
		t.Fatal("chat history not persisted")
	}
}

func TestDiplomacyNotInitialized(t *testing.T) {
	r, store := testRouter(t, &scriptedNarrative{})
	snap := createGame(t, r, "alpha")

	// Simulate a record created before diplomacy existed.
	ctx := context.Background()
	snap.Diplomacy = nil
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, r, http.MethodPost,
		"/api/games/"+snap.GameID+"/diplomacy/DRF",
		DiplomacyRequest{Message: "hello"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestDiplomacyNationNotFound(t *testing.T) {
	r, _ := testRouter(t, &scriptedNarrative{})
	snap := createGame(t, r, "alpha")

	w := doJSON(t, r, http.MethodPost,
		"/api/games/"+snap.GameID+"/diplomacy/ZZZ",
		DiplomacyRequest{Message: "hello"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDiplomacyCollaboratorOffline(t *testing.T) {
	scripted := &scriptedNarrative{converseErr: narrative.ErrUnavailable}
	r, _ := testRouter(t, scripted)
	snap := createGame(t, r, "alpha")
	nationID := snap.Diplomacy.Nations[0].ID

	w := doJSON(t, r, http.MethodPost,
		"/api/games/"+snap.GameID+"/diplomacy/"+nationID,
		DiplomacyRequest{Message: "hello"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestReportPendingThenComplete(t *testing.T) {
	gate := make(chan struct{})
	scripted := &scriptedNarrative{enrichGate: gate}
	r, store := testRouter(t, scripted)
	snap := createGame(t, r, "alpha")

	doJSON(t, r, http.MethodPost, "/api/games/"+snap.GameID+"/turn", TurnRequest{Directive: "trade push"})

	w := doJSON(t, r, http.MethodGet, "/api/games/"+snap.GameID+"/reports/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("report: status %d", w.Code)
	}
	var pending geosim.ResolutionReport
	json.NewDecoder(w.Body).Decode(&pending)
	if !pending.Pending {
		t.Fatal("report should be pending before enrichment lands")
	}
	if pending.LLM != nil {
		t.Fatal("pending report must not carry enrichment")
	}
	if pending.TurnNumber != 1 || pending.Directive != "trade push" {
		t.Fatalf("pending report shape wrong: %+v", pending)
	}

	close(gate)

	// Enrichment runs in the background; wait for it to land.
	deadline := time.Now().Add(2 * time.Second)
	var complete *geosim.ResolutionReport
	for time.Now().Before(deadline) {
		got, err := store.GetReport(context.Background(), snap.GameID, 1)
		if err == nil && !got.Pending {
			complete = got
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if complete == nil {
		t.Fatal("enrichment never completed")
	}
	if complete.LLM == nil || complete.LLM.Headline == "" {
		t.Fatalf("completed report missing narrative: %+v", complete)
	}

	// Hydration landed on the snapshot in the same update.
	after, err := store.GetSnapshot(context.Background(), snap.GameID)
	if err != nil {
		t.Fatal(err)
	}
	b := after.PlayerView.Briefing
	if len(b.Headlines) < 2 || len(b.IntelBriefs) < 2 || len(b.Rumors) < 1 ||
		len(b.DiplomaticMessages) < 1 || len(after.PlayerView.IncomingEvents) < 1 {
		t.Fatalf("briefing not hydrated: %+v", b)
	}
}

func TestReportWaitFoldsIntoCompletion(t *testing.T) {
	scripted := &scriptedNarrative{}
	r, _ := testRouter(t, scripted)
	snap := createGame(t, r, "alpha")

	doJSON(t, r, http.MethodPost, "/api/games/"+snap.GameID+"/turn", TurnRequest{Directive: "hold"})

	w := doJSON(t, r, http.MethodGet, "/api/games/"+snap.GameID+"/reports/1?waitMs=5000", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("report: status %d", w.Code)
	}
	var report geosim.ResolutionReport
	json.NewDecoder(w.Body).Decode(&report)
	if report.Pending {
		t.Fatal("synchronous wait should have returned the completed report")
	}
	if report.LLM == nil {
		t.Fatal("completed report missing narrative")
	}
}

func TestReportFailureIsVisibleAndRetryable(t *testing.T) {
	scripted := &scriptedNarrative{enrichErr: fmt.Errorf("model quota exhausted")}
	r, _ := testRouter(t, scripted)
	snap := createGame(t, r, "alpha")

	doJSON(t, r, http.MethodPost, "/api/games/"+snap.GameID+"/turn", TurnRequest{Directive: "hold"})

	w := doJSON(t, r, http.MethodGet, "/api/games/"+snap.GameID+"/reports/1?waitMs=3000", nil)
	var failed geosim.ResolutionReport
	json.NewDecoder(w.Body).Decode(&failed)
	if failed.Pending {
		t.Fatal("failed enrichment should not present as pending")
	}
	if !strings.Contains(failed.Error, "quota") {
		t.Fatalf("failure not surfaced: %+v", failed)
	}

	// The failure was not cached: fixing the collaborator lets a
	// retry succeed.
	scripted.mu.Lock()
	scripted.enrichErr = nil
	scripted.mu.Unlock()

	w = doJSON(t, r, http.MethodGet, "/api/games/"+snap.GameID+"/reports/1?waitMs=5000", nil)
	var retried geosim.ResolutionReport
	json.NewDecoder(w.Body).Decode(&retried)
	if retried.Pending || retried.LLM == nil {
		t.Fatalf("retry after failure did not complete: %+v", retried)
	}
}

func TestReportNotFound(t *testing.T) {
	r, _ := testRouter(t, &scriptedNarrative{})
	snap := createGame(t, r, "alpha")

	w := doJSON(t, r, http.MethodGet, "/api/games/"+snap.GameID+"/reports/9", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestLatestAndReset(t *testing.T) {
	r, _ := testRouter(t, &scriptedNarrative{})

	w := doJSON(t, r, http.MethodGet, "/api/games/latest", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "null" {
		t.Fatalf("empty latest = %d %q, want 200 null", w.Code, w.Body.String())
	}

	snap := createGame(t, r, "alpha")

	w = doJSON(t, r, http.MethodGet, "/api/games/latest", nil)
	var latest geosim.GameSnapshot
	json.NewDecoder(w.Body).Decode(&latest)
	if latest.GameID != snap.GameID {
		t.Fatalf("latest = %q, want %q", latest.GameID, snap.GameID)
	}

	w = doJSON(t, r, http.MethodPost, "/api/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset: status %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/games/latest", nil)
	if strings.TrimSpace(w.Body.String()) != "null" {
		t.Fatalf("latest after reset = %q, want null", w.Body.String())
	}
}

func TestDebugStateForbiddenByDefault(t *testing.T) {
	r, _ := testRouter(t, &scriptedNarrative{})
	snap := createGame(t, r, "alpha")

	w := doJSON(t, r, http.MethodGet, "/api/games/"+snap.GameID+"/debug/state", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
