package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/swaggest/swgui/v5emb"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ResetResponse acknowledges a reset.
type ResetResponse struct {
	Status string `json:"status"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "The World Unscripted API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the turn-based geopolitical simulation.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/games
	postGames, _ := r.NewOperationContext(http.MethodPost, "/api/games")
	postGames.SetSummary("Create game")
	postGames.SetDescription("Creates a new game. The same seed always produces the same initial world.")
	postGames.AddReqStructure(CreateGameRequest{})
	postGames.AddRespStructure(geosim.GameSnapshot{}, openapi.WithHTTPStatus(http.StatusCreated))
	postGames.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postGames)

	// GET /api/games/latest
	getLatest, _ := r.NewOperationContext(http.MethodGet, "/api/games/latest")
	getLatest.SetSummary("Get latest snapshot")
	getLatest.SetDescription("Returns the most recently touched game's snapshot, or null when no games exist.")
	getLatest.AddRespStructure(geosim.GameSnapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getLatest)

	// GET /api/games/{gameID}
	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}")
	getGame.SetSummary("Get snapshot")
	getGame.SetDescription("Returns the player-visible snapshot for a game.")
	getGame.AddRespStructure(geosim.GameSnapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getGame)

	// POST /api/games/{gameID}/turn
	postTurn, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/turn")
	postTurn.SetSummary("Submit turn")
	postTurn.SetDescription("Resolves one turn deterministically and kicks off background enrichment.")
	postTurn.AddReqStructure(TurnRequest{})
	postTurn.AddRespStructure(geosim.TurnOutcome{}, openapi.WithHTTPStatus(http.StatusOK))
	postTurn.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postTurn.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postTurn.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postTurn)

	// GET /api/games/{gameID}/reports/{turn}
	getReport, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/reports/{turn}")
	getReport.SetSummary("Get resolution report")
	getReport.SetDescription("Returns the resolution report for a turn, possibly still pending. " +
		"Concurrent requests for the same turn share a single enrichment computation.")
	getReport.AddRespStructure(geosim.ResolutionReport{}, openapi.WithHTTPStatus(http.StatusOK))
	getReport.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getReport.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getReport)

	// POST /api/games/{gameID}/diplomacy/{nationID}
	postChat, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/diplomacy/{nationID}")
	postChat.SetSummary("Diplomacy chat")
	postChat.SetDescription("Sends a message to a nation's foreign minister and applies any trust or headline side effects.")
	postChat.AddReqStructure(DiplomacyRequest{})
	postChat.AddRespStructure(DiplomacyResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postChat.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postChat.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	postChat.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(postChat)

	// POST /api/reset
	postReset, _ := r.NewOperationContext(http.MethodPost, "/api/reset")
	postReset.SetSummary("Reset")
	postReset.SetDescription("Deletes all game records.")
	postReset.AddRespStructure(ResetResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postReset)

	// GET /api/games/{gameID}/debug/state
	getDebug, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/debug/state")
	getDebug.SetSummary("Export true world state")
	getDebug.SetDescription("Diagnostic export of the authoritative world state. Forbidden unless enabled.")
	getDebug.AddRespStructure(geosim.WorldState{}, openapi.WithHTTPStatus(http.StatusOK))
	getDebug.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	getDebug.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getDebug)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(spec)
	}
}

func handleSwaggerUI() http.HandlerFunc {
	h := v5emb.New("The World Unscripted API", "/openapi.json", "/docs")
	return h.ServeHTTP
}
