package server

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
	"github.com/J0YY/the-world-unscripted-sub001/internal/narrative"
)

// enrichTimeout bounds one background enrichment computation. It is
// deliberately longer than the interactive wait budget: a caller that
// stops waiting leaves the computation running, and partial progress
// is still useful to later pollers.
const enrichTimeout = 30 * time.Second

// enricher runs the post-resolution enrichment pipeline: call the
// collaborator, then hydrate the briefing and complete the stored
// report in one logical update under the game's write lock.
type enricher struct {
	store     Store
	narrative narrative.Client
	coord     *Coordinator
	locks     *gameLocks
	logger    *slog.Logger
}

// join starts or joins the enrichment computation for one key.
func (e *enricher) join(gameID string, turn int, force bool) <-chan EnrichResult {
	return e.coord.Join(CoordKey(gameID, turn, force), func() (*geosim.ResolutionReport, error) {
		return e.compute(gameID, turn, force)
	})
}

// kick starts enrichment in the background and logs the outcome. Used
// after turn resolution so the resolver never awaits the collaborator.
func (e *enricher) kick(gameID string, turn int) {
	ch := e.join(gameID, turn, false)
	go func() {
		res := <-ch
		if res.Err != nil {
			e.logger.Warn("background enrichment failed",
				"game_id", gameID, "turn", turn, "error", res.Err)
		}
	}()
}

func (e *enricher) compute(gameID string, turn int, force bool) (*geosim.ResolutionReport, error) {
	// Detached from any request context: the computation outlives the
	// caller that started it.
	ctx, cancel := context.WithTimeout(context.Background(), enrichTimeout)
	defer cancel()

	base, err := e.store.GetReport(ctx, gameID, turn)
	if err != nil {
		return nil, fmt.Errorf("loading report %s/%d: %w", gameID, turn, err)
	}
	if !base.Pending && !force {
		return base, nil
	}

	w, err := e.store.GetWorld(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("loading world %s: %w", gameID, err)
	}

	generated, err := e.narrative.EnrichTurn(ctx, turnContext(w, base))
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(gameID)
	defer unlock()

	// Reload under the lock: diplomacy interactions may have landed
	// while the collaborator was thinking.
	w, err = e.store.GetWorld(ctx, gameID)
	if err != nil {
		return nil, err
	}
	snap, err := e.store.GetSnapshot(ctx, gameID)
	if err != nil {
		return nil, err
	}

	hydrate(w, generated)
	snap = geosim.Project(w, snap)
	if err := e.store.SaveGame(ctx, w, snap); err != nil {
		return nil, fmt.Errorf("saving hydrated game: %w", err)
	}

	complete := *base
	complete.Pending = false
	complete.Error = ""
	complete.LLM = &geosim.NarrativeReport{
		Headline:         generated.Lead(),
		Narrative:        generated.Narrative,
		PerceptionReads:  generated.PerceptionReads,
		RecommendedMoves: generated.RecommendedMoves,
	}
	if err := e.store.SaveReport(ctx, gameID, &complete); err != nil {
		return nil, fmt.Errorf("saving completed report: %w", err)
	}
	return &complete, nil
}

// hydrate applies generated content to the world's briefing. Headlines
// are pushed lead-last so the lead ends up newest-first in the ring.
func hydrate(w *geosim.WorldState, generated *narrative.TurnReport) {
	if w.Current.Briefing == nil {
		w.Current.Briefing = geosim.NewBriefing()
	}
	b := w.Current.Briefing
	for i := len(generated.Headlines) - 1; i >= 0; i-- {
		b.PushHeadline(generated.Headlines[i])
	}
	b.IntelBriefs = append(b.IntelBriefs, generated.IntelBriefs...)
	b.Rumors = append(b.Rumors, generated.Rumors...)
	b.DiplomaticMessages = append(b.DiplomaticMessages, generated.DiplomaticMessages...)
	w.Current.IncomingEvents = append(w.Current.IncomingEvents, generated.IncomingEvents...)
}

func turnContext(w *geosim.WorldState, report *geosim.ResolutionReport) narrative.TurnContext {
	keys := make([]string, 0, len(w.Actors))
	for k := range w.Actors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	actors := make([]narrative.ActorBrief, 0, len(keys))
	for _, k := range keys {
		a := w.Actors[k]
		actors = append(actors, narrative.ActorBrief{
			ID:      a.ID,
			Name:    a.Name,
			Trust:   a.Trust,
			Posture: a.Posture,
		})
	}

	return narrative.TurnContext{
		Country:           w.Profile,
		Turn:              report.TurnNumber,
		Directive:         report.Directive,
		TranslatedActions: report.TranslatedActions,
		Deltas:            report.Deltas,
		ActorShifts:       report.ActorShifts,
		Threats:           report.Threats,
		Actors:            actors,
	}
}
