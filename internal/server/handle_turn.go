package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
)

type TurnRequest struct {
	Actions   []string `json:"actions"`
	Directive string   `json:"directive"`
}

func handleSubmitTurn(logger *slog.Logger, store Store, locks *gameLocks, enrich *enricher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		if gameID == "" {
			writeError(w, http.StatusBadRequest, "gameId is required")
			return
		}

		var req TurnRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		// The whole read-modify-write is one section per game: the
		// current turn number is read synchronously under the lock, so
		// two racing submissions can never double-advance.
		unlock := locks.lock(gameID)
		defer unlock()

		world, err := store.GetWorld(r.Context(), gameID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			logger.Error("loading world", "game_id", gameID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if world.Status == geosim.StatusFailed {
			writeError(w, http.StatusConflict, "game is over")
			return
		}

		prev, err := store.GetSnapshot(r.Context(), gameID)
		if err != nil {
			logger.Error("loading snapshot", "game_id", gameID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		outcome, report := geosim.ResolveTurn(world, prev, req.Actions, req.Directive)

		if err := store.SaveGame(r.Context(), world, outcome.NextSnapshot); err != nil {
			logger.Error("saving game", "game_id", gameID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := store.SaveReport(r.Context(), gameID, report); err != nil {
			logger.Error("saving pending report", "game_id", gameID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Enrichment is strictly post-resolution; the client hydrates
		// the snapshot by polling while this runs.
		enrich.kick(gameID, outcome.TurnResolved)

		logger.Info("turn resolved",
			"game_id", gameID,
			"turn", outcome.TurnResolved,
			"failed", outcome.Failure != nil,
		)
		writeJSON(w, http.StatusOK, outcome)
	}
}
