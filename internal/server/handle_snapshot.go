package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func handleGetSnapshot(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		snap, err := store.GetSnapshot(r.Context(), gameID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			logger.Error("loading snapshot", "game_id", gameID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, snap)
	}
}

// handleLatestSnapshot implements "load last game": the most recently
// touched game's snapshot, or JSON null when no games exist.
func handleLatestSnapshot(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := store.LatestSnapshot(r.Context())
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		if err != nil {
			logger.Error("loading latest snapshot", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, snap)
	}
}

// handleDebugState exports the raw world state. Diagnostic only: it
// bypasses the fog-of-war boundary, so it is forbidden unless the
// deployment explicitly enables it.
func handleDebugState(logger *slog.Logger, store Store, enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !enabled {
			writeError(w, http.StatusForbidden, "true-state export disabled")
			return
		}

		gameID := chi.URLParam(r, "gameID")
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

		writeJSON(w, http.StatusOK, world)
	}
}
