package server

import (
	"log/slog"
	"net/http"
)

// handleReset deletes every game record. The in-flight coordinator is
// left alone: its entries drain on their own completion.
func handleReset(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Reset(r.Context()); err != nil {
			logger.Error("resetting games", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("all game records deleted")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
