package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
)

// maxReportWait caps the optional synchronous wait budget.
const maxReportWait = 12000 * time.Millisecond

func handleGetReport(logger *slog.Logger, store Store, enrich *enricher, narrativeEnabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		turn, err := strconv.Atoi(chi.URLParam(r, "turn"))
		if err != nil || turn < 1 {
			writeError(w, http.StatusBadRequest, "invalid turn number")
			return
		}

		force := r.URL.Query().Get("force") == "true"
		wait := parseWait(r.URL.Query().Get("waitMs"))

		stored, err := store.GetReport(r.Context(), gameID, turn)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		if err != nil {
			logger.Error("loading report", "game_id", gameID, "turn", turn, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if !stored.Pending && !force {
			writeJSON(w, http.StatusOK, stored)
			return
		}

		if !narrativeEnabled {
			writeError(w, http.StatusServiceUnavailable, "narrative generation is disabled")
			return
		}

		// Start or join the single in-flight computation for this
		// (game, turn, force) key. A bounded synchronous wait folds
		// into that same completion; on expiry the caller gets the
		// pending shape and keeps polling.
		ch := enrich.join(gameID, turn, force)
		if wait > 0 {
			select {
			case res := <-ch:
				writeJSON(w, http.StatusOK, reportOrFailure(stored, res))
				return
			case <-time.After(wait):
			case <-r.Context().Done():
			}
		}

		writeJSON(w, http.StatusOK, stored)
	}
}

func parseWait(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 {
		return 0
	}
	wait := time.Duration(ms) * time.Millisecond
	if wait > maxReportWait {
		wait = maxReportWait
	}
	return wait
}

// reportOrFailure maps a completed computation to its report, and a
// failed one to the pending shape with an explicit error string — a
// failed enrichment is visibly distinct from a pending one, and is
// never persisted as if it had completed.
func reportOrFailure(stored *geosim.ResolutionReport, res EnrichResult) *geosim.ResolutionReport {
	if res.Err == nil {
		return res.Report
	}
	failed := *stored
	failed.Pending = false
	failed.Error = res.Err.Error()
	return &failed
}
