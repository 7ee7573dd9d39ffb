package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
)

type CreateGameRequest struct {
	Seed string `json:"seed"`
}

func handleCreateGame(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Body is optional; an empty body means a random seed.
		var req CreateGameRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		seed := strings.TrimSpace(req.Seed)
		if seed == "" {
			seed = uuid.NewString()
		}

		gameID := uuid.NewString()
		world := geosim.NewWorld(gameID, seed)
		snap := geosim.Project(world, nil)

		if err := store.CreateGame(r.Context(), world, snap); err != nil {
			logger.Error("creating game", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("game created", "game_id", gameID, "country", world.Profile.Name)
		writeJSON(w, http.StatusCreated, snap)
	}
}
