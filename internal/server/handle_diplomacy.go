package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
	"github.com/J0YY/the-world-unscripted-sub001/internal/narrative"
)

// converseTimeout is the hard deadline for interactive reply
// generation. Past it the caller gets a "taking too long" answer
// instead of a hung request.
const converseTimeout = 10 * time.Second

type DiplomacyRequest struct {
	Message string `json:"message"`
}

type DiplomacyResponse struct {
	Reply       string             `json:"reply"`
	ChatHistory []geosim.ChatEntry `json:"chatHistory"`
}

func handleDiplomacyChat(logger *slog.Logger, store Store, locks *gameLocks, client narrative.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		nationID := chi.URLParam(r, "nationID")

		var req DiplomacyRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Message = strings.TrimSpace(req.Message)
		if req.Message == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}

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

		snap, err := store.GetSnapshot(r.Context(), gameID)
		if err != nil {
			logger.Error("loading snapshot", "game_id", gameID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// A missing diplomacy sub-view marks a record from before
		// diplomacy existed. That is reported, not silently repaired:
		// defaulting here would hide the legacy condition.
		if snap.Diplomacy == nil {
			writeError(w, http.StatusUnprocessableEntity, "diplomacy not initialized for this game")
			return
		}

		nation := snap.Diplomacy.Nation(nationID)
		actor := world.ActorByID(nationID)
		if nation == nil || actor == nil {
			writeError(w, http.StatusNotFound, "nation not found")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), converseTimeout)
		defer cancel()

		reply, err := client.Converse(ctx, narrative.ChatContext{
			Country:    world.Profile,
			NationID:   nation.ID,
			NationName: nation.Name,
			Stance:     actor.Trust,
			History:    chatTail(nation.ChatHistory, 8),
			Message:    req.Message,
		})
		if errors.Is(err, narrative.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "narrative generation is disabled")
			return
		}
		if errors.Is(err, narrative.ErrTimeout) {
			writeError(w, http.StatusGatewayTimeout, "the minister is taking too long to respond")
			return
		}
		if err != nil {
			logger.Error("diplomacy reply failed", "game_id", gameID, "nation_id", nationID, "error", err)
			writeError(w, http.StatusServiceUnavailable, "narrative generation failed")
			return
		}

		now := time.Now().UTC()
		nation.ChatHistory = append(nation.ChatHistory,
			geosim.ChatEntry{Role: geosim.RoleUser, Text: req.Message, Timestamp: now},
			geosim.ChatEntry{Role: geosim.RoleMinister, Text: reply.Reply, Timestamp: now},
		)

		// Trust and headline are world-state effects; the snapshot
		// mirror is updated in the same logical update so stance and
		// trust can never diverge. A chat with neither effect must not
		// rewrite the world.
		worldChanged := false
		if reply.TrustChange != 0 {
			actor.AdjustTrust(reply.TrustChange)
			worldChanged = true
		}
		if reply.Headline != "" {
			if world.Current.Briefing == nil {
				world.Current.Briefing = geosim.NewBriefing()
			}
			world.Current.Briefing.PushHeadline(reply.Headline)
			worldChanged = true
		}

		snap = geosim.Project(world, snap)

		if worldChanged {
			err = store.SaveGame(r.Context(), world, snap)
		} else {
			err = store.SaveSnapshot(r.Context(), snap)
		}
		if err != nil {
			logger.Error("saving diplomacy interaction", "game_id", gameID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, DiplomacyResponse{
			Reply:       reply.Reply,
			ChatHistory: snap.Diplomacy.Nation(nationID).ChatHistory,
		})
	}
}

func chatTail(history []geosim.ChatEntry, n int) []geosim.ChatEntry {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
