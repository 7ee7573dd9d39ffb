package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/J0YY/the-world-unscripted-sub001/internal/narrative"
)

// Deps carries everything the request handlers need. The coordinator
// and per-game locks are constructed here, once per server, and
// injected into handlers — never reached for as globals.
type Deps struct {
	Store            Store
	Narrative        narrative.Client
	NarrativeEnabled bool
	DebugExport      bool
	DB               *sql.DB
}

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	locks := newGameLocks()
	enrich := &enricher{
		store:     deps.Store,
		narrative: deps.Narrative,
		coord:     NewCoordinator(),
		locks:     locks,
		logger:    logger,
	}

	r.Get("/openapi.json", handleOpenAPI())
	r.Get("/docs", handleSwaggerUI())
	r.Get("/docs/*", handleSwaggerUI())
	r.Get("/healthz", handleHealth(logger, deps.DB))

	r.Route("/api", func(r chi.Router) {
		r.Post("/games", handleCreateGame(logger, deps.Store))
		r.Get("/games/latest", handleLatestSnapshot(logger, deps.Store))
		r.Get("/games/{gameID}", handleGetSnapshot(logger, deps.Store))
		r.Post("/games/{gameID}/turn", handleSubmitTurn(logger, deps.Store, locks, enrich))
		r.Get("/games/{gameID}/reports/{turn}", handleGetReport(logger, deps.Store, enrich, deps.NarrativeEnabled))
		r.Post("/games/{gameID}/diplomacy/{nationID}", handleDiplomacyChat(logger, deps.Store, locks, deps.Narrative))
		r.Post("/reset", handleReset(logger, deps.Store))
		r.Get("/games/{gameID}/debug/state", handleDebugState(logger, deps.Store, deps.DebugExport))
	})
}
