package server

import (
	"context"
	"errors"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
)

var ErrNotFound = errors.New("not found")

// Store persists game records. World state and snapshot for one game
// are written together by SaveGame so the two representations cannot
// diverge at rest; SaveSnapshot exists for interactions that have no
// world-state effect and must not rewrite the world.
type Store interface {
	CreateGame(ctx context.Context, w *geosim.WorldState, snap *geosim.GameSnapshot) error
	GetWorld(ctx context.Context, gameID string) (*geosim.WorldState, error)
	GetSnapshot(ctx context.Context, gameID string) (*geosim.GameSnapshot, error)
	LatestSnapshot(ctx context.Context) (*geosim.GameSnapshot, error)
	SaveGame(ctx context.Context, w *geosim.WorldState, snap *geosim.GameSnapshot) error
	SaveSnapshot(ctx context.Context, snap *geosim.GameSnapshot) error

	GetReport(ctx context.Context, gameID string, turn int) (*geosim.ResolutionReport, error)
	SaveReport(ctx context.Context, gameID string, report *geosim.ResolutionReport) error

	Reset(ctx context.Context) error
}
