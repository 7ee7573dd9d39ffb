package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
)

// SQLiteStore keeps each game as a document row: the authoritative
// world and its derived snapshot serialized as JSON side by side.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (s *SQLiteStore) CreateGame(ctx context.Context, w *geosim.WorldState, snap *geosim.GameSnapshot) error {
	worldJSON, snapJSON, err := encodeGame(w, snap)
	if err != nil {
		return err
	}
	stamp := nowStamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (id, created_at, updated_at, turn, world, snapshot)
		VALUES (?, ?, ?, ?, ?, ?)
	`, w.GameID, stamp, stamp, w.Turn, worldJSON, snapJSON)
	return err
}

func (s *SQLiteStore) GetWorld(ctx context.Context, gameID string) (*geosim.WorldState, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT world FROM games WHERE id = ?`, gameID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var w geosim.WorldState
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("decoding world %q: %w", gameID, err)
	}
	return &w, nil
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, gameID string) (*geosim.GameSnapshot, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM games WHERE id = ?`, gameID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(raw, gameID)
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*geosim.GameSnapshot, error) {
	var (
		id  string
		raw string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, snapshot FROM games
		ORDER BY updated_at DESC, created_at DESC
		LIMIT 1
	`).Scan(&id, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(raw, id)
}

func (s *SQLiteStore) SaveGame(ctx context.Context, w *geosim.WorldState, snap *geosim.GameSnapshot) error {
	worldJSON, snapJSON, err := encodeGame(w, snap)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE games SET updated_at = ?, turn = ?, world = ?, snapshot = ?
		WHERE id = ?
	`, nowStamp(), w.Turn, worldJSON, snapJSON, w.GameID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *geosim.GameSnapshot) error {
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE games SET updated_at = ?, snapshot = ?
		WHERE id = ?
	`, nowStamp(), string(snapJSON), snap.GameID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *SQLiteStore) GetReport(ctx context.Context, gameID string, turn int) (*geosim.ResolutionReport, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM reports WHERE game_id = ? AND turn = ?`, gameID, turn).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var report geosim.ResolutionReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("decoding report %q turn %d: %w", gameID, turn, err)
	}
	return &report, nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, gameID string, report *geosim.ResolutionReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (game_id, turn, report, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (game_id, turn) DO UPDATE SET
			report = excluded.report,
			updated_at = excluded.updated_at
	`, gameID, report.TurnNumber, string(raw), nowStamp())
	return err
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reports`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM games`); err != nil {
		return err
	}
	return tx.Commit()
}

func encodeGame(w *geosim.WorldState, snap *geosim.GameSnapshot) (string, string, error) {
	worldJSON, err := json.Marshal(w)
	if err != nil {
		return "", "", fmt.Errorf("encoding world: %w", err)
	}
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return "", "", fmt.Errorf("encoding snapshot: %w", err)
	}
	return string(worldJSON), string(snapJSON), nil
}

func decodeSnapshot(raw, gameID string) (*geosim.GameSnapshot, error) {
	var snap geosim.GameSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %q: %w", gameID, err)
	}
	return &snap, nil
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
