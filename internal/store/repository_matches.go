package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"tri-league/internal/history"
)

const matchColumns = `id, session_id, match_number, slot_a, slot_b, waiting,
	score_a, score_b, outcome, kind, finish_trigger, points_a, points_b, winner,
	started_at, concluded_at, next_slot_a, next_slot_b, next_waiting`

// RecordMatch inserts rec. Re-sending a record with a known id is a no-op.
func (s *Store) RecordMatch(ctx context.Context, rec history.MatchRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO matches (`+matchColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.SessionID, rec.MatchNumber, rec.SlotA, rec.SlotB, rec.Waiting,
		rec.ScoreA, rec.ScoreB, rec.Outcome, rec.Kind, rec.Trigger, rec.PointsA, rec.PointsB, rec.Winner,
		rec.StartedAt, rec.ConcludedAt, rec.NextSlotA, rec.NextSlotB, rec.NextWaiting,
	)
	return err
}

func (s *Store) GetMatch(ctx context.Context, id string) (history.MatchRecord, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	if err != nil {
		return history.MatchRecord{}, err
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanMatch)
	if errors.Is(err, pgx.ErrNoRows) {
		return history.MatchRecord{}, ErrNotFound
	}
	return rec, err
}

// ListMatches returns the newest matches first. An empty sessionID lists
// every session.
func (s *Store) ListMatches(ctx context.Context, sessionID string, limit, offset int) ([]history.MatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE ($1::text = '' OR session_id = $1)
		ORDER BY concluded_at DESC, id DESC
		LIMIT $2 OFFSET $3`, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanMatch)
}

func (s *Store) Standings(ctx context.Context, sessionID string) ([]history.Row, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE session_id = $1
		ORDER BY concluded_at`, sessionID)
	if err != nil {
		return nil, err
	}
	records, err := pgx.CollectRows(rows, scanMatch)
	if err != nil {
		return nil, err
	}
	return history.Standings(records), nil
}

func scanMatch(row pgx.CollectableRow) (history.MatchRecord, error) {
	var rec history.MatchRecord
	err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.MatchNumber, &rec.SlotA, &rec.SlotB, &rec.Waiting,
		&rec.ScoreA, &rec.ScoreB, &rec.Outcome, &rec.Kind, &rec.Trigger, &rec.PointsA, &rec.PointsB, &rec.Winner,
		&rec.StartedAt, &rec.ConcludedAt, &rec.NextSlotA, &rec.NextSlotB, &rec.NextWaiting,
	)
	return rec, err
}
