package history

import (
	"context"
	"time"
)

// MatchRecord is the finalized result of one concluded match.
type MatchRecord struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	MatchNumber int       `json:"match_number"`
	SlotA       string    `json:"slot_a"`
	SlotB       string    `json:"slot_b"`
	Waiting     string    `json:"waiting"`
	ScoreA      int       `json:"score_a"`
	ScoreB      int       `json:"score_b"`
	Outcome     string    `json:"outcome"`
	Kind        string    `json:"kind"`
	Trigger     string    `json:"trigger"`
	PointsA     int       `json:"points_a"`
	PointsB     int       `json:"points_b"`
	Winner      string    `json:"winner,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	ConcludedAt time.Time `json:"concluded_at"`

	NextSlotA   string `json:"next_slot_a"`
	NextSlotB   string `json:"next_slot_b"`
	NextWaiting string `json:"next_waiting"`
}

const (
	KindWin     = "win"
	KindTimeWin = "time_win"
	KindDraw    = "draw"
)

// Sink accepts one finalized record per concluded match.
type Sink interface {
	RecordMatch(ctx context.Context, rec MatchRecord) error
}

type SinkFunc func(ctx context.Context, rec MatchRecord) error

func (f SinkFunc) RecordMatch(ctx context.Context, rec MatchRecord) error {
	return f(ctx, rec)
}

// Reader lists records previously accepted by a sink and the league table
// they add up to.
type Reader interface {
	ListMatches(ctx context.Context, sessionID string, limit, offset int) ([]MatchRecord, error)
	Standings(ctx context.Context, sessionID string) ([]Row, error)
}
