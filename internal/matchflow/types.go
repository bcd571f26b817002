package matchflow

import (
	"errors"
	"time"

	"tri-league/internal/config"
	"tri-league/internal/history"
	"tri-league/internal/matchclock"
	"tri-league/internal/rotation"
)

type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseRunning          Phase = "running"
	PhaseExpired          Phase = "expired"
	PhaseThresholdReached Phase = "threshold_reached"
	PhaseFinalizing       Phase = "finalizing"
)

type Trigger string

const (
	TriggerThreshold Trigger = "threshold"
	TriggerExpiry    Trigger = "expiry"
	TriggerManual    Trigger = "manual"
)

var (
	ErrInvalidSide            = errors.New("invalid_side")
	ErrMatchNotRunning        = errors.New("match_not_running")
	ErrMatchNotConcluded      = errors.New("match_not_concluded")
	ErrNothingToConfirm       = errors.New("nothing_to_confirm")
	ErrOutcomeMismatch        = errors.New("outcome_mismatch")
	ErrFinalizationInProgress = errors.New("finalization_in_progress")
	ErrDrawPreviewRequired    = errors.New("draw_preview_required")
	ErrSinkFailed             = errors.New("sink_failed")
)

// ClockControl is the part of the clock registry a coordinator drives.
type ClockControl interface {
	Start(sessionID string)
	Stop(sessionID string)
	Reset(sessionID string)
	Join(sessionID string) matchclock.State
	Snapshot(sessionID string) (matchclock.State, bool)
}

type Score struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (s Score) Of(side rotation.Slot) int {
	if side == rotation.SlotA {
		return s.A
	}
	return s.B
}

type Goal struct {
	Side     rotation.Slot `json:"side"`
	Scorer   string        `json:"scorer,omitempty"`
	ScoredAt time.Time     `json:"scored_at"`
}

// Result is a classified match ending waiting to be confirmed.
type Result struct {
	Outcome rotation.Outcome `json:"outcome"`
	Kind    string           `json:"kind"`
	Trigger Trigger          `json:"trigger"`
	Score   Score            `json:"score"`
	PointsA int              `json:"points_a"`
	PointsB int              `json:"points_b"`
}

// Scoring is the points table and the goal tally that ends a match outright.
type Scoring struct {
	OutrightWinGoals int
	WinPoints        int
	TimeWinPoints    int
	DrawPoints       int
}

func DefaultScoring() Scoring {
	return Scoring{OutrightWinGoals: 2, WinPoints: 3, TimeWinPoints: 2, DrawPoints: 1}
}

func ScoringFromConfig(cfg config.MatchConfig) Scoring {
	return Scoring{
		OutrightWinGoals: cfg.OutrightWinGoals,
		WinPoints:        cfg.WinPoints,
		TimeWinPoints:    cfg.TimeWinPoints,
		DrawPoints:       cfg.DrawPoints,
	}
}

type DrawChoiceView struct {
	ID          string        `json:"id"`
	LeavingSlot rotation.Slot `json:"leaving_slot"`
	LeavingTeam string        `json:"leaving_team"`
}

// Preview is what the confirmation dialog shows before the operator commits.
type Preview struct {
	SessionID  string              `json:"session_id"`
	MatchID    string              `json:"match_id"`
	Result     Result              `json:"result"`
	Current    rotation.Assignment `json:"current"`
	Next       rotation.Assignment `json:"next"`
	DrawChoice *DrawChoiceView     `json:"draw_choice,omitempty"`
}

type PreviewRequest struct {
	Outcome *rotation.Outcome
}

type ConfirmRequest struct {
	Outcome      *rotation.Outcome
	DrawChoiceID string
}

type Status struct {
	SessionID   string               `json:"session_id"`
	Phase       Phase                `json:"phase"`
	MatchID     string               `json:"match_id,omitempty"`
	Score       Score                `json:"score"`
	Goals       []Goal               `json:"goals"`
	Pending     *Result              `json:"pending,omitempty"`
	Assignment  rotation.Assignment  `json:"assignment"`
	Memory      rotation.Memory      `json:"memory"`
	Matches     int                  `json:"matches"`
	AlarmFired  bool                 `json:"alarm_fired"`
	Undelivered int                  `json:"undelivered"`
	LastRecord  *history.MatchRecord `json:"last_record,omitempty"`
}
