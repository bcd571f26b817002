package matchclock

import (
	"time"

	"tri-league/internal/config"
)

const (
	EventClockState = "clock_state"
	EventAlarm      = "alarm"
	EventExpiry     = "expiry"
)

// State is the snapshot pushed to observers. Seq is the id of the last event
// appended to the session stream when the snapshot was taken. Cycle counts
// resets, so an expiry can be matched to the countdown that produced it.
type State struct {
	SessionID        string    `json:"session_id"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Running          bool      `json:"running"`
	AlarmFired       bool      `json:"alarm_fired"`
	LastTickAt       time.Time `json:"last_tick_at"`
	Seq              int64     `json:"seq"`
	Cycle            uint64    `json:"cycle"`
}

type Settings struct {
	DurationSec       int
	AlarmThresholdSec int
	EventBufferSize   int
}

func SettingsFromConfig(cfg config.MatchConfig) Settings {
	return Settings{
		DurationSec:       cfg.DurationSec,
		AlarmThresholdSec: cfg.AlarmThresholdSec,
	}
}

func (s Settings) withDefaults() Settings {
	if s.DurationSec <= 0 {
		s.DurationSec = 600
	}
	if s.AlarmThresholdSec < 0 || s.AlarmThresholdSec > s.DurationSec {
		s.AlarmThresholdSec = 0
	}
	if s.EventBufferSize <= 0 {
		s.EventBufferSize = 256
	}
	return s
}

// Listener receives the one-shot events of every session. Calls for one
// session arrive in event order and never concurrently.
type Listener interface {
	OnAlarm(State)
	OnExpiry(State)
}

// EvictionListener is implemented by listeners that keep per-session state
// and drop it when the janitor evicts the session.
type EvictionListener interface {
	OnEvicted(sessionID string)
}

type notification struct {
	kind  string
	state State
}
