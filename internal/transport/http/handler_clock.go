package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"tri-league/internal/matchclock"
	"tri-league/internal/matchflow"
)

// Clocks is the clock registry surface the command endpoints drive.
type Clocks interface {
	Join(sessionID string) matchclock.State
	Snapshot(sessionID string) (matchclock.State, bool)
	Stop(sessionID string)
	Reset(sessionID string)
	ClearAlarm(sessionID string)
	Sessions() []string
}

type ClockHandlers struct {
	clocks  Clocks
	matches *matchflow.Manager
}

func NewClockHandlers(clocks Clocks, matches *matchflow.Manager) *ClockHandlers {
	return &ClockHandlers{clocks: clocks, matches: matches}
}

// Start opens a match when none is in progress, otherwise resumes the clock.
func (h *ClockHandlers) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")
		c, err := h.matches.Coordinator(r.Context(), sessionID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		h.clocks.Join(sessionID)
		if err := c.StartMatch(); err != nil {
			writeDomainError(w, err)
			return
		}
		metricClockCommandsTotal.Add(1)
		h.writeState(w, r, sessionID, "start")
	}
}

func (h *ClockHandlers) Stop() http.HandlerFunc {
	return h.command("stop", h.clocks.Stop)
}

func (h *ClockHandlers) Reset() http.HandlerFunc {
	return h.command("reset", h.clocks.Reset)
}

func (h *ClockHandlers) ClearAlarm() http.HandlerFunc {
	return h.command("clear_alarm", h.clocks.ClearAlarm)
}

type unknownSession struct {
	SessionID string `json:"session_id"`
	Known     bool   `json:"known"`
}

// command applies a mutating clock command. Unknown sessions stay unknown:
// the command is a no-op and the reply says so.
func (h *ClockHandlers) command(name string, apply func(sessionID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")
		apply(sessionID)
		metricClockCommandsTotal.Add(1)
		if _, ok := h.clocks.Snapshot(sessionID); !ok {
			log.Info().
				Str("session_id", sessionID).
				Str("command", name).
				Str("request_id", requestID(r)).
				Msg("clock_command_unknown_session")
			writeJSON(w, http.StatusOK, unknownSession{SessionID: sessionID})
			return
		}
		h.writeState(w, r, sessionID, name)
	}
}

func (h *ClockHandlers) writeState(w http.ResponseWriter, r *http.Request, sessionID, command string) {
	st, _ := h.clocks.Snapshot(sessionID)
	log.Info().
		Str("session_id", sessionID).
		Str("command", command).
		Int("remaining_seconds", st.RemainingSeconds).
		Bool("running", st.Running).
		Str("request_id", requestID(r)).
		Msg("clock_command")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}
