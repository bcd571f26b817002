package matchflow

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"tri-league/internal/history"
	"tri-league/internal/matchclock"
	"tri-league/internal/roster"
	"tri-league/internal/rotation"
)

// Manager keeps one Coordinator per session, seeded from the roster source,
// and routes clock events to it.
type Manager struct {
	clock  ClockControl
	roster roster.Source
	sink   history.Sink
	opts   Options

	mu       sync.Mutex
	sessions map[string]*Coordinator
}

func NewManager(clock ClockControl, src roster.Source, sink history.Sink, opts Options) *Manager {
	return &Manager{
		clock:    clock,
		roster:   src,
		sink:     sink,
		opts:     opts.withDefaults(),
		sessions: map[string]*Coordinator{},
	}
}

// Coordinator returns the session's coordinator, creating it on first use.
func (m *Manager) Coordinator(ctx context.Context, sessionID string) (*Coordinator, error) {
	if c, ok := m.Lookup(sessionID); ok {
		return c, nil
	}
	r, err := m.roster.Roster(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load roster for %s: %w", sessionID, err)
	}
	initial, err := r.InitialAssignment()
	if err != nil {
		return nil, err
	}
	engine, err := rotation.NewEngine(initial)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.sessions[sessionID]; ok {
		return c, nil
	}
	c := NewCoordinator(sessionID, m.clock, engine, m.sink, m.opts)
	m.sessions[sessionID] = c
	log.Info().
		Str("session_id", sessionID).
		Str("slot_a", string(initial.SlotA)).
		Str("slot_b", string(initial.SlotB)).
		Str("waiting", string(initial.Waiting)).
		Msg("tournament_opened")
	return c, nil
}

func (m *Manager) Lookup(sessionID string) (*Coordinator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[sessionID]
	return c, ok
}

func (m *Manager) Sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) OnAlarm(st matchclock.State) {
	if c, ok := m.Lookup(st.SessionID); ok {
		c.OnAlarm(st)
	}
}

// OnExpiry opens the session's tournament if needed so a countdown started
// straight from a display still produces a result.
func (m *Manager) OnExpiry(st matchclock.State) {
	c, err := m.Coordinator(context.Background(), st.SessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", st.SessionID).Msg("expiry_without_tournament")
		return
	}
	c.OnExpiry(st)
}

// OnEvicted forgets the session's tournament once its clock has been swept,
// unless a match is still open or records are waiting for redelivery.
func (m *Manager) OnEvicted(sessionID string) {
	m.mu.Lock()
	c, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	st := c.Status()
	if st.Phase != PhaseIdle || st.Undelivered > 0 {
		m.mu.Unlock()
		log.Info().
			Str("session_id", sessionID).
			Str("phase", string(st.Phase)).
			Int("undelivered", st.Undelivered).
			Msg("tournament_kept_after_eviction")
		return
	}
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	log.Info().Str("session_id", sessionID).Int("matches", st.Matches).Msg("tournament_closed")
}

// RetryUndelivered retries every session's queue and returns the total delivered.
func (m *Manager) RetryUndelivered(ctx context.Context) (int, error) {
	total := 0
	var firstErr error
	for _, id := range m.Sessions() {
		c, ok := m.Lookup(id)
		if !ok {
			continue
		}
		n, err := c.RetryUndelivered(ctx)
		total += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return total, firstErr
}

// RecordGoal records a goal in the session's current match.
func (m *Manager) RecordGoal(ctx context.Context, sessionID string, side rotation.Slot, scorer string) (Status, error) {
	c, err := m.Coordinator(ctx, sessionID)
	if err != nil {
		return Status{}, err
	}
	return c.RecordGoal(side, scorer)
}
