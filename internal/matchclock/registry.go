package matchclock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"tri-league/internal/stream"
)

// Registry owns every session's Authority. Construct one per process and pass
// it to whatever needs clock access.
type Registry struct {
	clock    clockwork.Clock
	settings Settings

	mu        sync.RWMutex
	sessions  map[string]*Authority
	listeners []Listener
	closed    bool
}

func NewRegistry(clock clockwork.Clock, settings Settings) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		clock:    clock,
		settings: settings.withDefaults(),
		sessions: map[string]*Authority{},
	}
}

func (r *Registry) Settings() Settings { return r.settings }

func (r *Registry) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Join returns the drift-corrected state of sessionID, creating a stopped
// full-length session when none exists.
func (r *Registry) Join(sessionID string) State {
	return r.getOrCreate(sessionID).join()
}

// Start, Stop, Reset and ClearAlarm are no-ops for unknown sessions.
func (r *Registry) Start(sessionID string) {
	if a, ok := r.Lookup(sessionID); ok {
		a.start()
	}
}

func (r *Registry) Stop(sessionID string) {
	if a, ok := r.Lookup(sessionID); ok {
		a.stop()
	}
}

func (r *Registry) Reset(sessionID string) {
	if a, ok := r.Lookup(sessionID); ok {
		a.reset()
	}
}

func (r *Registry) ClearAlarm(sessionID string) {
	if a, ok := r.Lookup(sessionID); ok {
		a.clearAlarm()
	}
}

// Snapshot returns the last authoritative state without drift correction.
func (r *Registry) Snapshot(sessionID string) (State, bool) {
	a, ok := r.Lookup(sessionID)
	if !ok {
		return State{}, false
	}
	return a.snapshot(), true
}

// Events returns the ordered event stream of sessionID, creating the session
// like Join does.
func (r *Registry) Events(sessionID string) *stream.Buffer {
	return r.getOrCreate(sessionID).Events()
}

func (r *Registry) Lookup(sessionID string) (*Authority, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.sessions[sessionID]
	return a, ok
}

func (r *Registry) Sessions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}

func (r *Registry) getOrCreate(sessionID string) *Authority {
	if a, ok := r.Lookup(sessionID); ok {
		return a
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.sessions[sessionID]; ok {
		return a
	}
	a := newAuthority(sessionID, r.clock, r.settings, r.dispatch)
	if !r.closed {
		r.sessions[sessionID] = a
		metricSessionsCreated.Add(1)
		metricSessionsActive.Add(1)
		log.Info().Str("session_id", sessionID).Int("duration_seconds", r.settings.DurationSec).Msg("clock_session_created")
	}
	return a
}

func (r *Registry) dispatch(n notification) {
	r.mu.RLock()
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.RUnlock()

	ev := log.Info().Str("session_id", n.state.SessionID).Int("remaining_seconds", n.state.RemainingSeconds)
	ev.Msg("clock_" + n.kind)
	for _, l := range listeners {
		switch n.kind {
		case EventAlarm:
			l.OnAlarm(n.state)
		case EventExpiry:
			l.OnExpiry(n.state)
		}
	}
}

// StartJanitor drops sessions that are stopped, unobserved and untouched for
// longer than idleTTL.
func (r *Registry) StartJanitor(ctx context.Context, interval, idleTTL time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	if idleTTL <= 0 {
		idleTTL = time.Hour
	}
	ticker := r.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.Chan():
				r.sweep(now, idleTTL)
			}
		}
	}()
}

func (r *Registry) sweep(now time.Time, idleTTL time.Duration) int {
	r.mu.RLock()
	var stale []*Authority
	for _, a := range r.sessions {
		since, idle := a.idleSince()
		if idle && now.Sub(since) >= idleTTL {
			stale = append(stale, a)
		}
	}
	r.mu.RUnlock()

	removed := 0
	for _, a := range stale {
		r.mu.Lock()
		cur, ok := r.sessions[a.id]
		since, idle := a.idleSince()
		evict := ok && cur == a && idle && now.Sub(since) >= idleTTL
		if evict {
			delete(r.sessions, a.id)
		}
		r.mu.Unlock()
		if !evict {
			continue
		}
		a.close()
		removed++
		metricSessionsActive.Add(-1)
		log.Info().Str("session_id", a.id).Msg("clock_session_evicted")
		r.notifyEvicted(a.id)
	}
	return removed
}

func (r *Registry) notifyEvicted(sessionID string) {
	r.mu.RLock()
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, l := range listeners {
		if el, ok := l.(EvictionListener); ok {
			el.OnEvicted(sessionID)
		}
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = map[string]*Authority{}
	r.mu.Unlock()
	for _, a := range sessions {
		a.close()
		metricSessionsActive.Add(-1)
	}
}
