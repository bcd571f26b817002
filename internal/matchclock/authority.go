package matchclock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"tri-league/internal/stream"
)

// Authority is the single writer of one session's countdown.
type Authority struct {
	id       string
	clock    clockwork.Clock
	settings Settings
	events   *stream.Buffer
	notify   func(notification)

	mu         sync.Mutex
	remaining  int
	running    bool
	alarmFired bool
	lastTick   time.Time
	lastActive time.Time
	cycle      uint64
	epoch      uint64
	cancel     context.CancelFunc

	pending  []notification
	draining bool
}

func newAuthority(id string, clock clockwork.Clock, settings Settings, notify func(notification)) *Authority {
	now := clock.Now()
	events := stream.NewBuffer(id, settings.EventBufferSize, clock)
	events.OnDrop(func() { metricObserversDropped.Add(1) })
	return &Authority{
		id:         id,
		clock:      clock,
		settings:   settings,
		events:     events,
		notify:     notify,
		remaining:  settings.DurationSec,
		lastTick:   now,
		lastActive: now,
	}
}

func (a *Authority) ID() string { return a.id }

func (a *Authority) Events() *stream.Buffer { return a.events }

func (a *Authority) join() State {
	a.mu.Lock()
	a.lastActive = a.clock.Now()
	a.advanceLocked(a.clock.Now())
	st := a.stateLocked()
	a.mu.Unlock()
	a.flush()
	return st
}

func (a *Authority) start() {
	a.mu.Lock()
	if a.running || a.remaining <= 0 {
		a.mu.Unlock()
		return
	}
	a.cancelLocked()
	now := a.clock.Now()
	a.running = true
	a.lastTick = now
	a.lastActive = now
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go a.run(ctx, a.epoch)
	a.publishLocked()
	remaining := a.remaining
	a.mu.Unlock()

	log.Info().Str("session_id", a.id).Int("remaining_seconds", remaining).Msg("clock_started")
}

func (a *Authority) stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	now := a.clock.Now()
	a.lastActive = now
	a.advanceLocked(now)
	if a.running {
		a.cancelLocked()
		a.running = false
		a.publishLocked()
	}
	remaining := a.remaining
	a.mu.Unlock()
	a.flush()

	log.Info().Str("session_id", a.id).Int("remaining_seconds", remaining).Msg("clock_stopped")
}

func (a *Authority) reset() {
	a.mu.Lock()
	a.cancelLocked()
	now := a.clock.Now()
	a.remaining = a.settings.DurationSec
	a.running = false
	a.alarmFired = false
	a.cycle++
	a.lastTick = now
	a.lastActive = now
	a.publishLocked()
	a.mu.Unlock()

	log.Info().Str("session_id", a.id).Msg("clock_reset")
}

func (a *Authority) clearAlarm() {
	a.mu.Lock()
	if !a.alarmFired {
		a.mu.Unlock()
		return
	}
	a.alarmFired = false
	a.lastActive = a.clock.Now()
	a.publishLocked()
	a.mu.Unlock()

	log.Info().Str("session_id", a.id).Msg("clock_alarm_cleared")
}

func (a *Authority) snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

func (a *Authority) run(ctx context.Context, epoch uint64) {
	ticker := a.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if !a.tick(epoch) {
				return
			}
		}
	}
}

// tick reports whether the driver for epoch should keep running.
func (a *Authority) tick(epoch uint64) bool {
	a.mu.Lock()
	if epoch != a.epoch || !a.running {
		a.mu.Unlock()
		return false
	}
	metricTicks.Add(1)
	a.advanceLocked(a.clock.Now())
	alive := a.running
	a.mu.Unlock()
	a.flush()
	return alive
}

// advanceLocked consumes the whole seconds elapsed since lastTick. It raises
// the alarm when the countdown crosses the threshold and expires the session
// when it reaches zero, stopping the driver in the same step.
func (a *Authority) advanceLocked(now time.Time) {
	if !a.running {
		return
	}
	n := int(now.Sub(a.lastTick) / time.Second)
	if n <= 0 {
		return
	}
	prev := a.remaining
	next := prev - n
	if next < 0 {
		next = 0
	}
	a.remaining = next
	a.lastTick = a.lastTick.Add(time.Duration(n) * time.Second)

	threshold := a.settings.AlarmThresholdSec
	if threshold > 0 && !a.alarmFired && prev >= threshold && next < threshold {
		a.alarmFired = true
		st := a.appendLocked(EventAlarm)
		a.pending = append(a.pending, notification{kind: EventAlarm, state: st})
		metricAlarms.Add(1)
	}

	expired := next == 0
	if expired {
		a.running = false
		a.cancelLocked()
	}
	a.publishLocked()
	if expired {
		st := a.appendLocked(EventExpiry)
		a.pending = append(a.pending, notification{kind: EventExpiry, state: st})
		metricExpiries.Add(1)
	}
}

// cancelLocked invalidates the current tick driver. A callback already in
// flight sees a newer epoch and exits without touching state.
func (a *Authority) cancelLocked() {
	a.epoch++
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *Authority) publishLocked() {
	a.appendLocked(EventClockState)
}

// appendLocked records kind on the session stream with a snapshot whose Seq
// is the id of the event carrying it.
func (a *Authority) appendLocked(kind string) State {
	st := a.stateLocked()
	st.Seq = a.events.LastID() + 1
	a.events.Append(kind, st)
	return st
}

func (a *Authority) stateLocked() State {
	return State{
		SessionID:        a.id,
		RemainingSeconds: a.remaining,
		Running:          a.running,
		AlarmFired:       a.alarmFired,
		LastTickAt:       a.lastTick,
		Seq:              a.events.LastID(),
		Cycle:            a.cycle,
	}
}

// flush delivers queued alarm/expiry notifications in order. Only one
// goroutine drains at a time; notifications raised by a listener while it is
// being called are queued and delivered by the same drainer.
func (a *Authority) flush() {
	a.mu.Lock()
	if a.draining {
		a.mu.Unlock()
		return
	}
	a.draining = true
	for len(a.pending) > 0 {
		n := a.pending[0]
		a.pending = a.pending[1:]
		a.mu.Unlock()
		if a.notify != nil {
			a.notify(n)
		}
		a.mu.Lock()
	}
	a.draining = false
	a.mu.Unlock()
}

func (a *Authority) idleSince() (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastActive, !a.running && a.events.Watchers() == 0
}

func (a *Authority) close() {
	a.mu.Lock()
	a.cancelLocked()
	a.running = false
	a.mu.Unlock()
	a.events.Close()
}
