package matchflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"tri-league/internal/history"
	"tri-league/internal/matchclock"
	"tri-league/internal/rotation"
)

type fakeClockControl struct {
	mu     sync.Mutex
	starts int
	stops  int
	resets int
}

func (f *fakeClockControl) Start(string) { f.mu.Lock(); f.starts++; f.mu.Unlock() }
func (f *fakeClockControl) Stop(string)  { f.mu.Lock(); f.stops++; f.mu.Unlock() }
func (f *fakeClockControl) Reset(string) { f.mu.Lock(); f.resets++; f.mu.Unlock() }
func (f *fakeClockControl) Join(id string) matchclock.State {
	st, _ := f.Snapshot(id)
	return st
}

// Snapshot reports one cycle per reset, like the registry does.
func (f *fakeClockControl) Snapshot(id string) (matchclock.State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return matchclock.State{SessionID: id, Cycle: uint64(f.resets)}, true
}

// expire delivers an expiry for the countdown the clock is currently on.
func expire(c *Coordinator) {
	st, _ := c.clock.Snapshot(c.sessionID)
	c.OnExpiry(st)
}

func (f *fakeClockControl) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.resets
}

type recordingSink struct {
	mu      sync.Mutex
	records []history.MatchRecord
	fail    error
}

func (s *recordingSink) RecordMatch(_ context.Context, rec history.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingSink) setFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *recordingSink) all() []history.MatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]history.MatchRecord(nil), s.records...)
}

func sequenceIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func coinSequence(values ...float64) rotation.Coin {
	var mu sync.Mutex
	i := 0
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		v := values[i%len(values)]
		i++
		return v
	}
}

func newTestCoordinator(t *testing.T, opts Options) (*Coordinator, *fakeClockControl, *recordingSink) {
	t.Helper()
	engine, err := rotation.NewEngine(rotation.Assignment{SlotA: "X", SlotB: "Y", Waiting: "Z"})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewFakeClockAt(time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC))
	}
	if opts.NewID == nil {
		opts.NewID = sequenceIDs()
	}
	clock := &fakeClockControl{}
	sink := &recordingSink{}
	return NewCoordinator("pitch-1", clock, engine, sink, opts), clock, sink
}

func outcomePtr(o rotation.Outcome) *rotation.Outcome { return &o }

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
