package matchflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"tri-league/internal/history"
	"tri-league/internal/matchclock"
	"tri-league/internal/roster"
	"tri-league/internal/rotation"
)

type failingSource struct{}

func (failingSource) Roster(context.Context, string) (roster.Roster, error) {
	return roster.Roster{}, roster.ErrInvalidRoster
}

func newTestManager(t *testing.T, duration, threshold int) (*Manager, *matchclock.Registry, *clockwork.FakeClock, *recordingSink) {
	t.Helper()
	fc := clockwork.NewFakeClockAt(time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC))
	reg := matchclock.NewRegistry(fc, matchclock.Settings{DurationSec: duration, AlarmThresholdSec: threshold})
	t.Cleanup(reg.Close)
	src, err := roster.FromNames([]string{"Red", "Blue", "Green"})
	if err != nil {
		t.Fatalf("FromNames: %v", err)
	}
	sink := &recordingSink{}
	m := NewManager(reg, src, sink, Options{Clock: fc, NewID: sequenceIDs(), Coin: coinSequence(0.2)})
	reg.AddListener(m)
	return m, reg, fc, sink
}

func waitForTicker(t *testing.T, fc *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("waiting for ticker: %v", err)
	}
}

func TestManagerCreatesCoordinatorFromRoster(t *testing.T) {
	m, _, _, _ := newTestManager(t, 10, 5)
	ctx := context.Background()

	c, err := m.Coordinator(ctx, "pitch-2")
	if err != nil {
		t.Fatalf("Coordinator: %v", err)
	}
	again, _ := m.Coordinator(ctx, "pitch-2")
	if c != again {
		t.Fatal("Coordinator should return the same instance per session")
	}
	want := rotation.Assignment{SlotA: "Red", SlotB: "Blue", Waiting: "Green"}
	if got := c.Status().Assignment; got != want {
		t.Fatalf("assignment = %+v, want %+v", got, want)
	}
	_, _ = m.Coordinator(ctx, "pitch-1")
	if got := m.Sessions(); len(got) != 2 || got[0] != "pitch-1" || got[1] != "pitch-2" {
		t.Fatalf("Sessions = %v", got)
	}
}

func TestManagerClockExpiryProducesResult(t *testing.T) {
	m, reg, fc, sink := newTestManager(t, 3, 2)
	ctx := context.Background()
	c, err := m.Coordinator(ctx, "pitch-1")
	if err != nil {
		t.Fatalf("Coordinator: %v", err)
	}
	if err := c.StartMatch(); err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	waitForTicker(t, fc)
	if _, err := c.RecordGoal(rotation.SlotB, "Kit"); err != nil {
		t.Fatalf("RecordGoal: %v", err)
	}

	fc.Advance(3 * time.Second)
	eventually(t, "expiry classification", func() bool { return c.Status().Phase == PhaseExpired })

	st := c.Status()
	if !st.AlarmFired {
		t.Fatal("alarm should be routed to the coordinator")
	}
	if st.Pending.Kind != history.KindTimeWin || st.Pending.Outcome != rotation.OutcomeSlotBWins {
		t.Fatalf("pending = %+v", st.Pending)
	}

	next, err := c.ConfirmResult(ctx, ConfirmRequest{})
	if err != nil {
		t.Fatalf("ConfirmResult: %v", err)
	}
	if next != (rotation.Assignment{SlotA: "Green", SlotB: "Blue", Waiting: "Red"}) {
		t.Fatalf("next = %+v", next)
	}
	clock, ok := reg.Snapshot("pitch-1")
	if !ok || clock.Running || clock.RemainingSeconds != 3 || clock.AlarmFired {
		t.Fatalf("clock after confirm = %+v", clock)
	}
	if recs := sink.all(); len(recs) != 1 || recs[0].Winner != "Blue" || recs[0].Trigger != "expiry" {
		t.Fatalf("records = %+v", recs)
	}
}

func TestManagerThresholdStopsClock(t *testing.T) {
	m, reg, fc, _ := newTestManager(t, 30, 10)
	c, _ := m.Coordinator(context.Background(), "pitch-1")
	_ = c.StartMatch()
	waitForTicker(t, fc)

	_, _ = c.RecordGoal(rotation.SlotA, "")
	_, _ = c.RecordGoal(rotation.SlotA, "")

	clock, _ := reg.Snapshot("pitch-1")
	if clock.Running {
		t.Fatal("reaching the goal tally should stop the clock")
	}
	fc.Advance(40 * time.Second)
	if st := c.Status(); st.Phase != PhaseThresholdReached || st.Pending.Kind != history.KindWin {
		t.Fatalf("status = %+v", st)
	}
}

func TestManagerExpiryOpensUnknownSession(t *testing.T) {
	m, reg, fc, _ := newTestManager(t, 10, 5)
	reg.Join("walk-up")
	reg.Start("walk-up")
	waitForTicker(t, fc)
	fc.Advance(10 * time.Second)

	eventually(t, "walk-up expiry", func() bool {
		c, ok := m.Lookup("walk-up")
		return ok && c.Status().Phase == PhaseExpired
	})
	c, _ := m.Lookup("walk-up")
	if st := c.Status(); st.Pending.Kind != history.KindDraw {
		t.Fatalf("status = %+v", st)
	}
	m.OnAlarm(matchclock.State{SessionID: "nobody"})
	if _, ok := m.Lookup("nobody"); ok {
		t.Fatal("alarm should not open a session")
	}
}

func TestManagerRosterFailure(t *testing.T) {
	m := NewManager(&fakeClockControl{}, failingSource{}, &recordingSink{}, Options{})
	if _, err := m.Coordinator(context.Background(), "pitch-1"); !errors.Is(err, roster.ErrInvalidRoster) {
		t.Fatalf("error = %v, want ErrInvalidRoster", err)
	}
	m.OnExpiry(matchclock.State{SessionID: "pitch-1"})
	if len(m.Sessions()) != 0 {
		t.Fatal("failed roster load should not register a session")
	}
}

func TestManagerRetryUndelivered(t *testing.T) {
	m, _, _, sink := newTestManager(t, 10, 5)
	ctx := context.Background()
	sink.setFail(errors.New("down"))

	for _, id := range []string{"pitch-1", "pitch-2"} {
		c, _ := m.Coordinator(ctx, id)
		_, _ = c.RecordGoal(rotation.SlotA, "")
		_, _ = c.RecordGoal(rotation.SlotA, "")
		if _, err := c.ConfirmResult(ctx, ConfirmRequest{}); !errors.Is(err, ErrSinkFailed) {
			t.Fatalf("%s confirm error = %v", id, err)
		}
	}

	sink.setFail(nil)
	n, err := m.RetryUndelivered(ctx)
	if err != nil || n != 2 {
		t.Fatalf("RetryUndelivered = %d, %v", n, err)
	}
	if got := len(sink.all()); got != 2 {
		t.Fatalf("sink has %d records, want 2", got)
	}
}

type heldExpiry struct {
	reached chan struct{}
	release chan struct{}
}

func (h *heldExpiry) OnAlarm(matchclock.State) {}

func (h *heldExpiry) OnExpiry(matchclock.State) {
	close(h.reached)
	<-h.release
}

type expirySeen chan struct{}

func (e expirySeen) OnAlarm(matchclock.State)  {}
func (e expirySeen) OnExpiry(matchclock.State) { close(e) }

func TestManagerDropsExpiryDeliveredAfterWinConfirmed(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC))
	reg := matchclock.NewRegistry(fc, matchclock.Settings{DurationSec: 10, AlarmThresholdSec: 5})
	t.Cleanup(reg.Close)
	src, _ := roster.FromNames([]string{"Red", "Blue", "Green"})
	sink := &recordingSink{}
	m := NewManager(reg, src, sink, Options{Clock: fc, NewID: sequenceIDs(), Coin: coinSequence(0.2)})

	hold := &heldExpiry{reached: make(chan struct{}), release: make(chan struct{})}
	seen := make(expirySeen)
	reg.AddListener(hold)
	reg.AddListener(m)
	reg.AddListener(seen)

	ctx := context.Background()
	c, _ := m.Coordinator(ctx, "pitch-1")
	if err := c.StartMatch(); err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	waitForTicker(t, fc)
	fc.Advance(10 * time.Second)
	<-hold.reached

	_, _ = c.RecordGoal(rotation.SlotA, "")
	_, _ = c.RecordGoal(rotation.SlotA, "")
	if _, err := c.ConfirmResult(ctx, ConfirmRequest{}); err != nil {
		t.Fatalf("confirm win: %v", err)
	}
	close(hold.release)
	<-seen

	st := c.Status()
	if st.Phase != PhaseIdle || st.MatchID != "" || st.Matches != 1 {
		t.Fatalf("late expiry changed the session: %+v", st)
	}
	if recs := sink.all(); len(recs) != 1 || recs[0].Kind != history.KindWin {
		t.Fatalf("records = %+v", recs)
	}
	if err := c.StartMatch(); err != nil {
		t.Fatalf("next StartMatch: %v", err)
	}
}

func TestManagerForgetsIdleTournamentsWhenClockIsEvicted(t *testing.T) {
	m, reg, fc, sink := newTestManager(t, 10, 5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done, _ := m.Coordinator(ctx, "done")
	_, _ = done.RecordGoal(rotation.SlotA, "")
	_, _ = done.RecordGoal(rotation.SlotA, "")
	if _, err := done.ConfirmResult(ctx, ConfirmRequest{}); err != nil {
		t.Fatalf("confirm done: %v", err)
	}

	open, _ := m.Coordinator(ctx, "open")
	_, _ = open.RecordGoal(rotation.SlotB, "")

	sink.setFail(errors.New("down"))
	pending, _ := m.Coordinator(ctx, "pending")
	_, _ = pending.RecordGoal(rotation.SlotA, "")
	_, _ = pending.RecordGoal(rotation.SlotA, "")
	if _, err := pending.ConfirmResult(ctx, ConfirmRequest{}); !errors.Is(err, ErrSinkFailed) {
		t.Fatalf("confirm pending error = %v", err)
	}

	for _, id := range []string{"done", "open", "pending"} {
		reg.Join(id)
	}
	reg.StartJanitor(ctx, time.Minute, time.Hour)
	waitForTicker(t, fc)
	fc.Advance(2 * time.Hour)

	eventually(t, "idle tournament dropped", func() bool {
		_, ok := m.Lookup("done")
		return !ok
	})
	for _, id := range []string{"open", "pending"} {
		if _, ok := m.Lookup(id); !ok {
			t.Fatalf("%s should survive eviction", id)
		}
	}
}
