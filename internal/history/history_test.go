package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func sampleRecord(id string, concluded time.Time) MatchRecord {
	return MatchRecord{
		ID:          id,
		SessionID:   "pitch-1",
		MatchNumber: 1,
		SlotA:       "Red",
		SlotB:       "Blue",
		Waiting:     "Green",
		ScoreA:      2,
		ScoreB:      0,
		Outcome:     "slot_a_wins",
		Kind:        KindWin,
		Trigger:     "threshold",
		PointsA:     3,
		Winner:      "Red",
		ConcludedAt: concluded,
		NextSlotA:   "Red",
		NextSlotB:   "Green",
		NextWaiting: "Blue",
	}
}

func TestMemoryListNewestFirstAndIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	base := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"m1", "m2", "m3"} {
		if err := mem.RecordMatch(ctx, sampleRecord(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}
	_ = mem.RecordMatch(ctx, sampleRecord("m2", base))

	all, err := mem.ListMatches(ctx, "pitch-1", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "m3" || all[2].ID != "m1" {
		t.Fatalf("unexpected list: %+v", all)
	}
	page, _ := mem.ListMatches(ctx, "pitch-1", 1, 1)
	if len(page) != 1 || page[0].ID != "m2" {
		t.Fatalf("unexpected page: %+v", page)
	}
	other, _ := mem.ListMatches(ctx, "pitch-9", 10, 0)
	if len(other) != 0 {
		t.Fatalf("expected no records for other session, got %d", len(other))
	}
	empty, _ := mem.ListMatches(ctx, "pitch-1", 10, 50)
	if len(empty) != 0 {
		t.Fatalf("offset past end should be empty, got %d", len(empty))
	}
}

func TestMemoryStandings(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	base := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	_ = mem.RecordMatch(ctx, sampleRecord("m1", base))
	other := sampleRecord("m2", base)
	other.SessionID = "pitch-2"
	_ = mem.RecordMatch(ctx, other)

	rows, err := mem.Standings(ctx, "pitch-1")
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(rows) != 3 || rows[0].Team != "Red" || rows[0].Points != 3 || rows[0].Played != 1 {
		t.Fatalf("unexpected standings: %+v", rows)
	}
}

func TestFanoutPrimaryErrorIsReturned(t *testing.T) {
	boom := errors.New("db down")
	d := NewDispatcher(DispatchConfig{}, clockwork.NewFakeClock(), NamedSink{Name: "count", Sink: NewMemory()})
	f := &Fanout{
		Primary: SinkFunc(func(context.Context, MatchRecord) error { return boom }),
		Outputs: d,
	}
	if err := f.RecordMatch(context.Background(), sampleRecord("m1", time.Now())); !errors.Is(err, boom) {
		t.Fatalf("RecordMatch error = %v, want %v", err, boom)
	}
	if n := len(d.jobs); n != 0 {
		t.Fatalf("%d outputs enqueued after primary failure", n)
	}
}

func TestFanoutDoesNotWaitForOutputs(t *testing.T) {
	mem := NewMemory()
	release := make(chan struct{})
	defer close(release)
	slow := SinkFunc(func(ctx context.Context, _ MatchRecord) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := NewDispatcher(DispatchConfig{Workers: 1, Timeout: time.Minute}, clockwork.NewFakeClock(), NamedSink{Name: "slow", Sink: slow})
	d.Start(ctx)
	f := &Fanout{Primary: mem, Outputs: d}

	done := make(chan error, 1)
	go func() { done <- f.RecordMatch(context.Background(), sampleRecord("m1", time.Now())) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RecordMatch error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RecordMatch blocked on a slow output")
	}
	got, _ := mem.ListMatches(context.Background(), "", 0, 0)
	if len(got) != 1 {
		t.Fatalf("primary should hold the record, got %d", len(got))
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func blockUntilTimers(t *testing.T, fc *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, n); err != nil {
		t.Fatalf("waiting for %d timers: %v", n, err)
	}
}

func TestDispatcherRetriesFailedWebhookPost(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	fc := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := NewDispatcher(DispatchConfig{Workers: 1, RetryMax: 3, RetryBase: time.Second, Timeout: time.Second}, fc,
		NamedSink{Name: "webhook", Sink: NewWebhook(srv.URL, time.Second)})
	d.Start(ctx)
	delivered := metricOutputDelivered.Value()

	d.Enqueue(sampleRecord("m1", time.Now()))
	blockUntilTimers(t, fc, 1)
	if n := hits.Load(); n != 1 {
		t.Fatalf("posts before backoff = %d, want 1", n)
	}

	fc.Advance(time.Second)
	waitUntil(t, "redelivery", func() bool { return metricOutputDelivered.Value() == delivered+1 })
	if n := hits.Load(); n != 2 {
		t.Fatalf("posts = %d, want 2", n)
	}
}

func TestDispatcherDropsAfterRetryMax(t *testing.T) {
	var calls atomic.Int32
	failing := SinkFunc(func(context.Context, MatchRecord) error {
		calls.Add(1)
		return errors.New("nats down")
	})
	fc := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := NewDispatcher(DispatchConfig{Workers: 1, RetryMax: 2, RetryBase: time.Second}, fc, NamedSink{Name: "nats", Sink: failing})
	d.Start(ctx)
	dropped := metricOutputDropped.Value()

	d.Enqueue(sampleRecord("m1", time.Now()))
	blockUntilTimers(t, fc, 1)
	fc.Advance(time.Second)
	waitUntil(t, "second attempt", func() bool { return calls.Load() == 2 })
	blockUntilTimers(t, fc, 1)
	fc.Advance(2 * time.Second)

	waitUntil(t, "drop", func() bool { return metricOutputDropped.Value() == dropped+1 })
	if n := calls.Load(); n != 3 {
		t.Fatalf("attempts = %d, want 3", n)
	}
}

func TestWebhookPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, time.Second)
	rec := sampleRecord("m1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err := wh.RecordMatch(context.Background(), rec); err != nil {
		t.Fatalf("RecordMatch: %v", err)
	}
	if got["content"] != "Match 1: Red wins" {
		t.Fatalf("unexpected content: %v", got["content"])
	}
	embeds, ok := got["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("unexpected embeds: %#v", got["embeds"])
	}
	embed := embeds[0].(map[string]any)
	if embed["color"] != float64(colorWin) {
		t.Fatalf("unexpected color: %v", embed["color"])
	}
	if embed["timestamp"] != "2025-01-01T00:00:00Z" {
		t.Fatalf("unexpected timestamp: %v", embed["timestamp"])
	}
	fields := embed["fields"].([]any)
	score := fields[0].(map[string]any)
	if score["value"] != "Red 2 - 0 Blue" {
		t.Fatalf("unexpected score field: %v", score["value"])
	}
}

func TestWebhookNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, time.Second).RecordMatch(context.Background(), sampleRecord("m1", time.Now()))
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error, got %v", err)
	}
}
