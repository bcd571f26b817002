package store_test

import (
	"errors"
	"testing"
	"time"

	"tri-league/internal/history"
	"tri-league/internal/store"
	"tri-league/internal/testutil"
)

func matchRecord(id, session string, number int, concluded time.Time) history.MatchRecord {
	return history.MatchRecord{
		ID:          id,
		SessionID:   session,
		MatchNumber: number,
		SlotA:       "Red",
		SlotB:       "Blue",
		Waiting:     "Green",
		ScoreA:      2,
		ScoreB:      1,
		Outcome:     "slot_a_wins",
		Kind:        history.KindWin,
		Trigger:     "threshold",
		PointsA:     3,
		Winner:      "Red",
		StartedAt:   concluded.Add(-5 * time.Minute),
		ConcludedAt: concluded,
		NextSlotA:   "Red",
		NextSlotB:   "Green",
		NextWaiting: "Blue",
	}
}

func TestRecordAndListMatches(t *testing.T) {
	st, ctx := testutil.OpenTestStore(t)

	base := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	first := matchRecord(store.NewIDAt(base), "pitch-1", 1, base)
	second := matchRecord(store.NewIDAt(base.Add(time.Minute)), "pitch-1", 2, base.Add(10*time.Minute))
	other := matchRecord(store.NewIDAt(base.Add(2*time.Minute)), "pitch-2", 1, base.Add(5*time.Minute))
	for _, rec := range []history.MatchRecord{first, second, other} {
		if err := st.RecordMatch(ctx, rec); err != nil {
			t.Fatalf("record %s: %v", rec.ID, err)
		}
	}
	if err := st.RecordMatch(ctx, first); err != nil {
		t.Fatalf("re-record should be a no-op, got %v", err)
	}

	got, err := st.ListMatches(ctx, "pitch-1", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("unexpected list: %+v", got)
	}
	if !got[1].ConcludedAt.Equal(base) || got[1].Trigger != "threshold" {
		t.Fatalf("unexpected round trip: %+v", got[1])
	}

	all, err := st.ListMatches(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 matches across sessions, got %d", len(all))
	}
}

func TestGetMatchNotFound(t *testing.T) {
	st, ctx := testutil.OpenTestStore(t)

	if _, err := st.GetMatch(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetMatch error = %v, want ErrNotFound", err)
	}
}

func TestStandingsFromStore(t *testing.T) {
	st, ctx := testutil.OpenTestStore(t)

	base := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	draw := matchRecord(store.NewID(), "pitch-1", 2, base.Add(time.Hour))
	draw.SlotA, draw.SlotB, draw.Waiting = "Red", "Green", "Blue"
	draw.ScoreA, draw.ScoreB = 1, 1
	draw.Outcome, draw.Kind, draw.Trigger, draw.Winner = "draw", history.KindDraw, "expiry", ""
	draw.PointsA, draw.PointsB = 1, 1
	for _, rec := range []history.MatchRecord{matchRecord(store.NewID(), "pitch-1", 1, base), draw} {
		if err := st.RecordMatch(ctx, rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	rows, err := st.Standings(ctx, "pitch-1")
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(rows) != 3 || rows[0].Team != "Red" || rows[0].Points != 4 {
		t.Fatalf("unexpected standings: %+v", rows)
	}
}
