package rotation

import (
	"errors"
	"sync"
	"testing"
)

func fixedCoin(v float64) Coin {
	return func() float64 { return v }
}

func TestPendingDrawChoiceCoinSides(t *testing.T) {
	tests := []struct {
		coin float64
		want Slot
	}{
		{0.0, SlotA},
		{0.49, SlotA},
		{0.5, SlotB},
		{0.99, SlotB},
	}
	for _, tc := range tests {
		c := NewPendingDrawChoice("c1", Memory{}, fixedCoin(tc.coin))
		if c.Preview() != tc.want {
			t.Fatalf("coin %.2f preview = %v, want %v", tc.coin, c.Preview(), tc.want)
		}
	}
}

func TestPendingDrawChoiceSkipsCoinWithMemory(t *testing.T) {
	flipped := false
	c := NewPendingDrawChoice("c1", Memory{MustLeave: SlotB}, func() float64 {
		flipped = true
		return 0
	})
	if flipped {
		t.Fatal("coin must not be flipped when memory decides the draw")
	}
	if c.Preview() != SlotNone {
		t.Fatalf("preview = %v, want none", c.Preview())
	}
}

func TestPendingDrawChoiceConsumeOnce(t *testing.T) {
	c := NewPendingDrawChoice("c1", Memory{}, fixedCoin(0.1))
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slot, err := c.Consume()
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				if slot != SlotA {
					t.Errorf("consumed slot = %v, want A", slot)
				}
			} else if !errors.Is(err, ErrDrawChoiceConsumed) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("consume succeeded %d times, want 1", wins)
	}
	if !c.Consumed() {
		t.Fatal("Consumed() = false after consume")
	}
}

// Committing reuses the previewed flip even if the coin would now say otherwise.
func TestPendingDrawChoicePreviewMatchesCommit(t *testing.T) {
	calls := 0
	coin := func() float64 {
		calls++
		if calls == 1 {
			return 0.2
		}
		return 0.8
	}
	e, err := NewEngine(Assignment{SlotA: "X", SlotB: "Y", Waiting: "Z"})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	choice := e.NewDrawChoice("c1", coin)
	previewed, _ := e.Preview(OutcomeDraw, choice.Preview())

	slot, err := choice.Consume()
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	_ = coin()
	snap := e.Apply(OutcomeDraw, slot)
	if snap.Assignment != previewed {
		t.Fatalf("committed %+v, previewed %+v", snap.Assignment, previewed)
	}
	if snap.Assignment.Waiting != "X" {
		t.Fatalf("slot A occupant should leave, got %+v", snap.Assignment)
	}
}
