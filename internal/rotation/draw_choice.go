package rotation

import (
	"math/rand/v2"
	"sync"
)

// Coin returns a value in [0, 1).
type Coin func() float64

var DefaultCoin Coin = rand.Float64

// PendingDrawChoice carries the coin flip shown to an operator for a
// first-match draw so the commit applies the same slot. It can be consumed once.
type PendingDrawChoice struct {
	ID          string
	precomputed Slot

	mu       sync.Mutex
	consumed bool
}

// NewPendingDrawChoice flips coin only when memory is empty; otherwise the
// choice carries SlotNone and the memory decides the draw.
func NewPendingDrawChoice(id string, m Memory, coin Coin) *PendingDrawChoice {
	c := &PendingDrawChoice{ID: id}
	if m.Empty() {
		if coin == nil {
			coin = DefaultCoin
		}
		if coin() < 0.5 {
			c.precomputed = SlotA
		} else {
			c.precomputed = SlotB
		}
	}
	return c
}

// Preview returns the precomputed slot without consuming it.
func (c *PendingDrawChoice) Preview() Slot {
	return c.precomputed
}

func (c *PendingDrawChoice) Consume() (Slot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumed {
		return SlotNone, ErrDrawChoiceConsumed
	}
	c.consumed = true
	return c.precomputed, nil
}

func (c *PendingDrawChoice) Consumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consumed
}
