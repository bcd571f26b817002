package rotation

import "sync"

// Engine is the single owner of a tournament's assignment and memory.
type Engine struct {
	mu      sync.Mutex
	current Assignment
	memory  Memory
	matches int
}

func NewEngine(initial Assignment) (*Engine, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &Engine{current: initial}, nil
}

// Snapshot is a read-only copy of the engine state.
type Snapshot struct {
	Assignment Assignment `json:"assignment"`
	Memory     Memory     `json:"memory"`
	Matches    int        `json:"matches"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{Assignment: e.current, Memory: e.memory, Matches: e.matches}
}

// Preview reports what Apply would produce without changing state.
func (e *Engine) Preview(outcome Outcome, precomputed Slot) (Assignment, Memory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Advance(e.current, e.memory, outcome, precomputed)
}

func (e *Engine) Apply(outcome Outcome, precomputed Slot) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current, e.memory = Advance(e.current, e.memory, outcome, precomputed)
	e.matches++
	return Snapshot{Assignment: e.current, Memory: e.memory, Matches: e.matches}
}

// NewDrawChoice opens a draw choice against the current memory.
func (e *Engine) NewDrawChoice(id string, coin Coin) *PendingDrawChoice {
	e.mu.Lock()
	m := e.memory
	e.mu.Unlock()
	return NewPendingDrawChoice(id, m, coin)
}
