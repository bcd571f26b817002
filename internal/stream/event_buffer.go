package stream

import (
	"strconv"
	"sync"

	"github.com/jonboulle/clockwork"
)

// Event is one entry of a session's ordered event log.
type Event struct {
	ID        int64  `json:"event_id"`
	Event     string `json:"event"`
	SessionID string `json:"session_id"`
	ServerTS  int64  `json:"server_ts"`
	Data      any    `json:"data"`
}

func (e Event) IDString() string {
	if e.ID == 0 {
		return ""
	}
	return strconv.FormatInt(e.ID, 10)
}

// Buffer keeps the most recent events of one session and fans new events out
// to subscribers. Sends never block: a subscriber whose queue is full is
// dropped and its channel closed, so it never sees a gap in the sequence.
type Buffer struct {
	sessionID string
	clock     clockwork.Clock

	mu       sync.Mutex
	nextID   int64
	max      int
	events   []Event
	watchers map[chan Event]struct{}
	closed   bool

	onDrop func()
}

func NewBuffer(sessionID string, max int, clock clockwork.Clock) *Buffer {
	if max <= 0 {
		max = 256
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Buffer{
		sessionID: sessionID,
		clock:     clock,
		max:       max,
		watchers:  map[chan Event]struct{}{},
	}
}

// OnDrop registers a callback invoked whenever a slow subscriber is evicted.
func (b *Buffer) OnDrop(fn func()) {
	b.mu.Lock()
	b.onDrop = fn
	b.mu.Unlock()
}

func (b *Buffer) Append(event string, data any) Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return Event{}
	}
	b.nextID++
	ev := Event{
		ID:        b.nextID,
		Event:     event,
		SessionID: b.sessionID,
		ServerTS:  b.clock.Now().UnixMilli(),
		Data:      data,
	}
	b.events = append(b.events, ev)
	if len(b.events) > b.max {
		b.events = b.events[len(b.events)-b.max:]
	}
	for ch := range b.watchers {
		select {
		case ch <- ev:
		default:
			delete(b.watchers, ch)
			close(ch)
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
	return ev
}

// LastID returns the id of the most recently appended event, 0 if none.
func (b *Buffer) LastID() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextID
}

// ReplayAfter returns retained events with an id greater than last, oldest first.
func (b *Buffer) ReplayAfter(last int64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, 0, len(b.events))
	for _, ev := range b.events {
		if ev.ID > last {
			out = append(out, ev)
		}
	}
	return out
}

func (b *Buffer) Subscribe(size int) chan Event {
	if size <= 0 {
		size = 32
	}
	ch := make(chan Event, size)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.watchers[ch] = struct{}{}
	return ch
}

func (b *Buffer) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watchers[ch]; ok {
		delete(b.watchers, ch)
		close(ch)
	}
}

func (b *Buffer) Watchers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watchers)
}

func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.watchers {
		close(ch)
		delete(b.watchers, ch)
	}
}

// ParseLastEventID reads an SSE Last-Event-ID header value; anything
// unparsable means "from the start".
func ParseLastEventID(raw string) int64 {
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
