package history

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps records in process. It is the history backend when no
// database is configured.
type Memory struct {
	mu      sync.Mutex
	records []MatchRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RecordMatch(_ context.Context, rec MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == rec.ID {
			return nil
		}
	}
	m.records = append(m.records, rec)
	return nil
}

// ListMatches returns the newest records first.
func (m *Memory) ListMatches(_ context.Context, sessionID string, limit, offset int) ([]MatchRecord, error) {
	m.mu.Lock()
	out := make([]MatchRecord, 0, len(m.records))
	for _, r := range m.records {
		if sessionID == "" || r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ConcludedAt.After(out[j].ConcludedAt)
	})
	if offset > len(out) {
		return []MatchRecord{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Standings(ctx context.Context, sessionID string) ([]Row, error) {
	records, err := m.ListMatches(ctx, sessionID, 0, 0)
	if err != nil {
		return nil, err
	}
	return Standings(records), nil
}
