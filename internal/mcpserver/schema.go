package mcpserver

import (
	"fmt"
	"strings"

	"tri-league/internal/rotation"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

func clampPagination(limit, offset, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parseOutcome reads an optional outcome argument; "" means none given.
func parseOutcome(v string) (*rotation.Outcome, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	o, err := rotation.ParseOutcome(v)
	if err != nil {
		return nil, fmt.Errorf("outcome must be slot_a_wins|slot_b_wins|draw: %w", err)
	}
	return &o, nil
}
