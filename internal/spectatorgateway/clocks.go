package spectatorgateway

import (
	"encoding/json"
	"net/http"

	"tri-league/internal/matchclock"
	"tri-league/internal/stream"
)

// Clocks is the part of the clock registry observers read from.
type Clocks interface {
	Join(sessionID string) matchclock.State
	Events(sessionID string) *stream.Buffer
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}
