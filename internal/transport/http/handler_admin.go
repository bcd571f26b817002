package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"github.com/rs/zerolog/log"

	"tri-league/internal/matchflow"
)

// Pinger reports backend health; nil means no database is configured.
type Pinger interface {
	Ping(ctx context.Context) error
}

type AdminHandlers struct {
	db      Pinger
	clocks  Clocks
	matches *matchflow.Manager
}

func NewAdminHandlers(db Pinger, clocks Clocks, matches *matchflow.Manager) *AdminHandlers {
	return &AdminHandlers{db: db, clocks: clocks, matches: matches}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.db == nil {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "none"})
			return
		}
		if err := h.db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up"})
	}
}

type sessionSummary struct {
	SessionID        string          `json:"session_id"`
	RemainingSeconds int             `json:"remaining_seconds"`
	Running          bool            `json:"running"`
	AlarmFired       bool            `json:"alarm_fired"`
	Phase            matchflow.Phase `json:"phase,omitempty"`
	Matches          int             `json:"matches"`
	Undelivered      int             `json:"undelivered"`
}

// Sessions lists every session known to the clock registry or the match manager.
func (h *AdminHandlers) Sessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := map[string]struct{}{}
		for _, id := range h.clocks.Sessions() {
			ids[id] = struct{}{}
		}
		for _, id := range h.matches.Sessions() {
			ids[id] = struct{}{}
		}
		items := make([]sessionSummary, 0, len(ids))
		for id := range ids {
			item := sessionSummary{SessionID: id}
			if st, ok := h.clocks.Snapshot(id); ok {
				item.RemainingSeconds = st.RemainingSeconds
				item.Running = st.Running
				item.AlarmFired = st.AlarmFired
			}
			if c, ok := h.matches.Lookup(id); ok {
				status := c.Status()
				item.Phase = status.Phase
				item.Matches = status.Matches
				item.Undelivered = status.Undelivered
			}
			items = append(items, item)
		}
		sort.Slice(items, func(i, j int) bool { return items[i].SessionID < items[j].SessionID })
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

// RetryAll redelivers undelivered match records of every session.
func (h *AdminHandlers) RetryAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		delivered, err := h.matches.RetryUndelivered(r.Context())
		if err != nil {
			log.Warn().Err(err).Int("delivered", delivered).Str("request_id", requestID(r)).Msg("history_retry_all_failed")
			status, code := matchflow.MapError(err)
			writeJSON(w, status, map[string]any{"error": code, "delivered": delivered})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"delivered": delivered})
	}
}
