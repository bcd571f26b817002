package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tri-league/internal/history"
)

type HistoryHandlers struct {
	reader history.Reader
}

func NewHistoryHandlers(reader history.Reader) *HistoryHandlers {
	return &HistoryHandlers{reader: reader}
}

func (h *HistoryHandlers) Matches() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricHistoryQueryTotal.Add(1)
		limit, offset := ParsePagination(r)
		items, err := h.reader.ListMatches(r.Context(), chi.URLParam(r, "session_id"), limit, offset)
		if err != nil {
			metricHistoryQueryErrors.Add(1)
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if items == nil {
			items = []history.MatchRecord{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func (h *HistoryHandlers) Standings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricHistoryQueryTotal.Add(1)
		sessionID := chi.URLParam(r, "session_id")
		rows, err := h.reader.Standings(r.Context(), sessionID)
		if err != nil {
			metricHistoryQueryErrors.Add(1)
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if rows == nil {
			rows = []history.Row{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "standings": rows})
	}
}
