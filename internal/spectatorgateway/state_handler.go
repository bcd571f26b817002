package spectatorgateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tri-league/internal/matchclock"
)

// StateHandler joins the session and returns its drift-corrected state.
func StateHandler(clocks Clocks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")
		if !matchclock.ValidSessionID(sessionID) {
			writeError(w, http.StatusBadRequest, "invalid_session_id")
			return
		}
		state := clocks.Join(sessionID)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(state)
	}
}
