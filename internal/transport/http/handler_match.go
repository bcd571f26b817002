package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"tri-league/internal/matchflow"
	"tri-league/internal/rotation"
)

type MatchHandlers struct {
	matches *matchflow.Manager
}

func NewMatchHandlers(matches *matchflow.Manager) *MatchHandlers {
	return &MatchHandlers{matches: matches}
}

type goalRequest struct {
	Side   rotation.Slot `json:"side"`
	Scorer string        `json:"scorer"`
}

type previewRequest struct {
	Outcome *rotation.Outcome `json:"outcome"`
}

type confirmRequest struct {
	Outcome      *rotation.Outcome `json:"outcome"`
	DrawChoiceID string            `json:"draw_choice_id"`
}

type confirmResponse struct {
	SessionID string              `json:"session_id"`
	Next      rotation.Assignment `json:"next"`
	Recorded  bool                `json:"recorded"`
	Warning   string              `json:"warning,omitempty"`
}

func (h *MatchHandlers) Goal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricGoalSubmitTotal.Add(1)
		var body goalRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			metricGoalSubmitErrors.Add(1)
			if errors.Is(err, rotation.ErrInvalidSlot) {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_side")
				return
			}
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		st, err := h.matches.RecordGoal(r.Context(), chi.URLParam(r, "session_id"), body.Side, body.Scorer)
		if err != nil {
			metricGoalSubmitErrors.Add(1)
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func (h *MatchHandlers) Preview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body previewRequest
		if !decodeOptionalBody(w, r, &body) {
			return
		}
		c, err := h.matches.Coordinator(r.Context(), chi.URLParam(r, "session_id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		preview, err := c.OpenConfirmation(matchflow.PreviewRequest{Outcome: body.Outcome})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, preview)
	}
}

// Confirm commits the concluded match. A history failure still returns the
// committed assignment with recorded=false and a 202 status.
func (h *MatchHandlers) Confirm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricConfirmTotal.Add(1)
		var body confirmRequest
		if !decodeOptionalBody(w, r, &body) {
			metricConfirmErrors.Add(1)
			return
		}
		sessionID := chi.URLParam(r, "session_id")
		c, err := h.matches.Coordinator(r.Context(), sessionID)
		if err != nil {
			metricConfirmErrors.Add(1)
			writeDomainError(w, err)
			return
		}
		next, err := c.ConfirmResult(r.Context(), matchflow.ConfirmRequest{
			Outcome:      body.Outcome,
			DrawChoiceID: body.DrawChoiceID,
		})
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, confirmResponse{SessionID: sessionID, Next: next, Recorded: true})
		case errors.Is(err, matchflow.ErrSinkFailed):
			metricConfirmErrors.Add(1)
			writeJSON(w, http.StatusAccepted, confirmResponse{SessionID: sessionID, Next: next, Warning: err.Error()})
		default:
			metricConfirmErrors.Add(1)
			writeDomainError(w, err)
		}
	}
}

func (h *MatchHandlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := h.matches.Coordinator(r.Context(), chi.URLParam(r, "session_id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c.Status())
	}
}

func (h *MatchHandlers) Retry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")
		c, ok := h.matches.Lookup(sessionID)
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "delivered": 0, "remaining": 0})
			return
		}
		delivered, err := c.RetryUndelivered(r.Context())
		remaining := c.Status().Undelivered
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Str("request_id", requestID(r)).Msg("history_retry_failed")
			status, code := matchflow.MapError(err)
			writeJSON(w, status, map[string]any{"error": code, "delivered": delivered, "remaining": remaining})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "delivered": delivered, "remaining": remaining})
	}
}

// decodeOptionalBody accepts an empty body as the zero request.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, rotation.ErrInvalidOutcome) {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_outcome")
			return false
		}
		WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code := matchflow.MapError(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", code).Msg("request_failed")
	}
	WriteHTTPError(w, status, code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestID(r *http.Request) string {
	return chimw.GetReqID(r.Context())
}
