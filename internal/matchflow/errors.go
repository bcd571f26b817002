package matchflow

import (
	"errors"
	"net/http"

	"tri-league/internal/roster"
	"tri-league/internal/rotation"
	"tri-league/internal/store"
)

// MapError returns the HTTP status and wire code for a coordinator error.
func MapError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidSide), errors.Is(err, rotation.ErrInvalidSlot):
		return http.StatusBadRequest, "invalid_side"
	case errors.Is(err, rotation.ErrInvalidOutcome):
		return http.StatusBadRequest, "invalid_outcome"
	case errors.Is(err, ErrMatchNotRunning):
		return http.StatusConflict, "match_not_running"
	case errors.Is(err, ErrMatchNotConcluded):
		return http.StatusConflict, "match_not_concluded"
	case errors.Is(err, ErrNothingToConfirm):
		return http.StatusConflict, "nothing_to_confirm"
	case errors.Is(err, ErrOutcomeMismatch):
		return http.StatusConflict, "outcome_mismatch"
	case errors.Is(err, ErrFinalizationInProgress):
		return http.StatusConflict, "finalization_in_progress"
	case errors.Is(err, ErrDrawPreviewRequired):
		return http.StatusConflict, "draw_preview_required"
	case errors.Is(err, rotation.ErrDrawChoiceConsumed):
		return http.StatusConflict, "draw_choice_consumed"
	case errors.Is(err, ErrSinkFailed):
		return http.StatusBadGateway, "history_unavailable"
	case errors.Is(err, roster.ErrInvalidRoster):
		return http.StatusInternalServerError, "roster_unavailable"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
