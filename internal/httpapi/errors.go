package httpapi

import (
	"errors"
	"net/http"

	"consult-platform/internal/catalog"
	"consult-platform/internal/history"
	"consult-platform/internal/ledger"
	"consult-platform/internal/session"
	"consult-platform/internal/video"
)

// statusFor maps domain errors to HTTP status codes. Unknown errors are 500s;
// handlers must not leak their messages to clients.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, session.ErrListingNotFound),
		errors.Is(err, catalog.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, session.ErrInvalidState),
		errors.Is(err, session.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidDuration),
		errors.Is(err, session.ErrInvalidRating),
		errors.Is(err, ledger.ErrInvalidArgument),
		errors.Is(err, history.ErrInvalidPage),
		errors.Is(err, catalog.ErrInvalidListing):
		return http.StatusBadRequest
	case errors.Is(err, video.ErrRoomCreationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) map[string]string {
	if statusFor(err) == http.StatusInternalServerError {
		return map[string]string{"error": "internal error"}
	}
	return map[string]string{"error": err.Error()}
}
