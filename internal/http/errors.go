package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"care-session-service/internal/domain"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

// writeError is the single place domain failures become HTTP statuses.
// Anything outside the taxonomy is a 500 and gets logged as such.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrMissingTenant):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrPermissionDenied),
		errors.Is(err, domain.ErrNotSessionCaregiver):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrTagNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrFeedbackNotFound),
		errors.Is(err, domain.ErrPatientNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrTenantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateActiveSession),
		errors.Is(err, domain.ErrFeedbackExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrSessionNotInProgress),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidSessionTimes),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrInvalidCursor),
		errors.Is(err, domain.ErrInvalidPeriod):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		writeJSON(w, status, errorResponse{Detail: "internal server error"})
		return
	}
	writeJSON(w, status, errorResponse{Detail: err.Error()})
}
