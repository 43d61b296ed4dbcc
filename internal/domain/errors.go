package domain

import "errors"

// Sentinel errors for every failure a service can surface. The HTTP layer is
// the only place these are translated to transport status codes.
var (
	// Authentication
	ErrUnauthenticated = errors.New("authentication failed")
	ErrMissingTenant   = errors.New("no tenant could be resolved")

	// Authorization
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNotSessionCaregiver = errors.New("caller is not the session caregiver")

	// Not found
	ErrTagNotFound      = errors.New("nfc tag not found or inactive")
	ErrSessionNotFound  = errors.New("care session not found")
	ErrFeedbackNotFound = errors.New("feedback not found")
	ErrPatientNotFound  = errors.New("patient not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrTenantNotFound   = errors.New("tenant not found")

	// Conflict
	ErrDuplicateActiveSession = errors.New("patient already has an active session")
	ErrFeedbackExists         = errors.New("feedback already exists for session")

	// Validation
	ErrSessionNotInProgress = errors.New("session is not in progress")
	ErrInvalidStatus        = errors.New("invalid session status")
	ErrInvalidSessionTimes  = errors.New("check-out must be after check-in")
	ErrInvalidRating        = errors.New("rating must be between 1 and 3")
	ErrInvalidCursor        = errors.New("invalid pagination cursor")
	ErrInvalidPeriod        = errors.New("invalid report period")
)
