package types

import "errors"

var (
	ErrBookingNotFound      = errors.New("booking not found")
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrNotFound             = errors.New("requested item not found")

	// ErrBookingTaken is returned to the losers of a concurrent assign race:
	// the booking is no longer available, not a failure of the caller.
	ErrBookingTaken            = errors.New("booking no longer available")
	ErrSpecializationMismatch  = errors.New("professional does not serve this category")
	ErrProfessionalUnavailable = errors.New("professional is not available")
	ErrProfessionalUnverified  = errors.New("professional is not verified")
	ErrInvalidBookingStatus    = errors.New("booking is not in the required status")
	ErrBadVerificationCode     = errors.New("verification code mismatch")

	ErrValidation         = errors.New("invalid request")
	ErrInvalidCoordinates = errors.New("coordinates out of range")
	ErrScheduledInPast    = errors.New("scheduled time must be in the future")
	ErrNotAllowed         = errors.New("actor is not allowed to perform this operation")
	ErrTrackingNotActive  = errors.New("no active tracking session for booking")

	// ErrDatabaseFailed marks transient storage failures so callers can tell
	// a retryable infrastructure error from a state conflict.
	ErrDatabaseFailed = errors.New("database operation failed")

	ErrFailedToPublishEvent = errors.New("failed to publish notify event")
)
