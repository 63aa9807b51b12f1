package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	t "github.com/fieldhail/dispatch-system/internal/domain/types"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return errors.New("failed to encode json")
	}

	js = append(js, '\n')

	maps.Copy(w.Header(), headers)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// Cap request bodies at 1MB.
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			return fmt.Errorf("invalid unmarshal error: %w", err)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

// GetCode maps a domain error to its HTTP status.
func GetCode(err error) int {
	switch {
	case IsOneOf(err, t.ErrValidation, t.ErrInvalidCoordinates, t.ErrScheduledInPast):
		return http.StatusBadRequest
	case IsOneOf(err, t.ErrNotAllowed):
		return http.StatusForbidden
	case IsOneOf(err, t.ErrBookingNotFound, t.ErrProfessionalNotFound, t.ErrNotFound, t.ErrTrackingNotActive):
		return http.StatusNotFound
	case IsOneOf(err, t.ErrBookingTaken, t.ErrInvalidBookingStatus, t.ErrSpecializationMismatch,
		t.ErrProfessionalUnavailable, t.ErrProfessionalUnverified):
		return http.StatusConflict
	case IsOneOf(err, t.ErrBadVerificationCode):
		return http.StatusUnprocessableEntity
	case IsOneOf(err, t.ErrDatabaseFailed, t.ErrFailedToPublishEvent):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetReason maps a domain error to its machine-readable reason code.
func GetReason(err error) string {
	switch {
	case IsOneOf(err, t.ErrBookingTaken):
		return "ALREADY_TAKEN"
	case IsOneOf(err, t.ErrSpecializationMismatch):
		return "SPECIALIZATION_MISMATCH"
	case IsOneOf(err, t.ErrProfessionalUnavailable):
		return "UNAVAILABLE"
	case IsOneOf(err, t.ErrProfessionalUnverified):
		return "UNVERIFIED"
	case IsOneOf(err, t.ErrBadVerificationCode):
		return "BAD_CODE"
	case IsOneOf(err, t.ErrInvalidBookingStatus):
		return "INVALID_STATUS"
	case IsOneOf(err, t.ErrBookingNotFound, t.ErrProfessionalNotFound, t.ErrNotFound, t.ErrTrackingNotActive):
		return "NOT_FOUND"
	case IsOneOf(err, t.ErrNotAllowed):
		return "FORBIDDEN"
	case IsOneOf(err, t.ErrValidation, t.ErrInvalidCoordinates, t.ErrScheduledInPast):
		return "VALIDATION_FAILED"
	case IsOneOf(err, t.ErrDatabaseFailed, t.ErrFailedToPublishEvent):
		return "TEMPORARILY_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}

func IsOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
