package handler

import "net/http"

func errorResponse(w http.ResponseWriter, status int, message any) {
	env := envelope{"error": message}

	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(500)
	}
}

// domainErrorResponse maps a domain error to its status and reason code and
// writes the standard error shape.
func domainErrorResponse(w http.ResponseWriter, err error) {
	env := envelope{
		"error": err.Error(),
		"code":  GetReason(err),
	}
	if writeErr := writeJSON(w, GetCode(err), env, nil); writeErr != nil {
		w.WriteHeader(500)
	}
}

// failedValidationResponse returns 422: the request parsed, but its contents
// cannot be processed as-is.
func failedValidationResponse(w http.ResponseWriter, errors map[string]string) {
	env := envelope{
		"error": errors,
		"code":  "VALIDATION_FAILED",
	}
	if err := writeJSON(w, http.StatusUnprocessableEntity, env, nil); err != nil {
		w.WriteHeader(500)
	}
}

func internalErrorResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusInternalServerError, message)
}
