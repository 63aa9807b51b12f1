package wshandler

import (
	"github.com/fieldhail/dispatch-system/internal/adapter/http/handler"
	ws "github.com/fieldhail/dispatch-system/pkg/wsHub"
)

type envelope map[string]any

func errorResponse(conn *ws.Conn, message any) error {
	return conn.Send(envelope{
		"type":  "error",
		"error": message,
	})
}

func failedValidationResponse(conn *ws.Conn, errors map[string]string) error {
	return conn.Send(envelope{
		"type":  "error",
		"error": errors,
		"code":  "VALIDATION_FAILED",
	})
}

// domainErrorResponse carries the same reason codes as the HTTP error
// envelope, so clients handle failures uniformly across transports.
func domainErrorResponse(conn *ws.Conn, err error) error {
	return conn.Send(envelope{
		"type":  "error",
		"error": err.Error(),
		"code":  handler.GetReason(err),
	})
}
