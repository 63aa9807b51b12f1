package middleware

import (
	"net/http"

	wrap "github.com/fieldhail/dispatch-system/pkg/logger/wrapper"
	"github.com/fieldhail/dispatch-system/pkg/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID propagates the caller's request id, or mints one, and carries it
// through the context so logs and published messages correlate.
func (m *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			if id, err := uuid.New(); err == nil {
				requestID = id.String()
			}
		}

		w.Header().Set(requestIDHeader, requestID)
		ctx := wrap.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
