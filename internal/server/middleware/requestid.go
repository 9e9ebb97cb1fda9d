// Package middleware contains HTTP middleware for the jobrelay server.
package middleware

import (
	"net/http"

	"jobrelay/internal/logger"

	"github.com/google/uuid"
)

// requestIDHeader is the inbound/outbound correlation header.
const requestIDHeader = "X-Request-Id"

// RequestID attaches a correlation ID to every request. An inbound
// X-Request-Id is kept; otherwise a fresh one is generated. The ID goes into
// the context for logger.FromContext and is echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), requestID)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
