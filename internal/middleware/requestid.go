package middleware

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"merch-inventory-dashboard/pkg/uid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// RequestIDKey is the context key for request ID.
const RequestIDKey contextKey = "request_id"

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an id. A well-formed incoming
// X-Request-ID is kept; anything else is replaced.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !uid.ValidRequestID(requestID) {
			requestID = uid.RequestID()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// Log returns a log entry tagged with the component and the request id.
func Log(ctx context.Context, component string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"component":  component,
		"request_id": GetRequestID(ctx),
	})
}
