package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/docsim/docsim/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request an ID, honoring an incoming X-Request-ID
// header when present, and echoes it on the response. The ID travels in the
// request context so logger.FromContext picks it up.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := logger.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request's ID, or "" when the RequestID
// middleware did not run.
func GetRequestID(r *http.Request) string {
	return logger.RequestID(r.Context())
}
