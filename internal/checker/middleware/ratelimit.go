package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/docsim/docsim/internal/auth/ratelimit"
)

// RateLimit returns middleware that enforces per-key rate limits. It reads
// the KeyInfo set by Auth and applies the key's configured rate_limit.
// Requests without key info pass through; Auth rejects unauthenticated
// requests, and in open mode there is no key to meter by.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			info := GetKeyInfo(r.Context())
			if info == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining := limiter.Allow(info.ID, info.RateLimit)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.RateLimit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
