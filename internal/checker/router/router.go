// Package router wires up the checker's routes and applies the middleware
// chain (RequestID → CORS → Metrics → Auth → RateLimit → Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/docsim/docsim/internal/auth/apikey"
	"github.com/docsim/docsim/internal/auth/ratelimit"
	chkhandler "github.com/docsim/docsim/internal/checker/handler"
	chkmw "github.com/docsim/docsim/internal/checker/middleware"
	"github.com/docsim/docsim/pkg/health"
	"github.com/docsim/docsim/pkg/metrics"
	pkgmw "github.com/docsim/docsim/pkg/middleware"
)

// Options carries the optional integrations. Any field may be nil (or zero),
// which disables the corresponding middleware or route group.
type Options struct {
	Admin          *chkhandler.AdminHandler
	Validator      *apikey.Validator
	Limiter        *ratelimit.Limiter
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
}

// New builds the checker HTTP handler with all routes and middleware.
//
// Route table:
//
//	POST   /api/v1/documents           → add document to corpus
//	GET    /api/v1/documents           → list corpus documents
//	DELETE /api/v1/documents           → clear corpus
//	POST   /api/v1/compare             → compare two texts
//	POST   /api/v1/scan                → scan corpus for similar pairs
//	GET    /api/v1/cache/stats         → pair cache stats
//	POST   /api/v1/cache/invalidate    → drop cached pair scores
//	POST   /api/v1/admin/keys          → create API key    (Postgres only)
//	GET    /api/v1/admin/keys          → list API keys     (Postgres only)
//	DELETE /api/v1/admin/keys/{id}     → revoke API key    (Postgres only)
//	GET    /health/live                → liveness
//	GET    /health/ready               → readiness
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Auth → RateLimit → Timeout → mux
func New(h *chkhandler.Handler, checker *health.Checker, opts Options) http.Handler {
	mux := http.NewServeMux()

	// Health (unauthenticated)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	// Corpus API
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("DELETE /api/v1/documents", h.ClearCorpus)

	// Similarity API
	mux.HandleFunc("POST /api/v1/compare", h.Compare)
	mux.HandleFunc("POST /api/v1/scan", h.Scan)

	// Cache API
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	// Admin API, only available with PostgreSQL
	if opts.Admin != nil {
		mux.HandleFunc("POST /api/v1/admin/keys", opts.Admin.CreateAPIKey)
		mux.HandleFunc("GET /api/v1/admin/keys", opts.Admin.ListAPIKeys)
		mux.HandleFunc("DELETE /api/v1/admin/keys/{id}", opts.Admin.RevokeAPIKey)
	}

	// Middleware chain, applied inside-out:
	// request → RequestID → CORS → Metrics → Auth → RateLimit → Timeout → mux
	var chain http.Handler = mux
	if opts.RequestTimeout > 0 {
		chain = pkgmw.Timeout(opts.RequestTimeout)(chain)
	}
	chain = chkmw.RateLimit(opts.Limiter)(chain)
	chain = chkmw.Auth(opts.Validator)(chain)
	if opts.Metrics != nil {
		chain = pkgmw.Metrics(opts.Metrics)(chain)
	}
	chain = pkgmw.CORS(pkgmw.DefaultCORSConfig())(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
