package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/docsim/docsim/internal/auth/apikey"
	"github.com/docsim/docsim/internal/auth/ratelimit"
)

func okHandler() (http.Handler, *int) {
	calls := 0
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}), &calls
}

func TestAuthOpenMode(t *testing.T) {
	next, calls := okHandler()
	handler := Auth(nil)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/documents", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if *calls != 1 {
		t.Errorf("handler calls = %d, want 1", *calls)
	}
}

func TestAuthHealthExempt(t *testing.T) {
	next, calls := okHandler()
	handler := Auth(&apikey.Validator{})(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if *calls != 1 {
		t.Errorf("handler calls = %d, want 1", *calls)
	}
}

func TestAuthMissingKey(t *testing.T) {
	next, calls := okHandler()
	handler := Auth(&apikey.Validator{})(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/compare", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if *calls != 0 {
		t.Errorf("handler calls = %d, want 0", *calls)
	}
	if !strings.Contains(rec.Body.String(), "missing api key") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestExtractAPIKeyPriority(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/documents?api_key=from-query", nil)
	if got := extractAPIKey(r); got != "from-query" {
		t.Errorf("query key = %q, want from-query", got)
	}

	r.Header.Set("X-API-Key", "from-header")
	if got := extractAPIKey(r); got != "from-header" {
		t.Errorf("header key = %q, want from-header", got)
	}

	r.Header.Set("Authorization", "Bearer from-bearer")
	if got := extractAPIKey(r); got != "from-bearer" {
		t.Errorf("bearer key = %q, want from-bearer", got)
	}
}

func TestRateLimitEnforced(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	defer limiter.Close()

	next, _ := okHandler()
	handler := RateLimit(limiter)(next)
	info := &apikey.KeyInfo{ID: "key-1", RateLimit: 2}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/compare", nil)
		req = req.WithContext(context.WithValue(req.Context(), apiKeyInfoKey, info))
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/compare", nil)
	req = req.WithContext(context.WithValue(req.Context(), apiKeyInfoKey, info))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimitNoKeyInfoPassesThrough(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	defer limiter.Close()

	next, calls := okHandler()
	handler := RateLimit(limiter)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/documents", nil))

	if rec.Code != http.StatusOK || *calls != 1 {
		t.Errorf("status = %d, calls = %d; want 200, 1", rec.Code, *calls)
	}
}
