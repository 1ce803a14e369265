package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/docsim/docsim/internal/checker"
	"github.com/docsim/docsim/internal/checker/handler"
	"github.com/docsim/docsim/internal/checker/router"
	"github.com/docsim/docsim/pkg/config"
	"github.com/docsim/docsim/pkg/health"
)

func testConfig() config.CheckerConfig {
	return config.CheckerConfig{
		MaxDocumentBytes:   1 << 20,
		MaxNameLength:      256,
		MaxCorpusDocuments: 100,
		ScanWorkers:        2,
		ScanTimeout:        5 * time.Second,
		DefaultThreshold:   0.0,
	}
}

func newTestServer(cfg config.CheckerConfig) http.Handler {
	svc := checker.NewService(cfg, nil, nil, nil, nil)
	return router.New(handler.New(svc), health.NewChecker(), router.Options{})
}

func doJSON(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestAddAndListDocuments(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doJSON(t, srv, "POST", "/api/v1/documents", `{"name":"essay","text":"hello similarity world"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var info checker.DocumentInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode add response: %v", err)
	}
	if info.Name != "essay" || info.Tokens != 3 || info.Position != 1 {
		t.Errorf("add response = %+v", info)
	}

	rec = doJSON(t, srv, "GET", "/api/v1/documents", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var corpus checker.CorpusInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &corpus); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if corpus.Count != 1 || corpus.TotalTokens != 3 {
		t.Errorf("list response = %+v", corpus)
	}
}

func TestAddDocumentErrors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDocumentBytes = 16
	srv := newTestServer(cfg)

	rec := doJSON(t, srv, "POST", "/api/v1/documents", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/v1/documents",
		`{"name":"big","text":"`+strings.Repeat("x", 32)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized status = %d, want 413: %s", rec.Code, rec.Body.String())
	}
}

func TestCorpusCapacityConflict(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCorpusDocuments = 1
	srv := newTestServer(cfg)

	if rec := doJSON(t, srv, "POST", "/api/v1/documents", `{"text":"first"}`); rec.Code != http.StatusCreated {
		t.Fatalf("first add status = %d", rec.Code)
	}
	rec := doJSON(t, srv, "POST", "/api/v1/documents", `{"text":"second"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("over-capacity status = %d, want 409", rec.Code)
	}
}

func TestCompareEndpoint(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doJSON(t, srv, "POST", "/api/v1/compare",
		`{"text_a":"the same exact text","text_b":"the same exact text"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("compare status = %d: %s", rec.Code, rec.Body.String())
	}
	var result checker.CompareResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode compare response: %v", err)
	}
	if result.Score < 0.999 {
		t.Errorf("score = %v, want ~1.0", result.Score)
	}
	if result.Severity != "HIGH" {
		t.Errorf("severity = %q, want HIGH", result.Severity)
	}
	if result.Advice == "" {
		t.Error("advice missing for high severity")
	}
}

func TestScanEndpoint(t *testing.T) {
	srv := newTestServer(testConfig())

	doJSON(t, srv, "POST", "/api/v1/documents", `{"name":"a","text":"the cat sat on the mat"}`)
	doJSON(t, srv, "POST", "/api/v1/documents", `{"name":"b","text":"the cat sat on the hat"}`)
	doJSON(t, srv, "POST", "/api/v1/documents", `{"name":"c","text":"unrelated content entirely"}`)

	rec := doJSON(t, srv, "POST", "/api/v1/scan", `{"threshold":0.0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("scan status = %d: %s", rec.Code, rec.Body.String())
	}
	var result checker.ScanResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode scan response: %v", err)
	}
	if result.PairsScored != 3 || result.Documents != 3 {
		t.Errorf("scan result = %+v", result)
	}
	if len(result.Pairs) != 3 {
		t.Fatalf("pairs returned = %d, want 3", len(result.Pairs))
	}
	if result.Pairs[0].DocA != "a" || result.Pairs[0].DocB != "b" {
		t.Errorf("first pair = (%s, %s), want (a, b)", result.Pairs[0].DocA, result.Pairs[0].DocB)
	}

	// An empty body scans with defaults.
	rec = doJSON(t, srv, "POST", "/api/v1/scan", "")
	if rec.Code != http.StatusOK {
		t.Errorf("empty-body scan status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/v1/scan", `{"threshold":2.0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid threshold status = %d, want 400", rec.Code)
	}
}

func TestScanEmptyCorpus(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doJSON(t, srv, "POST", "/api/v1/scan", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("scan status = %d, want 200", rec.Code)
	}
	var result checker.ScanResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode scan response: %v", err)
	}
	if len(result.Pairs) != 0 || result.PairsScored != 0 {
		t.Errorf("empty corpus scan = %+v", result)
	}
}

func TestClearCorpusEndpoint(t *testing.T) {
	srv := newTestServer(testConfig())

	doJSON(t, srv, "POST", "/api/v1/documents", `{"text":"one"}`)
	doJSON(t, srv, "POST", "/api/v1/documents", `{"text":"two"}`)

	rec := doJSON(t, srv, "DELETE", "/api/v1/documents", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	var resp struct {
		Status  string `json:"status"`
		Removed int    `json:"removed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode clear response: %v", err)
	}
	if resp.Status != "cleared" || resp.Removed != 2 {
		t.Errorf("clear response = %+v", resp)
	}

	rec = doJSON(t, srv, "GET", "/api/v1/documents", "")
	var corpus checker.CorpusInfo
	json.Unmarshal(rec.Body.Bytes(), &corpus)
	if corpus.Count != 0 {
		t.Errorf("count after clear = %d, want 0", corpus.Count)
	}
}

func TestCacheEndpointsWithoutCache(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doJSON(t, srv, "GET", "/api/v1/cache/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "disabled") {
		t.Errorf("stats body = %q, want disabled marker", rec.Body.String())
	}

	rec = doJSON(t, srv, "POST", "/api/v1/cache/invalidate", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("invalidate status = %d, want 503", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doJSON(t, srv, "GET", "/health/live", "")
	if rec.Code != http.StatusOK {
		t.Errorf("live status = %d, want 200", rec.Code)
	}
	rec = doJSON(t, srv, "GET", "/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doJSON(t, srv, "GET", "/api/v1/documents", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}

	req := httptest.NewRequest("GET", "/api/v1/documents", nil)
	req.Header.Set("X-Request-ID", "fixed-id-123")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "fixed-id-123" {
		t.Errorf("X-Request-ID = %q, want fixed-id-123", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(testConfig())

	rec := doJSON(t, srv, "GET", "/api/v1/compare", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
