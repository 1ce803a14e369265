package checker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/docsim/docsim/internal/analytics"
	"github.com/docsim/docsim/pkg/config"
	apperrors "github.com/docsim/docsim/pkg/errors"
)

func testConfig() config.CheckerConfig {
	return config.CheckerConfig{
		MaxDocumentBytes:   1 << 20,
		MaxNameLength:      256,
		MaxCorpusDocuments: 100,
		ScanWorkers:        4,
		ScanTimeout:        5 * time.Second,
		DefaultThreshold:   0.0,
	}
}

type captureTracker struct {
	events []any
}

func (c *captureTracker) Track(event any) {
	c.events = append(c.events, event)
}

type captureFlagged struct {
	events []analytics.FlaggedPairEvent
}

func (c *captureFlagged) TrackFlagged(event analytics.FlaggedPairEvent) {
	c.events = append(c.events, event)
}

func TestAddDocumentAutoName(t *testing.T) {
	svc := NewService(testConfig(), nil, nil, nil, nil)
	ctx := context.Background()

	info, err := svc.AddDocument(ctx, "", "the quick brown fox")
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if info.Name != "Document 1" {
		t.Errorf("auto name = %q, want %q", info.Name, "Document 1")
	}
	if info.Tokens != 4 {
		t.Errorf("tokens = %d, want 4", info.Tokens)
	}
	if info.Position != 1 {
		t.Errorf("position = %d, want 1", info.Position)
	}

	info, err = svc.AddDocument(ctx, "essay", "some other text here")
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if info.Name != "essay" {
		t.Errorf("name = %q, want %q", info.Name, "essay")
	}
	if info.Position != 2 {
		t.Errorf("position = %d, want 2", info.Position)
	}
}

func TestAddDocumentValidation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxNameLength = 8
	cfg.MaxDocumentBytes = 16
	svc := NewService(cfg, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.AddDocument(ctx, "a name that is far too long", "ok")
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("long name error = %v, want ErrInvalidInput", err)
	}

	_, err = svc.AddDocument(ctx, "ok", strings.Repeat("x", 17))
	if !errors.Is(err, apperrors.ErrDocumentTooLarge) {
		t.Errorf("oversized text error = %v, want ErrDocumentTooLarge", err)
	}
	if got := apperrors.HTTPStatusCode(err); got != 413 {
		t.Errorf("oversized text status = %d, want 413", got)
	}
}

func TestAddDocumentCorpusFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCorpusDocuments = 2
	svc := NewService(cfg, nil, nil, nil, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.AddDocument(ctx, "", "some text"); err != nil {
			t.Fatalf("AddDocument %d: %v", i, err)
		}
	}
	_, err := svc.AddDocument(ctx, "", "one too many")
	if !errors.Is(err, apperrors.ErrCorpusFull) {
		t.Fatalf("over-capacity error = %v, want ErrCorpusFull", err)
	}
	if got := apperrors.HTTPStatusCode(err); got != 409 {
		t.Errorf("over-capacity status = %d, want 409", got)
	}
}

func TestListDocuments(t *testing.T) {
	svc := NewService(testConfig(), nil, nil, nil, nil)
	ctx := context.Background()

	if info := svc.ListDocuments(ctx); info.Count != 0 || len(info.Documents) != 0 {
		t.Fatalf("empty corpus listing = %+v", info)
	}

	svc.AddDocument(ctx, "first", "one two three")
	svc.AddDocument(ctx, "", "four five")

	info := svc.ListDocuments(ctx)
	if info.Count != 2 {
		t.Fatalf("count = %d, want 2", info.Count)
	}
	if info.TotalTokens != 5 {
		t.Errorf("total tokens = %d, want 5", info.TotalTokens)
	}
	if info.Documents[0].Name != "first" || info.Documents[0].Position != 1 {
		t.Errorf("first document = %+v", info.Documents[0])
	}
	if info.Documents[1].Name != "Document 2" || info.Documents[1].Position != 2 {
		t.Errorf("second document = %+v", info.Documents[1])
	}
}

func TestClearCorpus(t *testing.T) {
	svc := NewService(testConfig(), nil, nil, nil, nil)
	ctx := context.Background()

	svc.AddDocument(ctx, "", "alpha beta")
	svc.AddDocument(ctx, "", "gamma delta")

	if removed := svc.ClearCorpus(ctx); removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if info := svc.ListDocuments(ctx); info.Count != 0 {
		t.Fatalf("count after clear = %d, want 0", info.Count)
	}

	// Auto-assigned names restart after a clear.
	info, err := svc.AddDocument(ctx, "", "epsilon")
	if err != nil {
		t.Fatalf("AddDocument after clear: %v", err)
	}
	if info.Name != "Document 1" {
		t.Errorf("name after clear = %q, want %q", info.Name, "Document 1")
	}
}

func TestComparePairIdentical(t *testing.T) {
	svc := NewService(testConfig(), nil, nil, nil, nil)

	result, err := svc.ComparePair(context.Background(), "the quick brown fox", "the quick brown fox")
	if err != nil {
		t.Fatalf("ComparePair: %v", err)
	}
	if result.Score < 0.999 {
		t.Errorf("identical score = %v, want ~1.0", result.Score)
	}
	if result.Severity != "HIGH" {
		t.Errorf("severity = %q, want HIGH", result.Severity)
	}
	if result.Advice != "Potential plagiarism detected!" {
		t.Errorf("advice = %q", result.Advice)
	}
	if result.TokensA != 4 || result.TokensB != 4 {
		t.Errorf("tokens = %d/%d, want 4/4", result.TokensA, result.TokensB)
	}
	if result.CacheHit {
		t.Error("cache hit reported with no cache configured")
	}
}

func TestComparePairDisjoint(t *testing.T) {
	svc := NewService(testConfig(), nil, nil, nil, nil)

	result, err := svc.ComparePair(context.Background(), "alpha beta gamma", "delta epsilon zeta")
	if err != nil {
		t.Fatalf("ComparePair: %v", err)
	}
	if result.Score != 0 {
		t.Errorf("disjoint score = %v, want 0", result.Score)
	}
	if result.Severity != "LOW" {
		t.Errorf("severity = %q, want LOW", result.Severity)
	}
	if result.Advice != "" {
		t.Errorf("advice = %q, want empty", result.Advice)
	}
}

func TestComparePairDoesNotTouchCorpus(t *testing.T) {
	svc := NewService(testConfig(), nil, nil, nil, nil)
	ctx := context.Background()

	svc.AddDocument(ctx, "", "resident document")
	if _, err := svc.ComparePair(ctx, "one text", "another text"); err != nil {
		t.Fatalf("ComparePair: %v", err)
	}
	if info := svc.ListDocuments(ctx); info.Count != 1 {
		t.Errorf("corpus count after compare = %d, want 1", info.Count)
	}
}

func TestComparePairValidation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDocumentBytes = 8
	svc := NewService(cfg, nil, nil, nil, nil)

	_, err := svc.ComparePair(context.Background(), strings.Repeat("y", 9), "ok")
	if !errors.Is(err, apperrors.ErrDocumentTooLarge) {
		t.Errorf("oversized error = %v, want ErrDocumentTooLarge", err)
	}
}

func TestComparePairTracksEvent(t *testing.T) {
	tracker := &captureTracker{}
	svc := NewService(testConfig(), nil, tracker, nil, nil)

	if _, err := svc.ComparePair(context.Background(), "shared words here", "shared words here"); err != nil {
		t.Fatalf("ComparePair: %v", err)
	}
	if len(tracker.events) != 1 {
		t.Fatalf("tracked events = %d, want 1", len(tracker.events))
	}
	event, ok := tracker.events[0].(analytics.CompareEvent)
	if !ok {
		t.Fatalf("event type = %T, want CompareEvent", tracker.events[0])
	}
	if event.Type != analytics.EventCompare {
		t.Errorf("event.Type = %q", event.Type)
	}
	if event.Severity != "HIGH" {
		t.Errorf("event.Severity = %q, want HIGH", event.Severity)
	}
	if event.TokensA != 3 || event.TokensB != 3 {
		t.Errorf("event tokens = %d/%d, want 3/3", event.TokensA, event.TokensB)
	}
	if event.Timestamp.IsZero() {
		t.Error("event timestamp not set")
	}
}

func TestCacheStatsDisabled(t *testing.T) {
	svc := NewService(testConfig(), nil, nil, nil, nil)
	hits, misses, enabled := svc.CacheStats()
	if enabled {
		t.Error("cache reported enabled with none configured")
	}
	if hits != 0 || misses != 0 {
		t.Errorf("stats = %d/%d, want 0/0", hits, misses)
	}
}
