package checker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/docsim/docsim/internal/analytics"
	"github.com/docsim/docsim/internal/checker/cache"
	"github.com/docsim/docsim/internal/checker/validator"
	"github.com/docsim/docsim/internal/severity"
	"github.com/docsim/docsim/internal/similarity"
	"github.com/docsim/docsim/pkg/config"
	apperrors "github.com/docsim/docsim/pkg/errors"
	"github.com/docsim/docsim/pkg/logger"
	"github.com/docsim/docsim/pkg/metrics"
	"github.com/docsim/docsim/pkg/tracing"
)

// EventTracker publishes hot-path analytics events. Satisfied by
// analytics.Collector; nil disables event publishing.
type EventTracker interface {
	Track(event any)
}

// FlaggedTracker batches per-pair flagged events produced by scans.
// Satisfied by collector.BatchCollector; nil disables the stream.
type FlaggedTracker interface {
	TrackFlagged(event analytics.FlaggedPairEvent)
}

// Service owns the corpus session and serves every similarity operation.
// The similarity core is unsynchronized; all locking lives here.
type Service struct {
	mu     sync.RWMutex
	corpus *similarity.Comparator

	cfg       config.CheckerConfig
	cache     *cache.PairCache
	collector EventTracker
	flagged   FlaggedTracker
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewService creates a Service. pairCache, collector, flagged, and m may
// each be nil; the corresponding integration is then disabled.
func NewService(cfg config.CheckerConfig, pairCache *cache.PairCache, collector EventTracker, flagged FlaggedTracker, m *metrics.Metrics) *Service {
	return &Service{
		corpus:    similarity.NewComparator(),
		cfg:       cfg,
		cache:     pairCache,
		collector: collector,
		flagged:   flagged,
		metrics:   m,
		logger:    logger.WithComponent("checker"),
	}
}

// AddDocument validates and adds one document to the corpus.
func (s *Service) AddDocument(ctx context.Context, name, text string) (DocumentInfo, error) {
	if err := validator.ValidateDocument(name, text, s.cfg); err != nil {
		return DocumentInfo{}, wrapValidation(err)
	}

	s.mu.Lock()
	if s.cfg.MaxCorpusDocuments > 0 && s.corpus.Len() >= s.cfg.MaxCorpusDocuments {
		s.mu.Unlock()
		return DocumentInfo{}, apperrors.Newf(apperrors.ErrCorpusFull, http.StatusConflict,
			"corpus limit of %d documents reached", s.cfg.MaxCorpusDocuments)
	}
	assigned := s.corpus.AddDocument(text, name)
	position := s.corpus.Len()
	tokens := s.corpus.TokenCount(position - 1)
	totalTokens := s.corpus.TotalTokens()
	s.mu.Unlock()

	s.setCorpusGauges(position, totalTokens)
	logger.FromContext(ctx).Info("document added",
		"name", assigned,
		"tokens", tokens,
		"corpus_size", position,
	)
	return DocumentInfo{Name: assigned, Tokens: tokens, Position: position}, nil
}

// ListDocuments returns the current corpus listing.
func (s *Service) ListDocuments(ctx context.Context) CorpusInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := s.corpus.Names()
	infos := make([]DocumentInfo, len(names))
	total := 0
	for i, name := range names {
		tc := s.corpus.TokenCount(i)
		infos[i] = DocumentInfo{Name: name, Tokens: tc, Position: i + 1}
		total += tc
	}
	return CorpusInfo{Documents: infos, Count: len(names), TotalTokens: total}
}

// ClearCorpus removes every document and reports how many were removed.
// Auto-assigned names restart at "Document 1".
func (s *Service) ClearCorpus(ctx context.Context) int {
	s.mu.Lock()
	removed := s.corpus.Len()
	s.corpus.Clear()
	s.mu.Unlock()

	s.setCorpusGauges(0, 0)
	logger.FromContext(ctx).Info("corpus cleared", "documents_removed", removed)
	return removed
}

// ComparePair scores two texts in isolation. The corpus is not consulted
// and not modified; identical pairs are served from the score cache when
// one is configured.
func (s *Service) ComparePair(ctx context.Context, textA, textB string) (CompareResult, error) {
	if err := validator.ValidateCompare(textA, textB, s.cfg); err != nil {
		return CompareResult{}, wrapValidation(err)
	}

	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "compare", "")

	compute := func() float64 { return similarity.Compare(textA, textB) }
	var score float64
	cacheHit := false
	if s.cache != nil {
		score, cacheHit = s.cache.GetOrCompute(ctx, textA, textB, compute)
	} else {
		score = compute()
	}
	elapsed := time.Since(start)

	level := severity.Classify(score)
	result := CompareResult{
		Score:    score,
		Severity: level.String(),
		Advice:   level.Advice(),
		CacheHit: cacheHit,
		TokensA:  len(similarity.Tokenize(textA)),
		TokensB:  len(similarity.Tokenize(textB)),
	}

	span.SetAttr("score", score)
	span.SetAttr("severity", level.String())
	span.SetAttr("cache_hit", cacheHit)
	span.End()
	span.Log()

	s.observeCompare("pair", score, elapsed, cacheHit)
	s.track(analytics.CompareEvent{
		Type:      analytics.EventCompare,
		Score:     score,
		Severity:  level.String(),
		CacheHit:  cacheHit,
		TokensA:   result.TokensA,
		TokensB:   result.TokensB,
		LatencyMs: elapsed.Milliseconds(),
		RequestID: logger.RequestID(ctx),
		Timestamp: time.Now().UTC(),
	})
	return result, nil
}

// CacheStats reports pair-cache hits and misses; zeros when no cache is
// configured.
func (s *Service) CacheStats() (hits, misses int64, enabled bool) {
	if s.cache == nil {
		return 0, 0, false
	}
	hits, misses = s.cache.Stats()
	return hits, misses, true
}

// InvalidateCache drops every cached pair score. Calling it with no cache
// configured is a no-op.
func (s *Service) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

func (s *Service) track(event any) {
	if s.collector != nil {
		s.collector.Track(event)
	}
}

func (s *Service) trackFlagged(event analytics.FlaggedPairEvent) {
	if s.flagged != nil {
		s.flagged.TrackFlagged(event)
	}
}

func (s *Service) setCorpusGauges(documents, tokens int) {
	if s.metrics == nil {
		return
	}
	s.metrics.CorpusDocuments.Set(float64(documents))
	s.metrics.CorpusTokens.Set(float64(tokens))
}

func (s *Service) observeCompare(mode string, score float64, elapsed time.Duration, cacheHit bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.ComparisonsTotal.WithLabelValues(mode).Inc()
	s.metrics.ComparisonDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	s.metrics.SimilarityScores.Observe(score)
	if s.cache == nil {
		return
	}
	if cacheHit {
		s.metrics.CacheHitsTotal.Inc()
	} else {
		s.metrics.CacheMissesTotal.Inc()
	}
}

// wrapValidation maps validator errors onto the service error surface.
func wrapValidation(err error) error {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		if verr.TooLarge {
			return apperrors.New(apperrors.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge, verr.Error())
		}
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, verr.Error())
	}
	return err
}
