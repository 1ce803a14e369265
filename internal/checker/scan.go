package checker

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docsim/docsim/internal/analytics"
	"github.com/docsim/docsim/internal/checker/validator"
	"github.com/docsim/docsim/internal/severity"
	"github.com/docsim/docsim/internal/similarity"
	apperrors "github.com/docsim/docsim/pkg/errors"
	"github.com/docsim/docsim/pkg/logger"
	"github.com/docsim/docsim/pkg/resilience"
	"github.com/docsim/docsim/pkg/tracing"
)

// ScanCorpus scores every unordered document pair in the corpus against a
// single corpus-wide IDF and returns the pairs at or above the threshold.
// Fewer than two documents yields an empty result, not an error.
func (s *Service) ScanCorpus(ctx context.Context, req ScanRequest) (ScanResult, error) {
	threshold := s.cfg.DefaultThreshold
	if req.Threshold != nil {
		if err := validator.ValidateThreshold(*req.Threshold); err != nil {
			return ScanResult{}, wrapValidation(err)
		}
		threshold = *req.Threshold
	}
	if req.Limit < 0 {
		return ScanResult{}, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"limit must not be negative, got %d", req.Limit)
	}

	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "scan", "")

	// Snapshot names and vectors under the read lock. Scoring runs on the
	// snapshot so concurrent corpus writes cannot skew a scan in flight.
	_, vecSpan := tracing.StartChildSpan(ctx, "vectorize")
	s.mu.RLock()
	names := s.corpus.Names()
	vectors := s.corpus.Vectors()
	s.mu.RUnlock()
	vecSpan.SetAttr("documents", len(names))
	vecSpan.End()

	if len(vectors) < 2 {
		span.SetAttr("documents", len(names))
		span.End()
		span.Log()
		return ScanResult{
			Pairs:     []ScanPair{},
			Documents: len(names),
			Threshold: threshold,
			ElapsedMs: time.Since(start).Milliseconds(),
		}, nil
	}

	var scores []float64
	err := resilience.WithTimeout(ctx, s.cfg.ScanTimeout, "corpus-scan", func(ctx context.Context) error {
		var scoreErr error
		scores, scoreErr = s.scoreAllPairs(ctx, vectors)
		return scoreErr
	})
	if err != nil {
		span.SetAttr("error", err.Error())
		span.End()
		span.Log()
		if errors.Is(err, context.DeadlineExceeded) {
			return ScanResult{}, apperrors.Newf(apperrors.ErrTimeout, http.StatusServiceUnavailable,
				"corpus scan exceeded %v with %d documents", s.cfg.ScanTimeout, len(names))
		}
		return ScanResult{}, err
	}

	result := s.assembleScanResult(ctx, names, scores, threshold, req.Limit)
	result.ElapsedMs = time.Since(start).Milliseconds()

	span.SetAttr("documents", len(names))
	span.SetAttr("pairs_scored", result.PairsScored)
	span.SetAttr("returned", result.Returned)
	span.SetAttr("max_score", result.MaxScore)
	span.End()
	span.Log()

	// Severity counts cover every scored pair, not just those past the
	// caller's threshold, so they line up with the flagged-pair stream.
	high, moderate := countSeverities(scores)
	s.observeScan(result, time.Since(start))
	s.track(analytics.ScanEvent{
		Type:             analytics.EventScan,
		Documents:        result.Documents,
		PairsScored:      result.PairsScored,
		PairsReturned:    result.Returned,
		HighSeverity:     high,
		ModerateSeverity: moderate,
		MaxScore:         result.MaxScore,
		AvgScore:         result.AvgScore,
		Threshold:        threshold,
		LatencyMs:        result.ElapsedMs,
		RequestID:        logger.RequestID(ctx),
		Timestamp:        time.Now().UTC(),
	})

	logger.FromContext(ctx).Info("corpus scan complete",
		"documents", result.Documents,
		"pairs_scored", result.PairsScored,
		"returned", result.Returned,
		"max_score", result.MaxScore,
		"elapsed_ms", result.ElapsedMs,
	)
	return result, nil
}

// scoreAllPairs scores every unordered pair of vectors across a worker pool.
// Workers claim whole rows through an atomic counter: row i covers the pairs
// (i, i+1..n-1), written to a flat slice in (i, j) order so the output is
// deterministic regardless of which worker scored which row.
func (s *Service) scoreAllPairs(ctx context.Context, vectors []map[string]float64) ([]float64, error) {
	n := len(vectors)
	scores := make([]float64, n*(n-1)/2)

	workers := s.cfg.ScanWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > n-1 {
		workers = n - 1
	}

	var nextRow atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := int(nextRow.Add(1) - 1)
				if i >= n-1 {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				base := rowOffset(n, i)
				for j := i + 1; j < n; j++ {
					scores[base+j-i-1] = similarity.CosineSimilarity(vectors[i], vectors[j])
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// rowOffset returns the index of pair (i, i+1) in the flat score slice for a
// corpus of n documents. Row i holds n-1-i pairs, so its offset is the sum
// of the preceding row lengths.
func rowOffset(n, i int) int {
	return i*(n-1) - i*(i-1)/2
}

// assembleScanResult filters scored pairs by threshold, tallies severities,
// and emits one flagged event per pair at or above the moderate tier. The
// flagged stream is independent of the caller's threshold so analytics sees
// every notable pair even when a scan asks for a stricter cut.
func (s *Service) assembleScanResult(ctx context.Context, names []string, scores []float64, threshold float64, limit int) ScanResult {
	n := len(names)
	requestID := logger.RequestID(ctx)
	now := time.Now().UTC()

	pairs := make([]ScanPair, 0, len(scores))
	var maxScore, scoreSum float64
	idx := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			score := scores[idx]
			idx++
			scoreSum += score
			if score > maxScore {
				maxScore = score
			}

			level := severity.Classify(score)
			if level >= severity.Moderate {
				s.observeFlagged(level)
				s.trackFlagged(analytics.FlaggedPairEvent{
					Type:      analytics.EventFlaggedPair,
					DocA:      names[i],
					DocB:      names[j],
					Score:     score,
					Severity:  level.String(),
					RequestID: requestID,
					Timestamp: now,
				})
			}
			if score >= threshold {
				pairs = append(pairs, ScanPair{
					DocA:     names[i],
					DocB:     names[j],
					Score:    score,
					Severity: level.String(),
				})
			}
		}
	}

	if limit > 0 && limit < len(pairs) {
		pairs = topPairsByScore(pairs, limit)
	}

	avg := 0.0
	if len(scores) > 0 {
		avg = scoreSum / float64(len(scores))
	}
	return ScanResult{
		Pairs:       pairs,
		PairsScored: len(scores),
		Returned:    len(pairs),
		Documents:   n,
		Threshold:   threshold,
		MaxScore:    maxScore,
		AvgScore:    avg,
	}
}

func (s *Service) observeScan(result ScanResult, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ComparisonsTotal.WithLabelValues("scan").Add(float64(result.PairsScored))
	s.metrics.ComparisonDuration.WithLabelValues("scan").Observe(elapsed.Seconds())
	s.metrics.ScanPairsScored.Observe(float64(result.PairsScored))
	s.metrics.SimilarityScores.Observe(result.MaxScore)
}

func (s *Service) observeFlagged(level severity.Level) {
	if s.metrics == nil {
		return
	}
	s.metrics.FlaggedPairsTotal.WithLabelValues(level.String()).Inc()
}

func countSeverities(scores []float64) (high, moderate int) {
	for _, score := range scores {
		switch severity.Classify(score) {
		case severity.High:
			high++
		case severity.Moderate:
			moderate++
		}
	}
	return high, moderate
}
