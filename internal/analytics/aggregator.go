package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docsim/docsim/pkg/kafka"
	"github.com/docsim/docsim/pkg/logger"
)

// maxLatencySamples bounds the retained compare-latency window; older
// samples are overwritten once the window is full.
const maxLatencySamples = 10000

// AggregatedStats is the queryable rollup of the similarity event stream.
type AggregatedStats struct {
	TotalCompares     int64       `json:"total_compares"`
	TotalScans        int64       `json:"total_scans"`
	TotalPairsScored  int64       `json:"total_pairs_scored"`
	FlaggedHigh       int64       `json:"flagged_high"`
	FlaggedModerate   int64       `json:"flagged_moderate"`
	CacheHits         int64       `json:"cache_hits"`
	CacheMisses       int64       `json:"cache_misses"`
	AvgScore          float64     `json:"avg_score"`
	MaxScore          float64     `json:"max_score"`
	AvgLatencyMs      float64     `json:"avg_latency_ms"`
	P50LatencyMs      int64       `json:"p50_latency_ms"`
	P95LatencyMs      int64       `json:"p95_latency_ms"`
	P99LatencyMs      int64       `json:"p99_latency_ms"`
	AvgScanLatencyMs  float64     `json:"avg_scan_latency_ms"`
	ComparesPerMinute float64     `json:"compares_per_minute"`
	ScansPerMinute    float64     `json:"scans_per_minute"`
	TopFlaggedPairs   []PairCount `json:"top_flagged_pairs"`
}

// PairCount tallies how often a document pair was flagged and the highest
// score seen for it.
type PairCount struct {
	Pair     string  `json:"pair"`
	Count    int64   `json:"count"`
	MaxScore float64 `json:"max_score"`
}

type pairStat struct {
	count    int64
	maxScore float64
}

// Aggregator consumes the similarity-events topic and maintains rolling
// statistics. Counters are atomic; score and latency windows are mutexed.
type Aggregator struct {
	totalCompares   atomic.Int64
	totalScans      atomic.Int64
	pairsScored     atomic.Int64
	flaggedHigh     atomic.Int64
	flaggedModerate atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64

	mu             sync.RWMutex
	latencies      []int64
	latIdx         int
	scoreSum       float64
	scoreCount     int64
	maxScore       float64
	scanLatencySum int64
	flaggedPairs   map[string]*pairStat

	startTime time.Time
	topPairs  int

	logger *slog.Logger
}

// NewAggregator creates an Aggregator. topPairs bounds the flagged-pair
// leaderboard; non-positive means 10. Feed it by passing HandleEvent(agg)
// to a Kafka consumer.
func NewAggregator(topPairs int) *Aggregator {
	if topPairs <= 0 {
		topPairs = 10
	}
	return &Aggregator{
		latencies:    make([]int64, 0, maxLatencySamples),
		flaggedPairs: make(map[string]*pairStat),
		startTime:    time.Now(),
		topPairs:     topPairs,
		logger:       logger.WithComponent("analytics-aggregator"),
	}
}

// HandleEvent returns the Kafka message handler that feeds the aggregator.
// Undecodable messages are logged and skipped, never retried.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		var envelope struct {
			Type EventType `json:"type"`
		}
		if err := json.Unmarshal(value, &envelope); err != nil {
			agg.logger.Error("undecodable analytics event", "error", err)
			return nil
		}
		switch envelope.Type {
		case EventCompare:
			event, err := kafka.DecodeJSON[CompareEvent](value)
			if err != nil {
				agg.logger.Error("bad compare event", "error", err)
				return nil
			}
			agg.recordCompare(event)
		case EventScan:
			event, err := kafka.DecodeJSON[ScanEvent](value)
			if err != nil {
				agg.logger.Error("bad scan event", "error", err)
				return nil
			}
			agg.recordScan(event)
		case EventFlaggedPair:
			event, err := kafka.DecodeJSON[FlaggedPairEvent](value)
			if err != nil {
				agg.logger.Error("bad flagged-pair event", "error", err)
				return nil
			}
			agg.recordFlaggedPair(event)
		default:
			agg.logger.Warn("unknown analytics event type", "type", envelope.Type)
		}
		return nil
	}
}

func (a *Aggregator) recordCompare(event CompareEvent) {
	a.totalCompares.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}

	a.mu.Lock()
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latIdx] = event.LatencyMs
		a.latIdx = (a.latIdx + 1) % maxLatencySamples
	}
	a.scoreSum += event.Score
	a.scoreCount++
	if event.Score > a.maxScore {
		a.maxScore = event.Score
	}
	a.mu.Unlock()
}

func (a *Aggregator) recordScan(event ScanEvent) {
	a.totalScans.Add(1)
	a.pairsScored.Add(int64(event.PairsScored))

	a.mu.Lock()
	a.scanLatencySum += event.LatencyMs
	if event.MaxScore > a.maxScore {
		a.maxScore = event.MaxScore
	}
	a.mu.Unlock()
}

func (a *Aggregator) recordFlaggedPair(event FlaggedPairEvent) {
	switch event.Severity {
	case "HIGH":
		a.flaggedHigh.Add(1)
	case "MODERATE":
		a.flaggedModerate.Add(1)
	}

	key := event.DocA + " vs " + event.DocB
	a.mu.Lock()
	stat, ok := a.flaggedPairs[key]
	if !ok {
		stat = &pairStat{}
		a.flaggedPairs[key] = stat
	}
	stat.count++
	if event.Score > stat.maxScore {
		stat.maxScore = event.Score
	}
	a.mu.Unlock()
}

// Stats computes a point-in-time snapshot of the aggregated statistics.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalCompares:    a.totalCompares.Load(),
		TotalScans:       a.totalScans.Load(),
		TotalPairsScored: a.pairsScored.Load(),
		FlaggedHigh:      a.flaggedHigh.Load(),
		FlaggedModerate:  a.flaggedModerate.Load(),
		CacheHits:        a.cacheHits.Load(),
		CacheMisses:      a.cacheMisses.Load(),
		MaxScore:         a.maxScore,
	}
	if a.scoreCount > 0 {
		stats.AvgScore = a.scoreSum / float64(a.scoreCount)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if stats.TotalScans > 0 {
		stats.AvgScanLatencyMs = float64(a.scanLatencySum) / float64(stats.TotalScans)
	}
	stats.TopFlaggedPairs = topPairs(a.flaggedPairs, a.topPairs)

	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.ComparesPerMinute = float64(stats.TotalCompares) / elapsed
		stats.ScansPerMinute = float64(stats.TotalScans) / elapsed
	}
	return stats
}

// Restore seeds the aggregator from a persisted snapshot. Counter totals
// and the flagged-pair leaderboard carry over; the latency percentile
// window restarts empty.
func (a *Aggregator) Restore(stats AggregatedStats) {
	a.totalCompares.Store(stats.TotalCompares)
	a.totalScans.Store(stats.TotalScans)
	a.pairsScored.Store(stats.TotalPairsScored)
	a.flaggedHigh.Store(stats.FlaggedHigh)
	a.flaggedModerate.Store(stats.FlaggedModerate)
	a.cacheHits.Store(stats.CacheHits)
	a.cacheMisses.Store(stats.CacheMisses)

	a.mu.Lock()
	a.maxScore = stats.MaxScore
	a.scoreCount = stats.TotalCompares
	a.scoreSum = stats.AvgScore * float64(stats.TotalCompares)
	a.scanLatencySum = int64(stats.AvgScanLatencyMs * float64(stats.TotalScans))
	for _, pc := range stats.TopFlaggedPairs {
		a.flaggedPairs[pc.Pair] = &pairStat{count: pc.Count, maxScore: pc.MaxScore}
	}
	a.mu.Unlock()

	a.logger.Info("aggregator state restored",
		"total_compares", stats.TotalCompares,
		"total_scans", stats.TotalScans,
	)
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topPairs(stats map[string]*pairStat, n int) []PairCount {
	result := make([]PairCount, 0, len(stats))
	for pair, stat := range stats {
		result = append(result, PairCount{Pair: pair, Count: stat.count, MaxScore: stat.maxScore})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].MaxScore > result[j].MaxScore
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
