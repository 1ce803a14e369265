package analytics

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"
)

func feed(t *testing.T, agg *Aggregator, events ...any) {
	t.Helper()
	handle := HandleEvent(agg)
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			t.Fatalf("marshal event: %v", err)
		}
		if err := handle(context.Background(), nil, data); err != nil {
			t.Fatalf("handle event: %v", err)
		}
	}
}

func TestAggregatorRecordsCompares(t *testing.T) {
	agg := NewAggregator(10)
	feed(t, agg,
		CompareEvent{Type: EventCompare, Score: 0.2, CacheHit: false, LatencyMs: 4, Timestamp: time.Now()},
		CompareEvent{Type: EventCompare, Score: 0.9, CacheHit: true, LatencyMs: 1, Timestamp: time.Now()},
		CompareEvent{Type: EventCompare, Score: 0.4, CacheHit: false, LatencyMs: 2, Timestamp: time.Now()},
	)

	stats := agg.Stats()
	if stats.TotalCompares != 3 {
		t.Fatalf("TotalCompares = %d, want 3", stats.TotalCompares)
	}
	if stats.CacheHits != 1 || stats.CacheMisses != 2 {
		t.Fatalf("cache hits/misses = %d/%d, want 1/2", stats.CacheHits, stats.CacheMisses)
	}
	if math.Abs(stats.AvgScore-0.5) > 1e-9 {
		t.Fatalf("AvgScore = %v, want 0.5", stats.AvgScore)
	}
	if stats.MaxScore != 0.9 {
		t.Fatalf("MaxScore = %v, want 0.9", stats.MaxScore)
	}
	if stats.P50LatencyMs == 0 && stats.AvgLatencyMs == 0 {
		t.Fatal("latency stats missing")
	}
}

func TestAggregatorRecordsScans(t *testing.T) {
	agg := NewAggregator(10)
	feed(t, agg,
		ScanEvent{Type: EventScan, Documents: 4, PairsScored: 6, MaxScore: 0.75, LatencyMs: 10, Timestamp: time.Now()},
		ScanEvent{Type: EventScan, Documents: 5, PairsScored: 10, MaxScore: 0.3, LatencyMs: 30, Timestamp: time.Now()},
	)

	stats := agg.Stats()
	if stats.TotalScans != 2 {
		t.Fatalf("TotalScans = %d, want 2", stats.TotalScans)
	}
	if stats.TotalPairsScored != 16 {
		t.Fatalf("TotalPairsScored = %d, want 16", stats.TotalPairsScored)
	}
	if stats.MaxScore != 0.75 {
		t.Fatalf("MaxScore = %v, want 0.75", stats.MaxScore)
	}
	if math.Abs(stats.AvgScanLatencyMs-20) > 1e-9 {
		t.Fatalf("AvgScanLatencyMs = %v, want 20", stats.AvgScanLatencyMs)
	}
}

func TestAggregatorTopFlaggedPairs(t *testing.T) {
	agg := NewAggregator(2)
	flag := func(a, b string, score float64, severity string) FlaggedPairEvent {
		return FlaggedPairEvent{
			Type: EventFlaggedPair, DocA: a, DocB: b,
			Score: score, Severity: severity, Timestamp: time.Now(),
		}
	}
	feed(t, agg,
		flag("essay-1", "essay-2", 0.85, "HIGH"),
		flag("essay-1", "essay-2", 0.91, "HIGH"),
		flag("essay-1", "essay-2", 0.88, "HIGH"),
		flag("notes-a", "notes-b", 0.55, "MODERATE"),
		flag("draft-x", "draft-y", 0.60, "MODERATE"),
		flag("draft-x", "draft-y", 0.52, "MODERATE"),
	)

	stats := agg.Stats()
	if stats.FlaggedHigh != 3 || stats.FlaggedModerate != 3 {
		t.Fatalf("flagged high/moderate = %d/%d, want 3/3", stats.FlaggedHigh, stats.FlaggedModerate)
	}
	if len(stats.TopFlaggedPairs) != 2 {
		t.Fatalf("top pairs = %d entries, want 2", len(stats.TopFlaggedPairs))
	}
	first := stats.TopFlaggedPairs[0]
	if first.Pair != "essay-1 vs essay-2" || first.Count != 3 {
		t.Fatalf("top pair = %+v, want essay-1 vs essay-2 with count 3", first)
	}
	if first.MaxScore != 0.91 {
		t.Fatalf("top pair max score = %v, want 0.91", first.MaxScore)
	}
	if stats.TopFlaggedPairs[1].Pair != "draft-x vs draft-y" {
		t.Fatalf("second pair = %q, want draft-x vs draft-y", stats.TopFlaggedPairs[1].Pair)
	}
}

func TestAggregatorSkipsUndecodableEvents(t *testing.T) {
	agg := NewAggregator(10)
	handle := HandleEvent(agg)
	if err := handle(context.Background(), nil, []byte("not json")); err != nil {
		t.Fatalf("undecodable event should not error, got %v", err)
	}
	if err := handle(context.Background(), nil, []byte(`{"type":"mystery"}`)); err != nil {
		t.Fatalf("unknown event type should not error, got %v", err)
	}
	if got := agg.Stats().TotalCompares; got != 0 {
		t.Fatalf("TotalCompares = %d, want 0", got)
	}
}

func TestAggregatorRestore(t *testing.T) {
	agg := NewAggregator(10)
	agg.Restore(AggregatedStats{
		TotalCompares:    100,
		TotalScans:       5,
		TotalPairsScored: 300,
		FlaggedHigh:      7,
		CacheHits:        40,
		CacheMisses:      60,
		AvgScore:         0.25,
		MaxScore:         0.95,
		TopFlaggedPairs: []PairCount{
			{Pair: "a vs b", Count: 4, MaxScore: 0.9},
		},
	})

	feed(t, agg, CompareEvent{Type: EventCompare, Score: 0.25, LatencyMs: 1, Timestamp: time.Now()})

	stats := agg.Stats()
	if stats.TotalCompares != 101 {
		t.Fatalf("TotalCompares = %d, want 101", stats.TotalCompares)
	}
	if stats.MaxScore != 0.95 {
		t.Fatalf("MaxScore = %v, want 0.95", stats.MaxScore)
	}
	if math.Abs(stats.AvgScore-0.25) > 1e-9 {
		t.Fatalf("AvgScore = %v, want 0.25 to survive restore", stats.AvgScore)
	}
	if len(stats.TopFlaggedPairs) != 1 || stats.TopFlaggedPairs[0].Count != 4 {
		t.Fatalf("restored top pairs = %+v", stats.TopFlaggedPairs)
	}
}
