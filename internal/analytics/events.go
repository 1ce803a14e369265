package analytics

import "time"

type EventType string

const (
	EventCompare     EventType = "compare"
	EventScan        EventType = "scan"
	EventFlaggedPair EventType = "flagged_pair"
)

// CompareEvent records one two-document comparison served by the checker.
type CompareEvent struct {
	Type      EventType `json:"type"`
	Score     float64   `json:"score"`
	Severity  string    `json:"severity"`
	CacheHit  bool      `json:"cache_hit"`
	TokensA   int       `json:"tokens_a"`
	TokensB   int       `json:"tokens_b"`
	LatencyMs int64     `json:"latency_ms"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanEvent records one all-pairs corpus scan.
type ScanEvent struct {
	Type             EventType `json:"type"`
	Documents        int       `json:"documents"`
	PairsScored      int       `json:"pairs_scored"`
	PairsReturned    int       `json:"pairs_returned"`
	HighSeverity     int       `json:"high_severity"`
	ModerateSeverity int       `json:"moderate_severity"`
	MaxScore         float64   `json:"max_score"`
	AvgScore         float64   `json:"avg_score"`
	Threshold        float64   `json:"threshold"`
	LatencyMs        int64     `json:"latency_ms"`
	RequestID        string    `json:"request_id"`
	Timestamp        time.Time `json:"timestamp"`
}

// FlaggedPairEvent records one scanned pair that scored at or above the
// moderate severity tier. Scans can flag many pairs at once, so these are
// published in batches rather than through the hot-path collector.
type FlaggedPairEvent struct {
	Type      EventType `json:"type"`
	DocA      string    `json:"doc_a"`
	DocB      string    `json:"doc_b"`
	Score     float64   `json:"score"`
	Severity  string    `json:"severity"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
