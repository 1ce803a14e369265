// Package checker implements the similarity service around one in-memory
// corpus session: document intake, two-text comparison, and the all-pairs
// corpus scan.
package checker

// AddDocumentRequest is the JSON body accepted by the document endpoint.
// An empty name gets a positional "Document N" name.
type AddDocumentRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// DocumentInfo describes one corpus document.
type DocumentInfo struct {
	Name     string `json:"name"`
	Tokens   int    `json:"tokens"`
	Position int    `json:"position"`
}

// CorpusInfo is the corpus listing returned by GET /api/v1/documents.
type CorpusInfo struct {
	Documents   []DocumentInfo `json:"documents"`
	Count       int            `json:"count"`
	TotalTokens int            `json:"total_tokens"`
}

// CompareRequest is the JSON body for a two-text comparison.
type CompareRequest struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

// CompareResult is the outcome of a two-text comparison.
type CompareResult struct {
	Score    float64 `json:"score"`
	Severity string  `json:"severity"`
	Advice   string  `json:"advice,omitempty"`
	CacheHit bool    `json:"cache_hit"`
	TokensA  int     `json:"tokens_a"`
	TokensB  int     `json:"tokens_b"`
}

// ScanRequest tunes an all-pairs corpus scan. A nil threshold uses the
// configured default; limit 0 returns every pair at or above the threshold.
type ScanRequest struct {
	Threshold *float64 `json:"threshold"`
	Limit     int      `json:"limit"`
}

// ScanPair is one scored document pair from a corpus scan.
type ScanPair struct {
	DocA     string  `json:"doc_a"`
	DocB     string  `json:"doc_b"`
	Score    float64 `json:"score"`
	Severity string  `json:"severity"`
}

// ScanResult is the outcome of an all-pairs corpus scan. Pairs keep corpus
// insertion order (first index, then second) unless a limit was set, in
// which case they are the top-scoring pairs in descending score order.
type ScanResult struct {
	Pairs       []ScanPair `json:"pairs"`
	PairsScored int        `json:"pairs_scored"`
	Returned    int        `json:"returned"`
	Documents   int        `json:"documents"`
	Threshold   float64    `json:"threshold"`
	MaxScore    float64    `json:"max_score"`
	AvgScore    float64    `json:"avg_score"`
	ElapsedMs   int64      `json:"elapsed_ms"`
}
