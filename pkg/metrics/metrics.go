// Package metrics defines the Prometheus metric collectors used across the
// docsim services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	ComparisonsTotal     *prometheus.CounterVec
	ComparisonDuration   *prometheus.HistogramVec
	SimilarityScores     prometheus.Histogram
	FlaggedPairsTotal    *prometheus.CounterVec
	ScanPairsScored      prometheus.Histogram
	CorpusDocuments      prometheus.Gauge
	CorpusTokens         prometheus.Gauge
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ComparisonsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "comparisons_total",
				Help: "Total similarity comparisons by mode (pair, scan).",
			},
			[]string{"mode"},
		),
		ComparisonDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "comparison_duration_seconds",
				Help:    "Similarity computation latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"mode"},
		),
		SimilarityScores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "similarity_score",
				Help:    "Distribution of computed similarity scores.",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			},
		),
		FlaggedPairsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flagged_pairs_total",
				Help: "Document pairs flagged at or above a severity tier (high, moderate).",
			},
			[]string{"severity"},
		),
		ScanPairsScored: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scan_pairs_scored",
				Help:    "Number of pairs scored per corpus scan.",
				Buckets: []float64{1, 10, 45, 100, 500, 1000, 5000, 10000},
			},
		),
		CorpusDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_documents",
				Help: "Documents currently held in the comparison corpus.",
			},
		),
		CorpusTokens: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_tokens",
				Help: "Total tokens across all corpus documents.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of pair-score cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of pair-score cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ComparisonsTotal,
		m.ComparisonDuration,
		m.SimilarityScores,
		m.FlaggedPairsTotal,
		m.ScanPairsScored,
		m.CorpusDocuments,
		m.CorpusTokens,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
