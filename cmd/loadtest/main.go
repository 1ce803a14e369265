package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL      string
	Concurrency  int
	Duration     time.Duration
	OverlapRatio float64
	ScanEvery    int
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	scanRequests  atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

// wordBank is the vocabulary the generator draws document text from.
var wordBank = []string{
	"plagiarism", "detection", "document", "similarity", "cosine",
	"frequency", "vector", "corpus", "token", "weight",
	"analysis", "report", "student", "paper", "citation",
	"paragraph", "sentence", "source", "original", "copied",
	"threshold", "score", "review", "submission", "archive",
	"chapter", "abstract", "reference", "quote", "summary",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the checker service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	overlap := flag.Float64("overlap", 0.5, "fraction of shared vocabulary between generated text pairs")
	scanEvery := flag.Int("scan-every", 50, "issue one corpus scan per N compare requests (0 disables)")
	flag.Parse()

	if *overlap < 0 || *overlap > 1 {
		fmt.Fprintln(os.Stderr, "error: --overlap must be in [0,1]")
		os.Exit(1)
	}

	cfg := Config{
		BaseURL:      *baseURL,
		Concurrency:  *concurrency,
		Duration:     *duration,
		OverlapRatio: *overlap,
		ScanEvery:    *scanEvery,
	}

	fmt.Println("=== Checker Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Overlap:     %.2f\n", cfg.OverlapRatio)
	fmt.Println()

	stats := runLoadTest(cfg)
	printReport(stats, cfg.Duration)
}

// generatePair builds two documents that share roughly overlap of their
// vocabulary, so the measured similarity scores spread across the tiers
// instead of clustering at zero.
func generatePair(rng *rand.Rand, overlap float64) (string, string) {
	const docWords = 40
	shared := int(float64(docWords) * overlap)

	common := make([]string, shared)
	for i := range common {
		common[i] = wordBank[rng.Intn(len(wordBank))]
	}

	build := func() string {
		words := make([]string, 0, docWords)
		words = append(words, common...)
		for len(words) < docWords {
			words = append(words, wordBank[rng.Intn(len(wordBank))])
		}
		rng.Shuffle(len(words), func(i, j int) {
			words[i], words[j] = words[j], words[i]
		})
		return strings.Join(words, " ")
	}
	return build(), build()
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(workerID) + time.Now().UnixNano()))
			requests := 0

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				requests++

				if cfg.ScanEvery > 0 && requests%cfg.ScanEvery == 0 {
					stats.scanRequests.Add(1)
					doPost(ctx, client, stats, cfg.BaseURL+"/api/v1/scan", map[string]any{
						"threshold": 0.5,
					})
					continue
				}

				textA, textB := generatePair(rng, cfg.OverlapRatio)
				doPost(ctx, client, stats, cfg.BaseURL+"/api/v1/compare", map[string]any{
					"text_a": textA,
					"text_b": textB,
				})
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func doPost(ctx context.Context, client *http.Client, stats *Stats, url string, body map[string]any) {
	payload, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("marshaling request body: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		stats.RecordRequest(duration, 0, err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		CacheHit bool `json:"cache_hit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.CacheHit {
		stats.cacheHits.Add(1)
	}
	io.Copy(io.Discard, resp.Body)

	stats.RecordRequest(duration, resp.StatusCode, nil)
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)
	fmt.Printf("Scans:           %d\n", stats.scanRequests.Load())
	fmt.Printf("Cache Hits:      %d\n", stats.cacheHits.Load())

	if total > 0 {
		errorRate := float64(errors) / float64(total) * 100
		fmt.Printf("Error Rate:      %.2f%%\n", errorRate)
		rps := float64(total) / duration.Seconds()
		fmt.Printf("Requests/sec:    %.2f\n", rps)
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])

		var sumSquared float64
		avgFloat := float64(avg)
		for _, l := range latencies {
			diff := float64(l) - avgFloat
			sumSquared += diff * diff
		}
		stddev := time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))
		fmt.Printf("StdDev: %s\n", stddev)
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		count := stats.statusCodes[code].Load()
		fmt.Printf("  %d: %d\n", code, count)
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
