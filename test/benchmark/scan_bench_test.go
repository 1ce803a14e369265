package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docsim/docsim/internal/checker"
	"github.com/docsim/docsim/internal/similarity"
	"github.com/docsim/docsim/pkg/config"
)

// BenchmarkVectors measures building the corpus-scoped TF-IDF vector set at
// varying corpus sizes.
func BenchmarkVectors(b *testing.B) {
	sizes := []int{10, 100, 500}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			comparator := similarity.NewComparator()
			for _, text := range synthesizeDocs(numDocs, 100) {
				comparator.AddDocument(text, "")
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				vectors := comparator.Vectors()
				_ = vectors
			}
		})
	}
}

// BenchmarkCompareAll measures the sequential all-pairs scan. Pair count
// grows quadratically: 100 documents means 4 950 comparisons.
func BenchmarkCompareAll(b *testing.B) {
	sizes := []int{10, 50, 100}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			comparator := similarity.NewComparator()
			for _, text := range synthesizeDocs(numDocs, 100) {
				comparator.AddDocument(text, "")
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				results := comparator.CompareAll()
				_ = results
			}
		})
	}
}

// BenchmarkServiceScan measures the service scan path, which shards pair
// scoring across workers.
func BenchmarkServiceScan(b *testing.B) {
	workerCounts := []int{1, 2, 4, 8}
	for _, workers := range workerCounts {
		b.Run(fmt.Sprintf("workers_%d", workers), func(b *testing.B) {
			service := checker.NewService(config.CheckerConfig{
				MaxDocumentBytes:   1 << 20,
				MaxCorpusDocuments: 1000,
				ScanWorkers:        workers,
				ScanTimeout:        time.Minute,
			}, nil, nil, nil, nil)

			ctx := context.Background()
			for _, text := range synthesizeDocs(100, 100) {
				if _, err := service.AddDocument(ctx, "", text); err != nil {
					b.Fatal(err)
				}
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				result, err := service.ScanCorpus(ctx, checker.ScanRequest{})
				if err != nil {
					b.Fatal(err)
				}
				_ = result
			}
		})
	}
}
