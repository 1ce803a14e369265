package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/docsim/docsim/pkg/config"
	"github.com/docsim/docsim/pkg/kafka"
)

// testProducer points at a port that refuses connections, so publishes fail
// fast and only get logged.
func testProducer() *kafka.Producer {
	return kafka.NewProducer(config.KafkaConfig{Brokers: []string{"localhost:1"}}, "test-events")
}

func TestTrackAfterCloseDrops(t *testing.T) {
	p := testProducer()
	defer p.Close()

	c := NewCollector(p, 4)
	c.Start(context.Background())
	c.Close()

	c.Track(CompareEvent{Type: EventCompare, Score: 0.5, Timestamp: time.Now()})
	if got := c.Dropped(); got != 1 {
		t.Fatalf("Dropped = %d, want 1", got)
	}
}

func TestCloseConcurrentWithTrack(t *testing.T) {
	p := testProducer()
	defer p.Close()

	c := NewCollector(p, 2)
	c.Start(context.Background())

	// Close while other goroutines are still tracking. Late events must be
	// dropped, never sent on a closed channel.
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 100; j++ {
				c.Track(ScanEvent{Type: EventScan, PairsScored: j, Timestamp: time.Now()})
			}
		}()
	}
	close(start)
	c.Close()
	wg.Wait()
}

func TestCloseIsIdempotent(t *testing.T) {
	p := testProducer()
	defer p.Close()

	c := NewCollector(p, 4)
	c.Start(context.Background())
	c.Close()
	c.Close()
}

func TestTrackDropsWhenBufferFull(t *testing.T) {
	p := testProducer()
	defer p.Close()

	// The publishing loop is never started, so the buffer only fills.
	c := NewCollector(p, 1)
	c.Track(CompareEvent{Type: EventCompare})
	c.Track(CompareEvent{Type: EventCompare})
	if got := c.Dropped(); got != 1 {
		t.Fatalf("Dropped = %d, want 1", got)
	}
}
