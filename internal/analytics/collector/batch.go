// Package collector provides a batch-oriented publisher for flagged-pair
// events. A single corpus scan can flag hundreds of pairs at once; batching
// them keeps the per-pair stream off the checker's hot path.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/docsim/docsim/internal/analytics"
	"github.com/docsim/docsim/pkg/kafka"
	"github.com/docsim/docsim/pkg/logger"
)

// BatchCollector accumulates flagged-pair events and flushes them to Kafka
// when the batch reaches a configurable size or after a time interval,
// whichever comes first.
type BatchCollector struct {
	producer      *kafka.Producer
	mu            sync.Mutex
	buffer        []kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}
}

// NewBatchCollector creates a BatchCollector. Non-positive parameters fall
// back to 100 events / 5 seconds.
func NewBatchCollector(producer *kafka.Producer, batchSize int, flushInterval time.Duration) *BatchCollector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &BatchCollector{
		producer:      producer,
		buffer:        make([]kafka.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger.WithComponent("batch-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the background flush loop. It returns immediately; the
// loop runs until ctx is cancelled, performing a final bounded flush.
func (bc *BatchCollector) Start(ctx context.Context) {
	go func() {
		defer close(bc.done)
		ticker := time.NewTicker(bc.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				bc.flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				bc.flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	bc.logger.Info("batch collector started",
		"batch_size", bc.batchSize,
		"flush_interval", bc.flushInterval,
	)
}

// TrackFlagged buffers one flagged-pair event. Reaching the batch size
// triggers an asynchronous flush.
func (bc *BatchCollector) TrackFlagged(event analytics.FlaggedPairEvent) {
	bc.mu.Lock()
	bc.buffer = append(bc.buffer, kafka.Event{
		Key:   string(analytics.EventFlaggedPair),
		Value: event,
	})
	shouldFlush := len(bc.buffer) >= bc.batchSize
	bc.mu.Unlock()

	if shouldFlush {
		go bc.flush(context.Background())
	}
}

// Close waits for the background flush loop to finish.
func (bc *BatchCollector) Close() {
	<-bc.done
}

// BufferLen returns the current number of buffered events.
func (bc *BatchCollector) BufferLen() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.buffer)
}

func (bc *BatchCollector) flush(ctx context.Context) {
	bc.mu.Lock()
	if len(bc.buffer) == 0 {
		bc.mu.Unlock()
		return
	}
	batch := bc.buffer
	bc.buffer = make([]kafka.Event, 0, bc.batchSize)
	bc.mu.Unlock()

	if err := bc.producer.PublishBatch(ctx, batch); err != nil {
		bc.logger.Error("batch flush failed",
			"batch_size", len(batch),
			"error", err,
		)
		// Re-queue, dropping the tail when repeated failures pile up.
		bc.mu.Lock()
		bc.buffer = append(batch, bc.buffer...)
		if max := bc.batchSize * 3; len(bc.buffer) > max {
			dropped := len(bc.buffer) - max
			bc.buffer = bc.buffer[:max]
			bc.logger.Warn("buffer overflow, events dropped", "dropped", dropped)
		}
		bc.mu.Unlock()
		return
	}
	bc.logger.Debug("batch flushed", "events", len(batch))
}
