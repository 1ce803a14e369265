// Package analytics defines the event types flowing from the checker to the
// analytics service, the collectors that publish them to Kafka, and the
// aggregator that turns the stream back into queryable stats.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/docsim/docsim/pkg/kafka"
	"github.com/docsim/docsim/pkg/logger"
)

// Collector ships events from the checker's hot path to Kafka without
// blocking request handling. Track never waits: when the buffer is full
// or the collector is closing, the event is dropped and counted.
type Collector struct {
	producer  *kafka.Producer
	eventCh   chan any
	logger    *slog.Logger
	done      chan struct{}
	closing   chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

// NewCollector creates a Collector with the given channel buffer size.
func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan any, bufferSize),
		logger:   logger.WithComponent("analytics-collector"),
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
	}
}

// Start launches the publishing loop. It returns immediately; the loop runs
// until ctx is cancelled or Close is called, draining buffered events first.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event := <-c.eventCh:
				c.publish(ctx, event)
			case <-c.closing:
				c.drainRemaining()
				return
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event for publishing. It never blocks, and stays safe
// to call concurrently with Close: late events are dropped, not sent.
func (c *Collector) Track(event any) {
	select {
	case <-c.closing:
		c.countDropped()
		return
	default:
	}
	select {
	case c.eventCh <- event:
	default:
		c.countDropped()
	}
}

func (c *Collector) countDropped() {
	n := c.dropped.Add(1)
	if n%1000 == 1 {
		c.logger.Warn("analytics events dropped", "total_dropped", n)
	}
}

// Dropped reports how many events Track has discarded so far.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits for the loop to drain. The event
// channel is never closed, so a Track racing with Close cannot panic.
func (c *Collector) Close() {
	c.closeOnce.Do(func() { close(c.closing) })
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event any) {
	if err := c.producer.Publish(ctx, kafka.Event{
		Key:   eventKey(event),
		Value: event,
	}); err != nil {
		c.logger.Error("publishing analytics event failed", "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event := <-c.eventCh:
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}

// eventKey keys messages by event type so each type keeps its relative
// order within a partition.
func eventKey(event any) string {
	switch event.(type) {
	case CompareEvent, *CompareEvent:
		return string(EventCompare)
	case ScanEvent, *ScanEvent:
		return string(EventScan)
	case FlaggedPairEvent, *FlaggedPairEvent:
		return string(EventFlaggedPair)
	default:
		return "analytics"
	}
}
