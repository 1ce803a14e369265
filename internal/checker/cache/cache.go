// Package cache provides the Redis-backed pair-score cache for stateless
// comparisons. Keys are content digests, so identical text pairs hit the
// cache regardless of argument order or how often the corpus changes.
// Corpus scans never use this cache: scan scores depend on corpus-wide IDF
// weights, which change with every added document.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/docsim/docsim/pkg/logger"
	pkgredis "github.com/docsim/docsim/pkg/redis"
	"github.com/docsim/docsim/pkg/resilience"
)

const keyPrefix = "docsim:pair:"

// PairCache caches comparison scores keyed by the digests of both texts.
// Redis failures trip a circuit breaker and degrade to recomputation; the
// score math is cheap enough that a dead cache must never fail a request.
type PairCache struct {
	client  *pkgredis.Client
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a PairCache writing entries with the given TTL. The breaker
// guards every Redis round trip.
func New(client *pkgredis.Client, ttl time.Duration, breaker *resilience.CircuitBreaker) *PairCache {
	return &PairCache{
		client:  client,
		ttl:     ttl,
		breaker: breaker,
		logger:  logger.WithComponent("pair-cache"),
	}
}

// PairKey derives the cache key for a text pair. The two content digests
// are sorted before the final hash, so the key is order-independent the
// same way cosine similarity is.
func PairKey(textA, textB string) string {
	da := sha256.Sum256([]byte(textA))
	db := sha256.Sum256([]byte(textB))
	if bytes.Compare(da[:], db[:]) > 0 {
		da, db = db, da
	}
	buf := make([]byte, 0, len(da)+len(db))
	buf = append(buf, da[:]...)
	buf = append(buf, db[:]...)
	joint := sha256.Sum256(buf)
	return keyPrefix + hex.EncodeToString(joint[:16])
}

// GetOrCompute returns the cached score for the pair, or runs compute and
// caches the result. Concurrent callers for the same pair share one
// computation. The second return reports whether the score came from cache.
func (c *PairCache) GetOrCompute(ctx context.Context, textA, textB string, compute func() float64) (float64, bool) {
	key := PairKey(textA, textB)
	if score, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		return score, true
	}
	c.misses.Add(1)

	val, _, _ := c.group.Do(key, func() (any, error) {
		if score, ok := c.lookup(ctx, key); ok {
			return score, nil
		}
		score := compute()
		c.store(ctx, key, score)
		return score, nil
	})
	return val.(float64), false
}

// Invalidate removes every cached pair score.
func (c *PairCache) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.breaker.Execute(func() error {
		n, ferr := c.client.FlushByPattern(ctx, keyPrefix+"*")
		deleted = n
		return ferr
	})
	if err != nil {
		return fmt.Errorf("invalidating pair cache: %w", err)
	}
	c.logger.Info("pair cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns the hit and miss counts since startup.
func (c *PairCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the cache circuit breaker's current state.
func (c *PairCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *PairCache) lookup(ctx context.Context, key string) (float64, bool) {
	var data string
	found := false
	err := c.breaker.Execute(func() error {
		d, gerr := c.client.Get(ctx, key)
		if gerr != nil {
			if pkgredis.IsNilError(gerr) {
				return nil
			}
			return gerr
		}
		data = d
		found = true
		return nil
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return 0, false
	}
	if !found {
		return 0, false
	}
	score, perr := strconv.ParseFloat(data, 64)
	if perr != nil {
		c.logger.Warn("corrupt cache entry", "key", key, "error", perr)
		return 0, false
	}
	return score, true
}

func (c *PairCache) store(ctx context.Context, key string, score float64) {
	data := strconv.FormatFloat(score, 'g', -1, 64)
	err := c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}
