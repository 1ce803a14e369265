// Package ratelimit implements the per-key token-bucket limiter enforced
// by the checker API. Buckets refill continuously at limit/window.
package ratelimit

import (
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

// entry tracks the token-bucket state for a single key.
type entry struct {
	tokens    float64
	lastCheck time.Time
}

// Limiter is an in-memory token-bucket rate limiter keyed by API key ID.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	window  time.Duration
	done    chan struct{}
}

// New creates a rate limiter with the given refill window. Each key gets
// its own `limit` tokens per window, refilled continuously.
func New(window time.Duration) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		window:  window,
		done:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow consumes one token for key if capacity remains. It reports whether
// the request may proceed and how many whole tokens are left afterwards.
func (l *Limiter) Allow(key string, limit int) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, exists := l.entries[key]
	if !exists {
		e = &entry{tokens: float64(limit), lastCheck: now}
		l.entries[key] = e
	} else {
		elapsed := now.Sub(e.lastCheck)
		e.lastCheck = now
		e.tokens += elapsed.Seconds() * float64(limit) / l.window.Seconds()
		if e.tokens > float64(limit) {
			e.tokens = float64(limit)
		}
	}

	if e.tokens < 1 {
		return false, 0
	}
	e.tokens--
	return true, int(e.tokens)
}

// Reset clears the rate-limit state for a specific key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Close stops the background cleanup goroutine.
func (l *Limiter) Close() {
	close(l.done)
}

// cleanupLoop drops buckets idle for more than two windows so abandoned
// keys do not accumulate.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			cutoff := time.Now().Add(-2 * l.window)
			for key, e := range l.entries {
				if e.lastCheck.Before(cutoff) {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}
