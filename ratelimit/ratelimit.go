// Package ratelimit caps the invocation frequency of sensitive operations
// per caller key. It is an explicitly owned component, not ambient state:
// tests and services construct their own isolated instances.
package ratelimit

import (
	"sync"
	"time"
)

// Config configures a keyed limiter.
type Config struct {
	// PerMinute is the steady admission rate per key.
	// Default: 60
	PerMinute float64

	// Burst is the number of calls a key may make immediately before the
	// steady rate applies.
	// Default: 1
	Burst int

	// MaxKeys bounds the number of tracked keys; the staleest buckets are
	// evicted past it. A bucket evicted at rest is indistinguishable from
	// a full one.
	// Default: 10000
	MaxKeys int

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Keyed is a token-bucket rate limiter with one bucket per caller key.
// Each Allow is a single atomic check-and-decrement for its key.
type Keyed struct {
	config Config

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// New creates a keyed limiter.
func New(config Config) *Keyed {
	// Apply defaults
	if config.PerMinute <= 0 {
		config.PerMinute = 60
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.MaxKeys <= 0 {
		config.MaxKeys = 10000
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Keyed{
		config:  config,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether one more call is admitted for key, consuming a
// token when it is. Denials carry no detail: callers surface them as a
// generic too-many-requests signal.
func (k *Keyed) Allow(key string) bool {
	now := k.config.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	b, ok := k.buckets[key]
	if !ok {
		if len(k.buckets) >= k.config.MaxKeys {
			k.evictStalestLocked()
		}
		b = &bucket{tokens: float64(k.config.Burst), lastRefill: now}
		k.buckets[key] = b
	} else {
		elapsed := now.Sub(b.lastRefill)
		b.lastRefill = now
		b.tokens += elapsed.Minutes() * k.config.PerMinute
		if b.tokens > float64(k.config.Burst) {
			b.tokens = float64(k.config.Burst)
		}
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Tokens returns the tokens currently available for key.
func (k *Keyed) Tokens(key string) float64 {
	now := k.config.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	b, ok := k.buckets[key]
	if !ok {
		return float64(k.config.Burst)
	}

	tokens := b.tokens + now.Sub(b.lastRefill).Minutes()*k.config.PerMinute
	if tokens > float64(k.config.Burst) {
		tokens = float64(k.config.Burst)
	}
	return tokens
}

// Reset forgets the bucket for key.
func (k *Keyed) Reset(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.buckets, key)
}

// evictStalestLocked drops the bucket that refilled longest ago.
// Caller must hold mu.
func (k *Keyed) evictStalestLocked() {
	var stalest string
	var stalestAt time.Time
	first := true

	for key, b := range k.buckets {
		if first || b.lastRefill.Before(stalestAt) {
			stalest = key
			stalestAt = b.lastRefill
			first = false
		}
	}
	if !first {
		delete(k.buckets, stalest)
	}
}
