// Package ratelimit provides token-bucket admission control guarding the
// LLM, embedding and database backends.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a bucket has no tokens left.
// It is surfaced to the caller immediately; the engine never retries admission.
var ErrRateLimited = errors.New("rate limited")

// Options configures a Limiter.
type Options struct {
	// Capacity is the maximum number of tokens a bucket holds.
	Capacity float64
	// RefillPerSecond is the token refill rate.
	RefillPerSecond float64
	// Now is the clock; defaults to time.Now. Tests inject a fake clock to
	// simulate elapsed time deterministically.
	Now func() time.Time
}

// bucket holds one key's token state. All mutation happens under mu, so each
// admission check is a single atomic read-modify-write.
type bucket struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// Limiter is a token-bucket rate limiter keyed by client identity.
// Buckets for different keys are independent and never block each other;
// there is no background refill goroutine, refill is computed lazily.
type Limiter struct {
	capacity float64
	refill   float64
	now      func() time.Time

	mu      sync.RWMutex
	buckets map[string]*bucket
}

// New creates a Limiter from options. Capacity and RefillPerSecond must be
// positive; invalid values fall back to a capacity-1, 1-token/sec bucket.
func New(opts Options) *Limiter {
	if opts.Capacity < 1 {
		opts.Capacity = 1
	}
	if opts.RefillPerSecond <= 0 {
		opts.RefillPerSecond = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Limiter{
		capacity: opts.Capacity,
		refill:   opts.RefillPerSecond,
		now:      opts.Now,
		buckets:  make(map[string]*bucket),
	}
}

// Allow admits or rejects one request for the given key.
// A full bucket admits Capacity requests back to back; afterwards requests are
// admitted at RefillPerSecond. Rejection returns ErrRateLimited.
func (l *Limiter) Allow(key string) error {
	b := l.bucketFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	// Lazy refill. The timestamp only ever advances; a clock reading earlier
	// than the stored one (concurrent callers racing on Now) adds no tokens
	// and does not rewind, so refill math stays idempotent.
	if now.After(b.last) {
		elapsed := now.Sub(b.last).Seconds()
		b.tokens += elapsed * l.refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}

	if b.tokens < 1 {
		return ErrRateLimited
	}
	b.tokens--
	return nil
}

// bucketFor returns the bucket for key, creating a full one on first use.
func (l *Limiter) bucketFor(key string) *bucket {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	b = &bucket{tokens: l.capacity, last: l.now()}
	l.buckets[key] = b
	return b
}

// Reset drops the bucket for a key, restoring it to full on next use.
// Used on configuration reload.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}
