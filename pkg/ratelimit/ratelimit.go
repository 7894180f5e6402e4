// Package ratelimit bounds calls to the downstream reasoning service with
// a two-window token bucket: a short window absorbs bursts, a long window
// caps sustained throughput. One limiter is shared across a whole batch
// run, so the bound holds regardless of batch concurrency.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Default limits. The short window guards the downstream burst budget,
// the long window its hourly quota.
const (
	defaultShortLimit  = 60
	defaultShortWindow = time.Minute
	defaultLongLimit   = 1800
	defaultLongWindow  = time.Hour
)

// bucket is a single refilling token bucket. Callers hold the Limiter
// lock.
type bucket struct {
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	last       time.Time
}

func newBucket(limit int, window time.Duration, now time.Time) *bucket {
	return &bucket{
		capacity:   float64(limit),
		refillRate: float64(limit) / window.Seconds(),
		tokens:     float64(limit),
		last:       now,
	}
}

func (b *bucket) refill(now time.Time) {
	b.tokens += now.Sub(b.last).Seconds() * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now
}

// untilAvailable is how long until one token refills.
func (b *bucket) untilAvailable() time.Duration {
	if b.tokens >= 1 {
		return 0
	}
	need := 1 - b.tokens
	return time.Duration(need / b.refillRate * float64(time.Second))
}

// Info reports the limiter decision alongside the retry-after hint
// surfaced to callers on rejection.
type Info struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a shared two-window token-bucket limiter. Safe for
// concurrent use.
type Limiter struct {
	mu    sync.Mutex
	short *bucket
	long  *bucket
	now   func() time.Time
}

// Option applies a configuration option to the Limiter.
type Option func(*limiterConfig)

type limiterConfig struct {
	shortLimit  int
	shortWindow time.Duration
	longLimit   int
	longWindow  time.Duration
	now         func() time.Time
}

// WithShortWindow sets the burst cap: limit tokens per window.
func WithShortWindow(limit int, window time.Duration) Option {
	return func(c *limiterConfig) {
		if limit > 0 && window > 0 {
			c.shortLimit = limit
			c.shortWindow = window
		}
	}
}

// WithLongWindow sets the sustained cap: limit tokens per window.
func WithLongWindow(limit int, window time.Duration) Option {
	return func(c *limiterConfig) {
		if limit > 0 && window > 0 {
			c.longLimit = limit
			c.longWindow = window
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *limiterConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Limiter with both windows full.
func New(opts ...Option) *Limiter {
	cfg := limiterConfig{
		shortLimit:  defaultShortLimit,
		shortWindow: defaultShortWindow,
		longLimit:   defaultLongLimit,
		longWindow:  defaultLongWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	start := cfg.now()
	return &Limiter{
		short: newBucket(cfg.shortLimit, cfg.shortWindow, start),
		long:  newBucket(cfg.longLimit, cfg.longWindow, start),
		now:   cfg.now,
	}
}

// Allow consumes one token from both windows if both have capacity. On
// rejection nothing is consumed and Info carries the retry-after hint.
func (l *Limiter) Allow() Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.short.refill(now)
	l.long.refill(now)

	if l.short.tokens < 1 || l.long.tokens < 1 {
		retry := l.short.untilAvailable()
		if longRetry := l.long.untilAvailable(); longRetry > retry {
			retry = longRetry
		}
		return Info{Allowed: false, Remaining: l.remaining(), RetryAfter: retry}
	}

	l.short.tokens--
	l.long.tokens--
	return Info{Allowed: true, Remaining: l.remaining()}
}

// Peek reports the current budget without consuming a token.
func (l *Limiter) Peek() Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.short.refill(now)
	l.long.refill(now)

	info := Info{Allowed: l.short.tokens >= 1 && l.long.tokens >= 1, Remaining: l.remaining()}
	if !info.Allowed {
		info.RetryAfter = l.short.untilAvailable()
		if longRetry := l.long.untilAvailable(); longRetry > info.RetryAfter {
			info.RetryAfter = longRetry
		}
	}
	return info
}

// Wait blocks until a token is available or ctx ends. On cancellation
// it returns an *Error carrying the retry-after hint and wrapping the
// context error.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		info := l.Allow()
		if info.Allowed {
			return nil
		}
		timer := time.NewTimer(info.RetryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &Error{RetryAfter: info.RetryAfter, cause: ctx.Err()}
		case <-timer.C:
		}
	}
}

// remaining is the tighter of the two windows. Callers hold the lock.
func (l *Limiter) remaining() int {
	r := l.short.tokens
	if l.long.tokens < r {
		r = l.long.tokens
	}
	return int(r)
}
