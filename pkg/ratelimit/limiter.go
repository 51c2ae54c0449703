package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter throttles outbound requests
type Limiter interface {
	// Allow consumes a slot if one is free
	Allow() bool
	// Wait blocks until a slot is free or ctx is done
	Wait(ctx context.Context) error
	// Reset restores full capacity
	Reset()
}

// TokenBucket refills continuously at capacity/period, so a 30-per-minute
// bucket allows a burst of 30 and then one request every two seconds.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	rate       float64 // tokens per nanosecond
	lastRefill time.Time
	now        func() time.Time
}

// NewTokenBucket creates a full bucket of capacity tokens refilled over period
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	if period <= 0 {
		period = time.Minute
	}
	tb := &TokenBucket{
		capacity: float64(capacity),
		tokens:   float64(capacity),
		rate:     float64(capacity) / float64(period),
		now:      time.Now,
	}
	tb.lastRefill = tb.now()
	return tb
}

// PerMinute is shorthand for the platform request budget
func PerMinute(n int) *TokenBucket {
	return NewTokenBucket(n, time.Minute)
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		tb.refill()
		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - tb.tokens) / tb.rate)
		tb.mu.Unlock()

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.now()
}

// Available reports the whole tokens currently in the bucket
func (tb *TokenBucket) Available() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return int(tb.tokens)
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		return
	}
	tb.tokens += float64(elapsed) * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// SlidingWindow admits at most maxRequests in any trailing window
type SlidingWindow struct {
	mu          sync.Mutex
	window      time.Duration
	maxRequests int
	requests    []time.Time
	now         func() time.Time
}

// NewSlidingWindow creates a limiter of maxRequests per window
func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &SlidingWindow{
		window:      window,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

// PerHour is shorthand for the token service budget
func PerHour(n int) *SlidingWindow {
	return NewSlidingWindow(n, time.Hour)
}

func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.evict(now)
	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		sw.mu.Lock()
		now := sw.now()
		sw.evict(now)
		if len(sw.requests) < sw.maxRequests {
			sw.requests = append(sw.requests, now)
			sw.mu.Unlock()
			return nil
		}
		wait := sw.requests[0].Add(sw.window).Sub(now)
		sw.mu.Unlock()

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// Remaining reports how many requests the current window still admits
func (sw *SlidingWindow) Remaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.evict(sw.now())
	return sw.maxRequests - len(sw.requests)
}

func (sw *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		n := copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:n]
	}
}

// Unlimited never blocks. Used when a rate is configured as zero.
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}

func sleep(ctx context.Context, d time.Duration) error {
	if d < time.Millisecond {
		d = time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
