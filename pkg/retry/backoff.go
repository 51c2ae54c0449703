package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	errs "xhsclient/pkg/errors"
)

// Backoff computes the pause before the next attempt
type Backoff interface {
	// NextDelay returns the delay after the given failed attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// ErrorAwareBackoff is a Backoff that can vary its delay by failure kind.
// Do prefers NextDelayFor when the configured Backoff implements it.
type ErrorAwareBackoff interface {
	Backoff
	NextDelayFor(attempt int, err error) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier each attempt, capped at MaxDelay
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// JitterFactor in [0,1] spreads the delay by +/- that fraction
	JitterFactor float64
}

// DefaultExponentialBackoff matches the defaults in config.DefaultConfig
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(b.BaseDelay) * math.Pow(mult, float64(attempt-1))
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	return jitter(delay, b.JitterFactor)
}

// ConstantBackoff waits the same Delay between every attempt
type ConstantBackoff struct {
	Delay time.Duration
}

func (b *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return b.Delay
}

func jitter(delay, factor float64) time.Duration {
	if factor > 0 {
		spread := delay * factor
		delay += rand.Float64()*2*spread - spread
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ErrorTypeBackoff picks a strategy by the error's type. Rate-limit errors
// wait much longer than network blips.
type ErrorTypeBackoff struct {
	Network     Backoff
	RateLimit   Backoff
	ServerError Backoff
	Default     Backoff
}

// NewErrorTypeBackoff derives per-type strategies from a base exponential backoff
func NewErrorTypeBackoff(base *ExponentialBackoff) *ErrorTypeBackoff {
	if base == nil {
		base = DefaultExponentialBackoff()
	}

	rateLimited := *base
	rateLimited.BaseDelay = base.BaseDelay * 10
	rateLimited.MaxDelay = base.MaxDelay * 4
	rateLimited.JitterFactor = 0.3

	server := *base
	server.BaseDelay = base.BaseDelay * 2

	return &ErrorTypeBackoff{
		Network:     base,
		RateLimit:   &rateLimited,
		ServerError: &server,
		Default:     base,
	}
}

func (b *ErrorTypeBackoff) NextDelay(attempt int) time.Duration {
	return b.Default.NextDelay(attempt)
}

func (b *ErrorTypeBackoff) NextDelayFor(attempt int, err error) time.Duration {
	return b.For(errs.TypeOf(err)).NextDelay(attempt)
}

// For returns the strategy used for errors of type t
func (b *ErrorTypeBackoff) For(t errs.ErrorType) Backoff {
	switch t {
	case errs.ErrorTypeNetwork:
		return b.Network
	case errs.ErrorTypeRateLimit:
		return b.RateLimit
	case errs.ErrorTypeServerError:
		return b.ServerError
	default:
		return b.Default
	}
}

// Wait sleeps for delay or until ctx is done
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
