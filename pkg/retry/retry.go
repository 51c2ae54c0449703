package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xhsclient/pkg/config"
	errs "xhsclient/pkg/errors"
	"xhsclient/pkg/logger"
)

// Operation is a unit of work that may be attempted more than once
type Operation func(ctx context.Context) error

// Config holds retry configuration
type Config struct {
	// MaxAttempts counts the first try; values below 1 mean a single attempt
	MaxAttempts int
	Backoff     Backoff
	// RetryIf reports whether err is worth another attempt
	RetryIf func(error) bool
	// OnRetry runs before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultConfig returns three attempts with error-type aware backoff
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     NewErrorTypeBackoff(nil),
		RetryIf:     DefaultRetryIf,
	}
}

// FromConfig builds a retry policy from the user's retry settings.
// A disabled policy makes exactly one attempt.
func FromConfig(rc config.RetryConfig, log logger.Logger) *Config {
	cfg := &Config{
		MaxAttempts: 1,
		RetryIf:     DefaultRetryIf,
		Logger:      log,
	}
	if !rc.Enabled {
		cfg.Backoff = &ConstantBackoff{}
		return cfg
	}

	cfg.MaxAttempts = rc.MaxAttempts
	cfg.Backoff = NewErrorTypeBackoff(&ExponentialBackoff{
		BaseDelay:    rc.BaseDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.Multiplier,
		JitterFactor: 0.1,
	})
	return cfg
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as final. Do returns the wrapped error at once,
// whatever RetryIf says.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// DefaultRetryIf retries network, rate-limit and server errors. Context
// cancellation and untyped errors are final.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var e *errs.Error
	if errors.As(err, &e) {
		return errs.IsRetryable(e.Type)
	}
	return false
}

// Do runs op until it succeeds, returns a non-retryable error, exhausts
// MaxAttempts or ctx is cancelled.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = DefaultExponentialBackoff()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("retry cancelled: %w", lastErr)
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if !retryIf(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		var delay time.Duration
		if ea, ok := backoff.(ErrorAwareBackoff); ok {
			delay = ea.NextDelayFor(attempt, err)
		} else {
			delay = backoff.NextDelay(attempt)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		log.WithError(err).WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"error_type":   string(errs.TypeOf(err)),
			"delay_ms":     delay.Milliseconds(),
		})

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", lastErr)
		}
	}

	if maxAttempts == 1 {
		return lastErr
	}
	log.WithError(lastErr).ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
		"attempts": maxAttempts,
	})
	return fmt.Errorf("max retry attempts (%d) exceeded: %w", maxAttempts, lastErr)
}

// DoWithResult is Do for operations that produce a value
func DoWithResult[T any](ctx context.Context, op func(ctx context.Context) (T, error), cfg *Config) (T, error) {
	var result T
	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, cfg)
	return result, err
}
