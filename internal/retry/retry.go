// Package retry provides the bounded exponential-backoff loop shared by the
// pipeline stage runner and other callers of flaky collaborators.
package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Config controls retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts including the first try.
	// Default: 3.
	MaxAttempts int

	// BaseDelay is scaled by 2^attempt before each re-attempt (the first
	// attempt runs immediately). Default: 1s, giving 2s, 4s, ... waits.
	BaseDelay time.Duration

	// OnRetry is called before the backoff sleep preceding each re-attempt,
	// with the 1-based number of the attempt about to run.
	OnRetry func(attempt int, err error)
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	return c
}

// Do runs fn until it succeeds or the attempt budget is exhausted, returning
// the value from the successful call. Re-attempt n (1-based) is preceded by a
// sleep of BaseDelay * 2^n. Context cancellation stops the loop immediately
// with the last observed error.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt+1, lastErr)
			}
			if err := Sleep(ctx, Backoff(cfg.BaseDelay, attempt)); err != nil {
				return zero, lastErr
			}
		}

		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		var pe *permanentError
		if errors.As(err, &pe) {
			return zero, pe.err
		}
		if ctx.Err() != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

type permanentError struct{ err error }

// Permanent marks err as non-retryable: Do returns it immediately, unwrapped.
func Permanent(err error) error {
	return &permanentError{err: err}
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Backoff returns base * 2^attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	return time.Duration(float64(base) * math.Pow(2, float64(attempt)))
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
