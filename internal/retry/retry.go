// Package retry provides a generic opt-in retry helper with exponential
// backoff. Nothing in the core applies it automatically; callers wrap the
// specific operations they want retried.
package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/errors"
)

// timeSleep wraps time.After so tests can replace the backoff clock.
//
//nolint:gochecknoglobals // Required for test mocking
var timeSleep = func(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Policy configures a retry loop.
type Policy struct {
	// MaxAttempts is the total number of tries, first attempt included.
	// Default: 3.
	MaxAttempts int

	// InitialDelay is the backoff before the second attempt. Default: 1s.
	InitialDelay time.Duration

	// Multiplier scales the delay after each failed attempt. Default: 2.
	Multiplier float64

	// Retryable decides whether an error is worth retrying.
	// Nil means every error is retried.
	Retryable func(error) bool

	// OnRetry is invoked before each re-attempt with the upcoming
	// attempt number (2-based) and the previous error. Optional.
	OnRetry func(attempt int, err error)

	// Logger receives per-attempt diagnostics. Optional.
	Logger zerolog.Logger
}

// DefaultPolicy returns the standard 3-attempt exponential policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2,
	}
}

// normalize fills zero fields with defaults.
func (p Policy) normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	return p
}

// Do runs fn until it succeeds, the policy is exhausted, or ctx is done.
// Non-retryable errors (per Policy.Retryable) return immediately.
// The last error is returned wrapped when all attempts fail.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	p = p.normalize()
	delay := p.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				p.Logger.Info().
					Int("attempt", attempt).
					Msg("operation succeeded after retry")
			}
			return nil
		}

		if p.Retryable != nil && !p.Retryable(err) {
			p.Logger.Debug().
				Err(err).
				Int("attempt", attempt).
				Msg("operation failed with non-retryable error")
			return err
		}

		lastErr = err
		if attempt < p.MaxAttempts {
			if p.OnRetry != nil {
				p.OnRetry(attempt+1, err)
			}
			p.Logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", p.MaxAttempts).
				Dur("backoff", delay).
				Msg("operation failed, will retry after backoff")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timeSleep(delay):
				delay = time.Duration(float64(delay) * p.Multiplier)
			}
		}
	}

	return errors.Wrapf(lastErr, "max retries exceeded (%d attempts)", p.MaxAttempts)
}
