// Package retry applies a bounded exponential backoff loop around provider
// calls. Only errors that services.Classify marks transient are retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"vaultcast/internal/services"
)

const (
	defaultAttempts  = 4
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 16 * time.Second
)

// Policy configures Do.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    bool

	// Sleep overrides how waits are performed (useful for tests).
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is invoked before each wait with the failed attempt number.
	OnRetry func(attempt int, err error, verdict services.Classification, delay time.Duration)
}

// RetryAfterer is implemented by errors carrying a provider-supplied wait hint.
type RetryAfterer interface {
	RetryAfterDelay() time.Duration
}

// Default returns the policy used when configuration is absent.
func Default() Policy {
	return Policy{Attempts: defaultAttempts, BaseDelay: defaultBaseDelay, MaxDelay: defaultMaxDelay, Jitter: true}
}

// ExhaustedError reports that every attempt failed with a transient error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do runs op until it succeeds, returns a permanent error, or the attempt
// budget is spent. Waits honour ctx.
func Do(ctx context.Context, policy Policy, op func(context.Context) error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %w)", err, lastErr)
			}
			return err
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		verdict := services.Classify(err)
		if !verdict.Transient {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := policy.Delay(attempt, err)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err, verdict, delay)
		}
		if err := policy.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w (last error: %w)", err, lastErr)
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// Delay returns the wait after the given 1-based failed attempt.
// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, capped at MaxDelay.
func (p Policy) Delay(attempt int, err error) time.Duration {
	var hinted RetryAfterer
	if errors.As(err, &hinted) {
		if after := hinted.RetryAfterDelay(); after > 0 {
			return p.capDelay(after)
		}
	}

	base := p.BaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := p.maxDelay()
	if attempt <= 0 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	if p.Jitter && delay > 1 {
		// Jitter stays within the upper half of the computed delay.
		half := delay / 2
		delay = half + rand.N(half+1)
	}
	return p.capDelay(delay)
}

func (p Policy) maxDelay() time.Duration {
	if p.MaxDelay > 0 {
		return p.MaxDelay
	}
	return defaultMaxDelay
}

func (p Policy) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if maxDelay := p.maxDelay(); delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, delay)
	}
	return Sleep(ctx, delay)
}

// Sleep blocks for delay or until ctx is done.
func Sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
