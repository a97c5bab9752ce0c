package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vaultcast/internal/services"
	"vaultcast/internal/services/retry"
)

type hintedErr struct{ after time.Duration }

func (e hintedErr) Error() string             { return "429 slow down" }
func (e hintedErr) RetryAfterDelay() time.Duration { return e.after }

func recordingPolicy(attempts int, slept *[]time.Duration) retry.Policy {
	return retry.Policy{
		Attempts:  attempts,
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			*slept = append(*slept, d)
			return nil
		},
	}
}

func TestDoRetriesTransientUntilSuccess(t *testing.T) {
	var slept []time.Duration
	calls := 0
	err := retry.Do(context.Background(), recordingPolicy(4, &slept), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("quota exceeded")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(slept) != len(want) || slept[0] != want[0] || slept[1] != want[1] {
		t.Fatalf("unexpected backoff schedule: %v", slept)
	}
}

func TestDoReturnsPermanentImmediately(t *testing.T) {
	var slept []time.Duration
	calls := 0
	base := errors.New("invalid api key")
	err := retry.Do(context.Background(), recordingPolicy(5, &slept), func(context.Context) error {
		calls++
		return base
	})
	if !errors.Is(err, base) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		t.Fatal("permanent errors must not be reported as exhausted")
	}
	if calls != 1 || len(slept) != 0 {
		t.Fatalf("expected single call without sleeps, got calls=%d slept=%v", calls, slept)
	}
}

func TestDoReportsExhaustion(t *testing.T) {
	var slept []time.Duration
	var hooks []int
	policy := recordingPolicy(3, &slept)
	policy.OnRetry = func(attempt int, _ error, verdict services.Classification, _ time.Duration) {
		if verdict.Kind != services.KindQuota {
			t.Fatalf("unexpected verdict %+v", verdict)
		}
		hooks = append(hooks, attempt)
	}
	err := retry.Do(context.Background(), policy, func(context.Context) error {
		return errors.New("429 too many requests")
	})
	var exhausted *retry.ExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Attempts != 3 {
		t.Fatalf("expected exhausted error after 3 attempts, got %v", err)
	}
	if !services.IsQuota(err) {
		t.Fatalf("expected exhausted error to keep quota classification, got %v", err)
	}
	if len(slept) != 2 || len(hooks) != 2 || hooks[1] != 2 {
		t.Fatalf("unexpected sleeps=%v hooks=%v", slept, hooks)
	}
}

func TestDelayCapsAndHonoursRetryAfter(t *testing.T) {
	policy := retry.Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	if got := policy.Delay(5, errors.New("x")); got != 300*time.Millisecond {
		t.Fatalf("expected cap, got %s", got)
	}
	if got := policy.Delay(1, hintedErr{after: 250 * time.Millisecond}); got != 250*time.Millisecond {
		t.Fatalf("expected retry-after hint, got %s", got)
	}
	if got := policy.Delay(1, hintedErr{after: time.Hour}); got != 300*time.Millisecond {
		t.Fatalf("expected capped hint, got %s", got)
	}
}

func TestDelayJitterStaysInUpperHalf(t *testing.T) {
	policy := retry.Policy{BaseDelay: 200 * time.Millisecond, MaxDelay: time.Second, Jitter: true}
	for range 50 {
		got := policy.Delay(2, errors.New("x"))
		if got < 200*time.Millisecond || got > 400*time.Millisecond {
			t.Fatalf("jittered delay out of range: %s", got)
		}
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := retry.Policy{
		Attempts:  5,
		BaseDelay: time.Millisecond,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}
	calls := 0
	err := retry.Do(ctx, policy, func(context.Context) error {
		calls++
		return errors.New("timeout")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}
