package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:        3,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         2 * time.Millisecond,
		RetryMultiplier:         2.0,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}
}

func retryAll(error) ErrorClassification {
	return ErrorClassification{Retryable: true, RecordFailure: true}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	executor := NewExecutor(fastConfig(), nil)

	calls := 0
	err := executor.Execute(context.Background(), "flaky", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, retryAll)

	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestExecuteStopsOnTerminalError(t *testing.T) {
	executor := NewExecutor(fastConfig(), nil)

	terminal := errors.New("bad request")
	calls := 0
	err := executor.Execute(context.Background(), "terminal", func(context.Context) error {
		calls++
		return terminal
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	})

	if !errors.Is(err, terminal) {
		t.Fatalf("Execute() error = %v, want %v", err, terminal)
	}
	if calls != 1 {
		t.Fatalf("terminal error must not be retried, calls = %d", calls)
	}
}

func TestExecuteReturnsLastErrorAfterExhaustedRetries(t *testing.T) {
	executor := NewExecutor(fastConfig(), nil)

	boom := errors.New("still down")
	calls := 0
	err := executor.Execute(context.Background(), "down", func(context.Context) error {
		calls++
		return boom
	}, retryAll)

	if !errors.Is(err, boom) {
		t.Fatalf("Execute() error = %v, want %v", err, boom)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestExecuteOpensBreakerAfterRepeatedFailures(t *testing.T) {
	executor := NewExecutor(fastConfig(), nil)

	boom := errors.New("upstream down")
	for i := 0; i < 2; i++ {
		err := executor.Execute(context.Background(), "unstable", func(context.Context) error {
			return boom
		}, retryAll)
		if !errors.Is(err, boom) {
			t.Fatalf("run %d: error = %v", i, err)
		}
	}

	calls := 0
	err := executor.Execute(context.Background(), "unstable", func(context.Context) error {
		calls++
		return nil
	}, retryAll)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("open breaker must short-circuit, calls = %d", calls)
	}
}

func TestBreakersAreIsolatedPerOperation(t *testing.T) {
	executor := NewExecutor(fastConfig(), nil)

	boom := errors.New("upstream down")
	for i := 0; i < 2; i++ {
		_ = executor.Execute(context.Background(), "broken-op", func(context.Context) error {
			return boom
		}, retryAll)
	}

	if err := executor.Execute(context.Background(), "healthy-op", func(context.Context) error {
		return nil
	}, retryAll); err != nil {
		t.Fatalf("unrelated operation tripped: %v", err)
	}
}

func TestExecuteIgnoresUnrecordedFailures(t *testing.T) {
	executor := NewExecutor(fastConfig(), nil)

	rejected := errors.New("validation error")
	for i := 0; i < 5; i++ {
		_ = executor.Execute(context.Background(), "validation", func(context.Context) error {
			return rejected
		}, func(error) ErrorClassification {
			return ErrorClassification{Retryable: false, RecordFailure: false}
		})
	}

	if err := executor.Execute(context.Background(), "validation", func(context.Context) error {
		return nil
	}, retryAll); err != nil {
		t.Fatalf("breaker tripped on unrecorded failures: %v", err)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	executor := NewExecutor(fastConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := executor.Execute(ctx, "cancelled", func(context.Context) error {
		calls++
		return nil
	}, retryAll)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("cancelled context must skip the call, calls = %d", calls)
	}
}

func TestExecuteWithoutBreaker(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerEnabled = false
	executor := NewExecutor(cfg, nil)

	calls := 0
	err := executor.Execute(context.Background(), "plain", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	}, retryAll)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	cfg := Config{}.normalize()
	defaults := DefaultConfig()

	if cfg.RetryMaxAttempts != defaults.RetryMaxAttempts {
		t.Fatalf("RetryMaxAttempts = %d", cfg.RetryMaxAttempts)
	}
	if cfg.RetryInitialBackoff != defaults.RetryInitialBackoff {
		t.Fatalf("RetryInitialBackoff = %v", cfg.RetryInitialBackoff)
	}
	if cfg.BreakerFailureRatio != defaults.BreakerFailureRatio {
		t.Fatalf("BreakerFailureRatio = %v", cfg.BreakerFailureRatio)
	}
}
