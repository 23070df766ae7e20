package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recordingSleep returns a Sleep func that records delays without waiting.
func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestNewRetry_Defaults(t *testing.T) {
	cfg := NewRetry(RetryConfig{}).Config()

	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != time.Second {
		t.Errorf("InitialDelay = %v, want 1s", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 8*time.Second {
		t.Errorf("MaxDelay = %v, want 8s", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2 {
		t.Errorf("Multiplier = %v, want 2", cfg.Multiplier)
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	var delays []time.Duration
	r := NewRetry(RetryConfig{Sleep: recordingSleep(&delays)})

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(delays) != 0 {
		t.Errorf("delays = %v, want none", delays)
	}
}

func TestRetry_ExhaustionSchedule(t *testing.T) {
	var delays []time.Duration
	var retried []int
	r := NewRetry(RetryConfig{
		Sleep: recordingSleep(&delays),
		OnRetry: func(attempt int, err error, delay time.Duration) {
			retried = append(retried, attempt)
		},
	})

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return errUpstream
	})

	if !errors.Is(err, errUpstream) {
		t.Errorf("Execute() = %v, want last op error", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) || delays[0] != want[0] || delays[1] != want[1] {
		t.Errorf("delays = %v, want %v", delays, want)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", retried)
	}
}

func TestRetry_SuccessOnRetry(t *testing.T) {
	var delays []time.Duration
	r := NewRetry(RetryConfig{Sleep: recordingSleep(&delays)})

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errUpstream
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() = %v, want nil", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetry_RetryIf(t *testing.T) {
	permanent := errors.New("bad request")
	var delays []time.Duration
	r := NewRetry(RetryConfig{
		Sleep:   recordingSleep(&delays),
		RetryIf: func(err error) bool { return !errors.Is(err, permanent) },
	})

	calls := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Errorf("Execute() = %v, want permanent error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 for non-retryable error", calls)
	}
}

func TestRetry_DelayCappedAtMaxDelay(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 6})

	want := []time.Duration{1, 2, 4, 8, 8}
	for i, w := range want {
		if got := r.calculateDelay(i + 1); got != w*time.Second {
			t.Errorf("calculateDelay(%d) = %v, want %v", i+1, got, w*time.Second)
		}
	}
}

func TestRetry_BackoffStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy BackoffStrategy
		attempt  int
		want     time.Duration
	}{
		{"constant", BackoffConstant, 3, time.Second},
		{"linear", BackoffLinear, 3, 3 * time.Second},
		{"exponential", BackoffExponential, 3, 4 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(RetryConfig{Strategy: tt.strategy})
			if got := r.calculateDelay(tt.attempt); got != tt.want {
				t.Errorf("calculateDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetry_ContextCancellationStopsWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetry(RetryConfig{
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})

	calls := 0
	err := r.Execute(ctx, func(context.Context) error {
		calls++
		return errUpstream
	})

	if !errors.Is(err, errUpstream) {
		t.Errorf("Execute() = %v, want last op error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_RealSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("sleepContext() = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("sleepContext ignored context deadline")
	}
}
