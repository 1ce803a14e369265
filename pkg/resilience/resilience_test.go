package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     20 * time.Millisecond,
	})
	failing := errors.New("backend down")

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return failing }); !errors.Is(err, failing) {
			t.Fatalf("attempt %d: got %v, want backend error", i, err)
		}
	}
	if got := cb.GetState(); got != StateOpen {
		t.Fatalf("state after threshold failures = %v, want open", got)
	}

	err := cb.Execute(func() error {
		t.Fatal("fn must not run while circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     5 * time.Millisecond,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})

	if err := cb.Execute(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("expected failure")
	}
	if got := cb.GetState(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	time.Sleep(10 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe after reset timeout: %v", err)
	}
	if got := cb.GetState(); got != StateClosed {
		t.Fatalf("state after successful probe = %v, want closed", got)
	}

	want := []string{"closed>open", "open>half-open", "half-open>closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreakerHalfOpenProbeLimit(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold:    1,
		ResetTimeout:        time.Millisecond,
		HalfOpenMaxRequests: 1,
	})
	_ = cb.Execute(func() error { return errors.New("boom") })
	time.Sleep(5 * time.Millisecond)

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = cb.Execute(func() error {
			close(started)
			<-block
			return nil
		})
	}()
	<-started
	err := cb.Execute(func() error { return nil })
	close(block)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second half-open probe: got %v, want ErrCircuitOpen", err)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "flaky", RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("permanent")
	attempts := 0
	err := Retry(context.Background(), "doomed", RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}, func() error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want wrapped %v", err, wantErr)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0
	err := Retry(ctx, "cancelled", RetryConfig{MaxAttempts: 3}, func() error {
		attempts++
		return errors.New("never retried")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if attempts != 0 {
		t.Fatalf("attempts = %d, want 0", attempts)
	}
}

func TestWithTimeoutExpires(t *testing.T) {
	err := WithTimeout(context.Background(), 5*time.Millisecond, "slow", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want DeadlineExceeded", err)
	}
}

func TestWithTimeoutPassesThroughResult(t *testing.T) {
	wantErr := errors.New("inner")
	err := WithTimeout(context.Background(), time.Second, "fast", func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want inner error", err)
	}
	if err := WithTimeout(context.Background(), 0, "unbounded", func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("zero timeout: %v", err)
	}
}
