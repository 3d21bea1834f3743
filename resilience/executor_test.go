package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/ddbclient/clock"
)

func TestExecutor_NoPatterns(t *testing.T) {
	e := NewExecutor()

	called := false
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("Execute() error = %v, called = %v", err, called)
	}
	if e.CircuitBreaker() != nil || e.RateLimiter() != nil {
		t.Error("accessors should be nil when no pattern is configured")
	}
}

func TestExecutor_RetryReentersAdmissionAndBreaker(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	var mu sync.Mutex
	var grants int

	rl := NewRateLimiter(RateLimiterConfig{
		Requests: 1,
		Window:   time.Second,
		Clock:    fc,
		OnGrant: func(time.Time) {
			mu.Lock()
			grants++
			mu.Unlock()
		},
	})
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		Clock:            fc,
		IsFailure:        func(err error) bool { return err != nil && !errors.Is(err, errThrottled) },
	})
	r := NewRetry(RetryConfig{
		InitialDelay: 5 * time.Second,
		Clock:        fc,
		RetryIf:      func(err error) bool { return errors.Is(err, errThrottled) },
	})

	e := NewExecutor(WithRetry(r), WithRateLimiter(rl), WithCircuitBreaker(cb))

	calls := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls <= 4 {
			return errThrottled
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
	if grants != 5 {
		t.Errorf("admission grants = %d, want one per attempt (5)", grants)
	}
	if cb.State() != StateClosed {
		t.Errorf("throttling should not open the circuit, state = %v", cb.State())
	}
}

func TestExecutor_BreakerOutcomeNotRetried(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, Clock: fc})
	r := NewRetry(RetryConfig{
		Clock:   fc,
		RetryIf: func(err error) bool { return errors.Is(err, errThrottled) },
	})
	e := NewExecutor(WithRetry(r), WithCircuitBreaker(cb))

	_ = e.Execute(context.Background(), fail)

	calls := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
	if len(fc.Sleeps()) != 0 {
		t.Errorf("open circuit should not be retried, slept %v", fc.Sleeps())
	}
}

func TestExecutor_TimeoutBoundsWholeCall(t *testing.T) {
	r := NewRetry(RetryConfig{InitialDelay: time.Hour})
	e := NewExecutor(WithTimeout(30*time.Millisecond), WithRetry(r))

	start := time.Now()
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		return errThrottled
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Execute() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Execute() took %v, backoff sleep was not bounded", elapsed)
	}
}

func TestExecutor_AttemptTimeoutExcludesBackoff(t *testing.T) {
	r := NewRetry(RetryConfig{InitialDelay: 20 * time.Millisecond, RetryIf: func(err error) bool {
		return errors.Is(err, errThrottled)
	}})
	e := NewExecutor(WithRetry(r), WithAttemptTimeout(30*time.Millisecond))

	calls := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls <= 3 {
			return errThrottled
		}
		return nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v, want nil after 60ms of backoff", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestExecutor_AttemptTimeoutBoundsHungAttempt(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	e := NewExecutor(WithCircuitBreaker(cb), WithAttemptTimeout(20*time.Millisecond))

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Execute() error = %v, want ErrTimeout", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("State = %v, a timed-out attempt should count as a failure", cb.State())
	}
}

func TestExecutor_WithTimeoutZeroDisables(t *testing.T) {
	e := NewExecutor(WithTimeout(time.Second), WithTimeout(0))
	if e.timeout != nil {
		t.Error("WithTimeout(0) should disable the deadline")
	}
}

func TestExecutor_BulkheadRejection(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	e := NewExecutor(WithBulkhead(b))

	_ = b.Acquire(context.Background())
	defer b.Release()

	err := e.Execute(context.Background(), succeed)
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Execute() error = %v, want ErrBulkheadFull", err)
	}
}
