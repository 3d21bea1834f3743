package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/ddbclient/clock"
)

var errUpstream = errors.New("upstream failure")

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *clock.Fake) {
	fc := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: threshold,
		Cooldown:         cooldown,
		Clock:            fc,
	})
	return cb, fc
}

func fail(ctx context.Context) error    { return errUpstream }
func succeed(ctx context.Context) error { return nil }

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	if cb.State() != StateClosed {
		t.Errorf("Initial state = %v, want closed", cb.State())
	}
	if cb.config.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cb.config.FailureThreshold)
	}
	if cb.config.Cooldown != 30*time.Second {
		t.Errorf("Cooldown = %v, want 30s", cb.config.Cooldown)
	}
	if cb.config.HalfOpenMaxRequests != 1 {
		t.Errorf("HalfOpenMaxRequests = %d, want 1", cb.config.HalfOpenMaxRequests)
	}
}

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(5, time.Minute)
	ctx := context.Background()

	calls := 0
	op := func(ctx context.Context) error {
		calls++
		return errUpstream
	}

	for i := 0; i < 5; i++ {
		if err := cb.Execute(ctx, op); err != errUpstream {
			t.Fatalf("Execute() #%d error = %v, want upstream error", i+1, err)
		}
	}

	err := cb.Execute(ctx, op)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("6th Execute() error = %v, want ErrCircuitOpen", err)
	}
	if calls != 5 {
		t.Errorf("wrapped function called %d times, want 5", calls)
	}
	if cb.Metrics().Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", cb.Metrics().Rejected)
	}
}

func TestCircuitBreaker_CooldownGatesTrial(t *testing.T) {
	cb, fc := newTestBreaker(1, 10*time.Second)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)

	fc.Advance(10*time.Second - time.Millisecond)
	if err := cb.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Execute() before cooldown = %v, want ErrCircuitOpen", err)
	}

	fc.Advance(time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("State = %v, want half-open", cb.State())
	}
}

func TestCircuitBreaker_RecoverySuccess(t *testing.T) {
	cb, fc := newTestBreaker(2, time.Second)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	fc.Advance(time.Second)

	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("trial Execute() error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
	if cb.Metrics().Failures != 0 {
		t.Errorf("Failures = %d, want 0", cb.Metrics().Failures)
	}
}

func TestCircuitBreaker_RecoveryFailureRestartsCooldown(t *testing.T) {
	cb, fc := newTestBreaker(1, 10*time.Second)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	fc.Advance(10 * time.Second)

	if err := cb.Execute(ctx, fail); err != errUpstream {
		t.Fatalf("trial Execute() error = %v, want upstream error", err)
	}
	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}
	reopenedAt := cb.Metrics().OpenedAt
	if !reopenedAt.Equal(fc.Now()) {
		t.Errorf("OpenedAt = %v, want %v", reopenedAt, fc.Now())
	}

	fc.Advance(9 * time.Second)
	if err := cb.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() during restarted cooldown = %v, want ErrCircuitOpen", err)
	}
	fc.Advance(time.Second)
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Errorf("Execute() after restarted cooldown = %v", err)
	}
}

func TestCircuitBreaker_SingleHalfOpenTrial(t *testing.T) {
	cb, fc := newTestBreaker(1, time.Second)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	fc.Advance(time.Second)

	inTrial := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(ctx, func(ctx context.Context) error {
			close(inTrial)
			<-release
			return nil
		})
	}()
	<-inTrial

	if err := cb.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("concurrent Execute() during trial = %v, want ErrCircuitOpen", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("trial error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_IsFailureClassifier(t *testing.T) {
	clientErr := errors.New("not found")
	fc := clock.NewFake(time.Unix(0, 0))
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		Clock:            fc,
		IsFailure: func(err error) bool {
			return err != nil && err != clientErr
		},
	})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		err := cb.Execute(ctx, func(ctx context.Context) error { return clientErr })
		if err != clientErr {
			t.Fatalf("Execute() error = %v, want client error rethrown", err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("non-failures should not open the circuit, state = %v", cb.State())
	}
}

func TestCircuitBreaker_CancellationIsNeutral(t *testing.T) {
	cb, fc := newTestBreaker(1, time.Second)
	ctx := context.Background()

	cancelled := func(ctx context.Context) error { return context.Canceled }

	_ = cb.Execute(ctx, cancelled)
	if cb.State() != StateClosed {
		t.Fatalf("cancellation opened the circuit")
	}

	_ = cb.Execute(ctx, fail)
	fc.Advance(time.Second)

	_ = cb.Execute(ctx, cancelled)
	if cb.State() != StateHalfOpen {
		t.Fatalf("State after cancelled trial = %v, want half-open", cb.State())
	}
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Errorf("a new trial should be allowed after a cancelled one, got %v", err)
	}
}

func TestCircuitBreaker_NeutralKeepsFailureStreak(t *testing.T) {
	clientErr := errors.New("not found")
	fc := clock.NewFake(time.Unix(0, 0))
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 5,
		Cooldown:         time.Second,
		Clock:            fc,
		IsFailure:        func(err error) bool { return err != clientErr },
	})
	ctx := context.Background()
	neutral := func(ctx context.Context) error { return clientErr }

	for i := 0; i < 4; i++ {
		_ = cb.Execute(ctx, fail)
	}
	_ = cb.Execute(ctx, neutral)
	if got := cb.Metrics().Failures; got != 4 {
		t.Fatalf("Failures after neutral outcome = %d, want 4", got)
	}

	_ = cb.Execute(ctx, fail)
	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open after the fifth failure", cb.State())
	}

	fc.Advance(time.Second)
	_ = cb.Execute(ctx, neutral)
	if cb.State() != StateHalfOpen {
		t.Fatalf("State after neutral trial = %v, want half-open", cb.State())
	}
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("second trial error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_PanicInTrialIsRecorded(t *testing.T) {
	cb, fc := newTestBreaker(1, time.Second)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	fc.Advance(time.Second)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("panic was swallowed")
			}
		}()
		_ = cb.Execute(ctx, func(ctx context.Context) error { panic("boom") })
	}()

	if cb.State() != StateOpen {
		t.Fatalf("State after panicking trial = %v, want open", cb.State())
	}
	fc.Advance(time.Second)
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Errorf("trial after cooldown = %v, want nil", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Hour)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)

	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
	if cb.Metrics().Failures != 2 {
		t.Errorf("Failures = %d, want 2", cb.Metrics().Failures)
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var mu sync.Mutex
	var transitions []string

	fc := clock.NewFake(time.Unix(0, 0))
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Second,
		Clock:            fc,
		OnStateChange: func(from, to State) {
			mu.Lock()
			transitions = append(transitions, from.String()+"->"+to.String())
			mu.Unlock()
		},
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	fc.Advance(time.Second)
	_ = cb.Execute(ctx, succeed)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Hour)
	_ = cb.Execute(context.Background(), fail)

	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}
	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("After reset, state = %v, want closed", cb.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
