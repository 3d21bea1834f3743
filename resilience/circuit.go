package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/ddbclient/clock"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls flow normally and failures are counted.
	StateClosed State = iota
	// StateOpen means calls fail fast without being attempted.
	StateOpen
	// StateHalfOpen means a single trial call is probing recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	// Default: 5
	FailureThreshold int

	// Cooldown is how long the circuit stays open before a trial call.
	// Default: 30 seconds
	Cooldown time.Duration

	// HalfOpenMaxRequests is the number of trial calls allowed in half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called when the circuit state changes. It runs while
	// the breaker's lock is held and must not call back into the breaker.
	OnStateChange func(from, to State)

	// IsFailure determines if an error counts toward the threshold.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// Clock drives the cooldown. Default: the system clock.
	Clock clock.Clock
}

// CircuitBreaker implements the circuit breaker pattern.
//
// The Open to HalfOpen transition is evaluated lazily when a call is
// attempted or the state is inspected; there is no background timer.
// Errors that IsFailure rejects, and calls cancelled by the caller
// (context.Canceled), are neither failures nor successes.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	halfOpenCount int
	rejected      uint64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	config.Clock = clock.Or(config.Clock)

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs op through the circuit breaker. When the circuit is open it
// returns ErrCircuitOpen without invoking op; otherwise it returns op's
// error unchanged after recording the outcome. A panic in op is recorded as
// a failure and re-raised.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) (err error) {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.mu.Lock()
			cb.onFailureLocked()
			cb.mu.Unlock()
			panic(r)
		}
		cb.afterRequest(err)
	}()

	return op(ctx)
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Reset forces the circuit closed and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.halfOpenCount = 0
	cb.openedAt = time.Time{}
	cb.transitionLocked(StateClosed)
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		cb.rejected++
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			cb.rejected++
			return ErrCircuitOpen
		}
		cb.halfOpenCount++
	}

	return nil
}

// afterRequest records an outcome. A nil error is a success and an error
// matching IsFailure is a failure. Any other error, including caller
// cancellation, is neutral: the failure streak is left as it is and a
// half-open trial slot is released.
func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case err == nil:
		cb.onSuccessLocked()
	case errors.Is(err, context.Canceled) || !cb.config.IsFailure(err):
		if cb.state == StateHalfOpen && cb.halfOpenCount > 0 {
			cb.halfOpenCount--
		}
	default:
		cb.onFailureLocked()
	}
}

func (cb *CircuitBreaker) onSuccessLocked() {
	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.transitionLocked(StateClosed)
	}
}

func (cb *CircuitBreaker) onFailureLocked() {
	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.openedAt = cb.config.Clock.Now()
			cb.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		cb.openedAt = cb.config.Clock.Now()
		cb.transitionLocked(StateOpen)
	}
}

func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && cb.config.Clock.Now().Sub(cb.openedAt) >= cb.config.Cooldown {
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	cb.state = to
	if to == StateHalfOpen {
		cb.halfOpenCount = 0
	}
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:    cb.currentStateLocked(),
		Failures: cb.failures,
		OpenedAt: cb.openedAt,
		Rejected: cb.rejected,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State    State
	Failures int       // consecutive failures while closed
	OpenedAt time.Time // zero if never opened
	Rejected uint64    // calls refused without being attempted
}
