// Package resilience provides the admission control, circuit breaking and
// backoff that guard every outbound call to the upstream service.
//
// # Patterns
//
//   - Rate Limiter: a sliding-window admission controller. At most Requests
//     calls are granted in any rolling Window, across all callers, and
//     waiters are admitted in arrival order.
//
//   - Circuit Breaker: stops calling a failing dependency for a cooldown,
//     then lets a single trial call through.
//
//   - Retry: re-runs an operation after a backoff delay. Used by the client
//     for "too many requests" responses; unbounded unless MaxAttempts is set.
//
//   - Bulkhead: optionally limits in-flight operations.
//
//   - Timeout: bounds a whole call, or each attempt, with a deadline.
//
// Every time-dependent pattern takes a clock.Clock so tests can run on a
// simulated clock.
//
// # Usage
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        InitialDelay: 5 * time.Second,
//	        RetryIf:      isTooManyRequests,
//	    })),
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	        Requests: 5,
//	        Window:   time.Second,
//	    })),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        FailureThreshold: 5,
//	        Cooldown:         30 * time.Second,
//	        IsFailure:        isServerFailure,
//	    })),
//	    resilience.WithAttemptTimeout(30*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callUpstream(ctx)
//	})
package resilience
