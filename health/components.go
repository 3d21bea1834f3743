package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/ddbclient/auth"
	"github.com/jonwraymond/ddbclient/clock"
	"github.com/jonwraymond/ddbclient/resilience"
)

// BreakerChecker reports the circuit breaker state.
type BreakerChecker struct {
	cb *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker for cb.
func NewBreakerChecker(cb *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{cb: cb}
}

// Name returns "breaker".
func (c *BreakerChecker) Name() string { return "breaker" }

// Check is unhealthy while the circuit is open and degraded while it is
// half-open.
func (c *BreakerChecker) Check(context.Context) Result {
	m := c.cb.Metrics()
	details := map[string]any{
		"state":    m.State.String(),
		"failures": m.Failures,
		"rejected": m.Rejected,
	}
	if !m.OpenedAt.IsZero() {
		details["opened_at"] = m.OpenedAt.UTC().Format(time.RFC3339)
	}

	switch m.State {
	case resilience.StateOpen:
		return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit half-open, probing upstream").WithDetails(details)
	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}

// TokenCheckerConfig configures the bearer token checker.
type TokenCheckerConfig struct {
	// Warn is the remaining lifetime below which the token is degraded.
	// Default: 1 hour
	Warn time.Duration

	// Clock supplies the current time. Default: the system clock.
	Clock clock.Clock
}

// TokenChecker reports how long the bearer token remains valid.
type TokenChecker struct {
	token  string
	config TokenCheckerConfig
}

// NewTokenChecker creates a checker for token.
func NewTokenChecker(token string, config TokenCheckerConfig) *TokenChecker {
	if config.Warn <= 0 {
		config.Warn = time.Hour
	}
	config.Clock = clock.Or(config.Clock)
	return &TokenChecker{token: token, config: config}
}

// Name returns "token".
func (c *TokenChecker) Name() string { return "token" }

// Check is unhealthy for a missing, malformed or expired token and
// degraded when it expires within the warning window. A token without an
// exp claim is healthy.
func (c *TokenChecker) Check(context.Context) Result {
	left, err := auth.TokenRemaining(c.token, c.config.Clock.Now())
	switch {
	case errors.Is(err, auth.ErrNoExpiry):
		return Healthy("token has no expiry")
	case errors.Is(err, auth.ErrTokenExpired):
		return Unhealthy(fmt.Sprintf("token expired %s ago", (-left).Round(time.Second)), err)
	case err != nil:
		return Unhealthy("token unusable", err)
	}

	details := map[string]any{"expires_in": left.Round(time.Second).String()}
	if left < c.config.Warn {
		return Degraded(fmt.Sprintf("token expires in %s", left.Round(time.Second))).WithDetails(details)
	}
	return Healthy("token valid").WithDetails(details)
}

// Sizer is a cache that reports its fill. cache.MemoryCache implements it.
type Sizer interface {
	Len() int
	Capacity() int
}

// CacheChecker reports the response cache fill.
type CacheChecker struct {
	cache     Sizer
	warnRatio float64
}

// NewCacheChecker creates a checker that is degraded once the cache holds
// warnRatio of its capacity. A warnRatio outside (0, 1] selects 0.9.
func NewCacheChecker(cache Sizer, warnRatio float64) *CacheChecker {
	if warnRatio <= 0 || warnRatio > 1 {
		warnRatio = 0.9
	}
	return &CacheChecker{cache: cache, warnRatio: warnRatio}
}

// Name returns "cache".
func (c *CacheChecker) Name() string { return "cache" }

// Check never reports unhealthy; a full cache only evicts.
func (c *CacheChecker) Check(context.Context) Result {
	n, capacity := c.cache.Len(), c.cache.Capacity()
	details := map[string]any{"entries": n, "capacity": capacity}
	if capacity <= 0 {
		return Healthy(fmt.Sprintf("%d entries, unbounded", n)).WithDetails(details)
	}

	ratio := float64(n) / float64(capacity)
	details["fill_percent"] = ratio * 100
	if ratio >= c.warnRatio {
		return Degraded(fmt.Sprintf("cache %.0f%% full, evicting", ratio*100)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("cache %.0f%% full", ratio*100)).WithDetails(details)
}

// LimiterChecker reports the admission controller queue.
type LimiterChecker struct {
	limiter   *resilience.RateLimiter
	queueWarn int
}

// NewLimiterChecker creates a checker that is degraded once queueWarn or
// more callers are waiting. Zero disables the warning.
func NewLimiterChecker(limiter *resilience.RateLimiter, queueWarn int) *LimiterChecker {
	return &LimiterChecker{limiter: limiter, queueWarn: queueWarn}
}

// Name returns "limiter".
func (c *LimiterChecker) Name() string { return "limiter" }

// Check reports the queue depth and total grants.
func (c *LimiterChecker) Check(context.Context) Result {
	waiting := c.limiter.Waiting()
	cfg := c.limiter.Config()
	details := map[string]any{
		"waiting":  waiting,
		"granted":  c.limiter.Granted(),
		"requests": cfg.Requests,
		"window":   cfg.Window.String(),
	}
	if c.queueWarn > 0 && waiting >= c.queueWarn {
		return Degraded(fmt.Sprintf("%d callers queued for admission", waiting)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%d callers queued", waiting)).WithDetails(details)
}
