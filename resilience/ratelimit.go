package resilience

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/ddbclient/clock"
)

// RateLimiterConfig configures the admission controller.
type RateLimiterConfig struct {
	// Requests is the number of grants allowed in any rolling Window.
	// Default: 5
	Requests int

	// Window is the length of the rolling window.
	// Default: 1 second
	Window time.Duration

	// Clock measures the window and performs waits. Default: the system clock.
	Clock clock.Clock

	// OnGrant is called with the time of each grant, in grant order. It runs
	// while the limiter's lock is held and must not call back into it.
	OnGrant func(at time.Time)
}

// RateLimiter is a sliding-window admission controller shared by every
// caller.
//
// It remembers the last Requests grant times; a new grant is allowed once
// the oldest of them is at least Window in the past, so every rolling window
// holds at most Requests grants. Waiters are admitted strictly in arrival
// order. The number of waiters is not bounded.
type RateLimiter struct {
	config RateLimiterConfig

	// turn holds a single token; its holder is the head of the queue.
	// Blocked channel receivers are served in FIFO order.
	turn chan struct{}

	mu     sync.Mutex
	grants []time.Time

	waiting atomic.Int64
	granted atomic.Uint64
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Requests <= 0 {
		config.Requests = 5
	}
	if config.Window <= 0 {
		config.Window = time.Second
	}
	config.Clock = clock.Or(config.Clock)

	rl := &RateLimiter{
		config: config,
		turn:   make(chan struct{}, 1),
		grants: make([]time.Time, 0, config.Requests),
	}
	rl.turn <- struct{}{}
	return rl
}

// Wait blocks until the caller is admitted or ctx is done. A caller that
// gives up does not consume a grant.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.waiting.Add(1)
	defer rl.waiting.Add(-1)

	select {
	case <-rl.turn:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { rl.turn <- struct{}{} }()

	for {
		delay := rl.reserve()
		if delay <= 0 {
			return nil
		}
		if err := rl.config.Clock.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Allow admits the caller only if that is possible without waiting and no
// one is queued ahead of it.
func (rl *RateLimiter) Allow() bool {
	select {
	case <-rl.turn:
	default:
		return false
	}
	defer func() { rl.turn <- struct{}{} }()

	return rl.reserve() <= 0
}

// Execute runs op once the caller is admitted.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// reserve records a grant and returns 0 if one is available now; otherwise
// it returns how long until the next grant becomes available.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.config.Clock.Now()
	if len(rl.grants) >= rl.config.Requests {
		next := rl.grants[0].Add(rl.config.Window)
		if now.Before(next) {
			return next.Sub(now)
		}
		copy(rl.grants, rl.grants[1:])
		rl.grants = rl.grants[:len(rl.grants)-1]
	}

	rl.grants = append(rl.grants, now)
	rl.granted.Add(1)
	if rl.config.OnGrant != nil {
		rl.config.OnGrant(now)
	}
	return 0
}

// Waiting returns the number of callers currently inside Wait.
func (rl *RateLimiter) Waiting() int {
	return int(rl.waiting.Load())
}

// Granted returns the total number of grants since creation.
func (rl *RateLimiter) Granted() uint64 {
	return rl.granted.Load()
}

// Config returns the limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}
