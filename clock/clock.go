// Package clock abstracts time so the cache, admission controller, circuit
// breaker and throttle backoff can be driven by a simulated clock in tests.
//
// Real uses time.Now, whose readings carry the monotonic clock, so every
// duration computed by this module is immune to wall-clock adjustments.
package clock

import (
	"context"
	"time"
)

// Clock supplies the current time and context-aware sleeping.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Sleep must return ctx.Err() promptly when ctx is done.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the system clock.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// Sleep waits for d on a timer, honoring ctx.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Or returns c, or Real when c is nil.
func Or(c Clock) Clock {
	if c == nil {
		return Real{}
	}
	return c
}

var _ Clock = Real{}
