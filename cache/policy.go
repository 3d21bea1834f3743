package cache

import "time"

// Policy configures caching behavior.
type Policy struct {
	// DefaultTTL is used when Set is called without a positive TTL.
	// If zero or negative, such calls do not cache.
	DefaultTTL time.Duration

	// MaxTTL clamps every TTL. If zero, no maximum is enforced, so a
	// caller's TTL is honoured as given.
	MaxTTL time.Duration

	// MaxSize bounds the number of entries. If zero or negative, the cache
	// is unbounded.
	MaxSize int
}

// DefaultPolicy returns the default caching policy.
// DefaultTTL: 5 minutes, MaxTTL: none, MaxSize: 500
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 5 * time.Minute,
		MaxSize:    500,
	}
}

// NoCachePolicy returns a policy under which nothing is cached unless an
// explicit TTL is given.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if a default TTL is configured.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}

	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}
