package client

import (
	"time"

	"github.com/jonwraymond/ddbclient/auth"
	"github.com/jonwraymond/ddbclient/cache"
	"github.com/jonwraymond/ddbclient/resilience"
)

// Config holds the client limits. They are fixed once New returns.
type Config struct {
	// WebHosts receive session cookies in addition to the bearer token.
	// Default: auth.DefaultWebHosts
	WebHosts []string

	// Cache bounds the response cache. Zero fields take their value from
	// cache.DefaultPolicy(); a negative DefaultTTL disables default caching
	// and a negative MaxSize leaves the cache unbounded.
	Cache cache.Policy

	RateLimit RateLimitConfig
	Breaker   BreakerConfig
	Throttle  ThrottleConfig

	// RequestTimeout bounds each upstream attempt. Admission waits and
	// throttle backoff are not counted, so an unbounded throttle loop stays
	// unbounded. Zero selects the default; negative disables it.
	// Default: 30s
	RequestTimeout time.Duration

	// MaxConcurrent caps in-flight upstream requests. Zero disables the cap.
	MaxConcurrent int

	// UserAgent is sent on every request.
	UserAgent string
}

// RateLimitConfig is the shared admission budget.
type RateLimitConfig struct {
	Requests int           // default 5
	Window   time.Duration // default 1s
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           // default 5
	Cooldown         time.Duration // default 30s
}

// ThrottleConfig configures the backoff on "too many requests" responses.
type ThrottleConfig struct {
	// Delay is the wait before retrying. Default: 5s
	Delay time.Duration

	// MaxDelay caps growing strategies. Default: 60s
	MaxDelay time.Duration

	// MaxRetries bounds the retries; zero retries forever.
	MaxRetries int

	Strategy resilience.BackoffStrategy
	Jitter   bool
}

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "ddbclient/1.0"

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		WebHosts:       auth.DefaultWebHosts,
		Cache:          cache.DefaultPolicy(),
		RateLimit:      RateLimitConfig{Requests: 5, Window: time.Second},
		Breaker:        BreakerConfig{FailureThreshold: 5, Cooldown: 30 * time.Second},
		Throttle:       ThrottleConfig{Delay: 5 * time.Second, MaxDelay: 60 * time.Second},
		RequestTimeout: 30 * time.Second,
		UserAgent:      DefaultUserAgent,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WebHosts == nil {
		c.WebHosts = d.WebHosts
	}
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = d.Cache.DefaultTTL
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = d.Cache.MaxSize
	}
	if c.RateLimit.Requests <= 0 {
		c.RateLimit.Requests = d.RateLimit.Requests
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = d.RateLimit.Window
	}
	if c.Breaker.FailureThreshold <= 0 {
		c.Breaker.FailureThreshold = d.Breaker.FailureThreshold
	}
	if c.Breaker.Cooldown <= 0 {
		c.Breaker.Cooldown = d.Breaker.Cooldown
	}
	if c.Throttle.Delay <= 0 {
		c.Throttle.Delay = d.Throttle.Delay
	}
	if c.Throttle.MaxDelay <= 0 {
		c.Throttle.MaxDelay = d.Throttle.MaxDelay
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	return c
}
