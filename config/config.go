// Package config loads the ddbctl configuration file.
//
// The file is YAML. Durations are Go duration strings ("30s", "5m").
// Credential values are not expanded at load time; Credentials resolves
// ${ENV} references strictly and secretref:<provider>:<ref> values through
// the secret package when they are needed.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/ddbclient/auth"
	"github.com/jonwraymond/ddbclient/cache"
	"github.com/jonwraymond/ddbclient/client"
	"github.com/jonwraymond/ddbclient/observe"
	"github.com/jonwraymond/ddbclient/resilience"
	"github.com/jonwraymond/ddbclient/secret"
)

var (
	// ErrMissingToken indicates an empty credentials.token.
	ErrMissingToken = errors.New("config: credentials.token is required")

	// ErrInvalidLimit indicates an out-of-range cache, admission, breaker
	// or throttle setting.
	ErrInvalidLimit = errors.New("config: invalid limit")

	// ErrInvalidHealth indicates an out-of-range health threshold.
	ErrInvalidHealth = errors.New("config: invalid health setting")

	// ErrInvalidBackoff indicates an unknown throttle strategy.
	ErrInvalidBackoff = errors.New("config: invalid throttle strategy")
)

// Config holds all ddbctl configuration.
type Config struct {
	Credentials    CredentialsConfig `yaml:"credentials"`
	Cache          CacheConfig       `yaml:"cache"`
	RateLimit      RateLimitConfig   `yaml:"rate_limit"`
	Breaker        BreakerConfig     `yaml:"breaker"`
	Throttle       ThrottleConfig    `yaml:"throttle"`
	RequestTimeout time.Duration     `yaml:"request_timeout"`
	MaxConcurrent  int               `yaml:"max_concurrent"`
	UserAgent      string            `yaml:"user_agent"`
	Observe        observe.Config    `yaml:"observe"`
	Health         HealthConfig      `yaml:"health"`
}

// CredentialsConfig holds the bearer token and session cookies. Values may
// be ${ENV} references or secretref:env:NAME / secretref:file:PATH.
type CredentialsConfig struct {
	Token     string            `yaml:"token"`
	Cookies   map[string]string `yaml:"cookies"`
	WebHosts  []string          `yaml:"web_hosts"`
	SecretDir string            `yaml:"secret_dir"` // base for relative secretref:file paths
}

// CacheConfig bounds the response cache.
type CacheConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl"`
	MaxTTL     time.Duration `yaml:"max_ttl"`
	MaxSize    int           `yaml:"max_size"`
}

// RateLimitConfig is the shared admission budget.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

// ThrottleConfig configures the backoff on throttled responses.
type ThrottleConfig struct {
	Delay      time.Duration `yaml:"delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	MaxRetries int           `yaml:"max_retries"` // 0 retries forever
	Strategy   string        `yaml:"strategy"`    // constant|linear|exponential
	Jitter     bool          `yaml:"jitter"`
}

// HealthConfig configures the health endpoints served by ddbctl serve.
type HealthConfig struct {
	Listen         string        `yaml:"listen"`
	TokenWarn      time.Duration `yaml:"token_warn"`
	CacheWarnRatio float64       `yaml:"cache_warn_ratio"`
	QueueWarn      int           `yaml:"queue_warn"`
	MemoryLimitMB  uint64        `yaml:"memory_limit_mb"` // 0 compares against runtime Sys
}

// Default returns a Config with the client's default limits.
func Default() *Config {
	d := client.DefaultConfig()
	return &Config{
		Credentials: CredentialsConfig{
			Token:    "${DDB_TOKEN}",
			WebHosts: append([]string(nil), auth.DefaultWebHosts...),
		},
		Cache: CacheConfig{
			DefaultTTL: d.Cache.DefaultTTL,
			MaxTTL:     d.Cache.MaxTTL,
			MaxSize:    d.Cache.MaxSize,
		},
		RateLimit: RateLimitConfig{Requests: d.RateLimit.Requests, Window: d.RateLimit.Window},
		Breaker:   BreakerConfig{FailureThreshold: d.Breaker.FailureThreshold, Cooldown: d.Breaker.Cooldown},
		Throttle: ThrottleConfig{
			Delay:    d.Throttle.Delay,
			MaxDelay: d.Throttle.MaxDelay,
			Strategy: resilience.BackoffConstant.String(),
		},
		RequestTimeout: d.RequestTimeout,
		UserAgent:      d.UserAgent,
		Observe: observe.Config{
			ServiceName: "ddbctl",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1},
			Metrics:     observe.MetricsConfig{Exporter: "none"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
		Health: HealthConfig{
			Listen:         ":8080",
			TokenWarn:      time.Hour,
			CacheWarnRatio: 0.9,
			QueueWarn:      50,
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	limit := func(ok bool, field string, value any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s = %v", ErrInvalidLimit, field, value))
		}
	}

	if c.Credentials.Token == "" {
		errs = append(errs, ErrMissingToken)
	}

	limit(c.Cache.DefaultTTL >= 0, "cache.default_ttl", c.Cache.DefaultTTL)
	limit(c.Cache.MaxTTL >= 0, "cache.max_ttl", c.Cache.MaxTTL)
	limit(c.Cache.MaxSize >= 0, "cache.max_size", c.Cache.MaxSize)
	limit(c.RateLimit.Requests > 0, "rate_limit.requests", c.RateLimit.Requests)
	limit(c.RateLimit.Window > 0, "rate_limit.window", c.RateLimit.Window)
	limit(c.Breaker.FailureThreshold > 0, "breaker.failure_threshold", c.Breaker.FailureThreshold)
	limit(c.Breaker.Cooldown > 0, "breaker.cooldown", c.Breaker.Cooldown)
	limit(c.Throttle.Delay > 0, "throttle.delay", c.Throttle.Delay)
	limit(c.Throttle.MaxRetries >= 0, "throttle.max_retries", c.Throttle.MaxRetries)
	limit(c.MaxConcurrent >= 0, "max_concurrent", c.MaxConcurrent)

	if _, err := resilience.ParseBackoffStrategy(c.Throttle.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidBackoff, err))
	}

	if c.Health.CacheWarnRatio < 0 || c.Health.CacheWarnRatio > 1 {
		errs = append(errs, fmt.Errorf("%w: cache_warn_ratio %v", ErrInvalidHealth, c.Health.CacheWarnRatio))
	}
	if c.Health.QueueWarn < 0 {
		errs = append(errs, fmt.Errorf("%w: queue_warn %d", ErrInvalidHealth, c.Health.QueueWarn))
	}

	if err := c.Observe.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Credentials resolves the configured token and cookies.
func (c *Config) Credentials(ctx context.Context) (auth.Credentials, error) {
	resolver, err := secret.DefaultRegistry.NewResolver(true, map[string]map[string]any{
		"file": {"dir": c.Credentials.SecretDir},
	})
	if err != nil {
		return auth.Credentials{}, err
	}
	defer resolver.Close()

	token, err := resolver.ResolveValue(ctx, c.Credentials.Token)
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("resolve token: %w", err)
	}
	cookies, err := resolver.ResolveMap(ctx, c.Credentials.Cookies)
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("resolve cookies: %w", err)
	}

	creds := auth.Credentials{Token: token, Cookies: cookies}
	if err := creds.Validate(); err != nil {
		return auth.Credentials{}, err
	}
	return creds, nil
}

// ClientConfig converts the file settings to client limits.
func (c *Config) ClientConfig() (client.Config, error) {
	strategy, err := resilience.ParseBackoffStrategy(c.Throttle.Strategy)
	if err != nil {
		return client.Config{}, fmt.Errorf("%w: %w", ErrInvalidBackoff, err)
	}

	return client.Config{
		WebHosts: c.Credentials.WebHosts,
		Cache: cache.Policy{
			DefaultTTL: disabledIfZero(c.Cache.DefaultTTL),
			MaxTTL:     c.Cache.MaxTTL,
			MaxSize:    disabledIfZero(c.Cache.MaxSize),
		},
		RateLimit: client.RateLimitConfig{Requests: c.RateLimit.Requests, Window: c.RateLimit.Window},
		Breaker:   client.BreakerConfig{FailureThreshold: c.Breaker.FailureThreshold, Cooldown: c.Breaker.Cooldown},
		Throttle: client.ThrottleConfig{
			Delay:      c.Throttle.Delay,
			MaxDelay:   c.Throttle.MaxDelay,
			MaxRetries: c.Throttle.MaxRetries,
			Strategy:   strategy,
			Jitter:     c.Throttle.Jitter,
		},
		RequestTimeout: c.RequestTimeout,
		MaxConcurrent:  c.MaxConcurrent,
		UserAgent:      c.UserAgent,
	}, nil
}

// disabledIfZero maps an explicit zero from the file onto the client's
// "off" value, since the client treats zero as "use the default".
func disabledIfZero[T int | time.Duration](v T) T {
	if v == 0 {
		return -1
	}
	return v
}
