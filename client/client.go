package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/ddbclient/auth"
	"github.com/jonwraymond/ddbclient/cache"
	"github.com/jonwraymond/ddbclient/clock"
	"github.com/jonwraymond/ddbclient/observe"
	"github.com/jonwraymond/ddbclient/resilience"
)

// Operation names used in spans, metrics and logs.
const (
	OpRead    = "read"
	OpReadRaw = "read_raw"
	OpWrite   = "write"
)

// Client performs gated, cached calls against the upstream service.
// It is safe for concurrent use; one Client should be shared process-wide.
type Client struct {
	cfg Config

	http     *http.Client
	clock    clock.Clock
	cache    cache.Cache
	aside    *cache.Aside
	breaker  *resilience.CircuitBreaker
	limiter  *resilience.RateLimiter
	bulkhead *resilience.Bulkhead
	executor *resilience.Executor

	mw     *observe.Middleware
	logger observe.Logger
	newID  func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Its transport is wrapped with the
// credential transport; the client itself is not modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock sets the clock used by the cache, limiter, breaker and backoff.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithCache replaces the in-memory cache.
func WithCache(store cache.Cache) Option {
	return func(c *Client) { c.cache = store }
}

// WithMiddleware sets the telemetry middleware. Default: no telemetry.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) { c.mw = mw }
}

// WithRequestIDs sets the request ID generator. Default: random UUIDs.
func WithRequestIDs(fn func() string) Option {
	return func(c *Client) { c.newID = fn }
}

// New creates a client. creds supplies the bearer token and cookies for
// every request.
func New(cfg Config, creds auth.Provider, opts ...Option) (*Client, error) {
	if creds == nil {
		return nil, auth.ErrMissingCredentials
	}

	c := &Client{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(c)
	}

	c.clock = clock.Or(c.clock)
	if c.mw == nil {
		c.mw = observe.NewMiddleware(nil, nil, nil)
	}
	c.logger = c.mw.Logger()
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.cache == nil {
		c.cache = cache.NewMemoryCache(c.cfg.Cache, cache.WithClock(c.clock))
	}

	metrics := c.mw.Metrics()
	c.aside = cache.NewAside(c.cache, func(ctx context.Context, key string, hit bool) {
		metrics.RecordCacheLookup(ctx, hit)
		c.logger.Debug(ctx, "cache lookup", observe.F("cache_key", key), observe.F("hit", hit))
	})

	c.http = c.wrapHTTPClient(creds)
	c.executor = c.buildExecutor()
	return c, nil
}

func (c *Client) wrapHTTPClient(creds auth.Provider) *http.Client {
	var hc http.Client
	if c.http != nil {
		hc = *c.http
	}
	hc.Transport = &auth.Transport{
		Base:     hc.Transport,
		Provider: creds,
		Headers:  auth.NewHeaderBuilder(c.cfg.WebHosts),
	}
	return &hc
}

func (c *Client) buildExecutor() *resilience.Executor {
	metrics := c.mw.Metrics()

	c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: c.cfg.Breaker.FailureThreshold,
		Cooldown:         c.cfg.Breaker.Cooldown,
		IsFailure:        IsBreakerFailure,
		Clock:            c.clock,
		OnStateChange: func(from, to resilience.State) {
			ctx := context.Background()
			metrics.RecordBreakerTransition(ctx, from.String(), to.String())
			c.logger.Warn(ctx, "circuit breaker state changed",
				observe.F("from", from.String()), observe.F("to", to.String()))
		},
	})

	c.limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Requests: c.cfg.RateLimit.Requests,
		Window:   c.cfg.RateLimit.Window,
		Clock:    c.clock,
	})

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  attemptsFor(c.cfg.Throttle.MaxRetries),
		InitialDelay: c.cfg.Throttle.Delay,
		MaxDelay:     c.cfg.Throttle.MaxDelay,
		Strategy:     c.cfg.Throttle.Strategy,
		Jitter:       c.cfg.Throttle.Jitter,
		RetryIf:      IsThrottled,
		Clock:        c.clock,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			ctx := context.Background()
			var he *HTTPError
			meta := observe.CallMeta{}
			if errors.As(err, &he) {
				meta.Method, meta.URL = he.Method, he.URL
			}
			metrics.RecordThrottle(ctx, meta)
			c.logger.Warn(ctx, "upstream throttled, backing off",
				observe.F("url", meta.URL), observe.F("attempt", attempt), observe.F("delay_ms", delay.Milliseconds()))
		},
	})

	opts := []resilience.ExecutorOption{
		resilience.WithRetry(retry),
		resilience.WithRateLimiter(c.limiter),
		resilience.WithCircuitBreaker(c.breaker),
		resilience.WithAttemptTimeout(c.cfg.RequestTimeout),
	}
	if c.cfg.MaxConcurrent > 0 {
		c.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: c.cfg.MaxConcurrent,
			MaxWait:       -1,
		})
		opts = append(opts, resilience.WithBulkhead(c.bulkhead))
	}
	return resilience.NewExecutor(opts...)
}

// attemptsFor converts a retry cap into an attempt cap; 0 stays unbounded.
func attemptsFor(maxRetries int) int {
	if maxRetries <= 0 {
		return 0
	}
	return maxRetries + 1
}

// Get reads url through the cache. On a miss the response is fetched,
// unwrapped from its success envelope and stored under cacheKey for ttl
// (ttl <= 0 selects the cache default). An empty cacheKey skips the cache.
func (c *Client) Get(ctx context.Context, rawURL, cacheKey string, ttl time.Duration) (json.RawMessage, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	meta := observe.CallMeta{Operation: OpRead, Method: http.MethodGet, URL: rawURL, CacheKey: cacheKey}
	value, err := c.aside.Get(ctx, cacheKey, ttl, func(ctx context.Context) ([]byte, error) {
		body, err := c.call(ctx, meta, nil)
		if err != nil {
			return nil, err
		}
		return Normalize(body), nil
	})
	if err != nil {
		return nil, err
	}
	return bytes.Clone(value), nil
}

// GetRaw fetches url through the same pipeline as Get but never caches and
// never unwraps the envelope.
func (c *Client) GetRaw(ctx context.Context, rawURL string) (json.RawMessage, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	meta := observe.CallMeta{Operation: OpReadRaw, Method: http.MethodGet, URL: rawURL}
	return c.call(ctx, meta, nil)
}

// Write sends body (JSON-encoded unless it is already []byte or
// json.RawMessage; nil sends no body) with method. On success every key in
// invalidateKeys is removed from the cache before Write returns and the
// unwrapped response is returned. On failure nothing is invalidated.
func (c *Client) Write(ctx context.Context, method, rawURL string, body any, invalidateKeys ...string) (json.RawMessage, error) {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return nil, fmt.Errorf("%w: method %q", ErrInvalidRequest, method)
	}
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	meta := observe.CallMeta{Operation: OpWrite, Method: method, URL: rawURL}
	resp, err := c.call(ctx, meta, payload)
	if err != nil {
		return nil, err
	}

	c.aside.Invalidate(ctx, invalidateKeys...)
	return Normalize(resp), nil
}

// Invalidate removes keys from the cache. Missing keys are ignored.
func (c *Client) Invalidate(ctx context.Context, keys ...string) {
	c.aside.Invalidate(ctx, keys...)
}

// Breaker returns the shared circuit breaker.
func (c *Client) Breaker() *resilience.CircuitBreaker { return c.breaker }

// Limiter returns the shared admission controller.
func (c *Client) Limiter() *resilience.RateLimiter { return c.limiter }

// Cache returns the response cache.
func (c *Client) Cache() cache.Cache { return c.cache }

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// call runs one request through telemetry and the resilience pipeline and
// returns the raw 2xx body.
func (c *Client) call(ctx context.Context, meta observe.CallMeta, payload []byte) (json.RawMessage, error) {
	meta.RequestID = c.newID()

	var out []byte
	err := c.mw.Wrap(func(ctx context.Context, meta observe.CallMeta) error {
		return c.executor.Execute(ctx, func(ctx context.Context) error {
			body, err := c.roundTrip(ctx, meta, payload)
			if err != nil {
				return err
			}
			out = body
			return nil
		})
	})(ctx, meta)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) roundTrip(ctx context.Context, meta observe.CallMeta, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, meta.Method, meta.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Request-ID", meta.RequestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &HTTPError{Method: meta.Method, URL: meta.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &HTTPError{Method: meta.Method, URL: meta.URL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(meta.Method, meta.URL, resp.StatusCode, data)
	}
	return data, nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url %q must be absolute http(s)", ErrInvalidRequest, rawURL)
	}
	return nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode body: %w", ErrInvalidRequest, err)
		}
		return data, nil
	}
}
