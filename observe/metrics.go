package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records client call metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a completed call with its duration and outcome.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordCacheLookup records a cache hit or miss.
	RecordCacheLookup(ctx context.Context, hit bool)

	// RecordThrottle records one "too many requests" backoff.
	RecordThrottle(ctx context.Context, meta CallMeta)

	// RecordBreakerTransition records a circuit breaker state change.
	RecordBreakerTransition(ctx context.Context, from, to string)
}

type metricsImpl struct {
	calls        metric.Int64Counter
	errors       metric.Int64Counter
	duration     metric.Float64Histogram
	cacheLookups metric.Int64Counter
	throttled    metric.Int64Counter
	transitions  metric.Int64Counter
}

// NewMetrics creates the client instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	m := &metricsImpl{}
	var err error

	if m.calls, err = meter.Int64Counter(
		"ddb.client.calls",
		metric.WithDescription("Outbound calls that reached the gating pipeline"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.errors, err = meter.Int64Counter(
		"ddb.client.errors",
		metric.WithDescription("Outbound calls that failed"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.duration, err = meter.Float64Histogram(
		"ddb.client.duration_ms",
		metric.WithDescription("Outbound call duration in milliseconds, including waits"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.cacheLookups, err = meter.Int64Counter(
		"ddb.client.cache_lookups",
		metric.WithDescription("Cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}

	if m.throttled, err = meter.Int64Counter(
		"ddb.client.throttled",
		metric.WithDescription("Too-many-requests responses that triggered a backoff"),
		metric.WithUnit("{response}"),
	); err != nil {
		return nil, err
	}

	if m.transitions, err = meter.Int64Counter(
		"ddb.client.breaker_transitions",
		metric.WithDescription("Circuit breaker state changes"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(
		attribute.String("ddb.operation", meta.Operation),
		attribute.String("http.request.method", meta.Method),
		attribute.String("server.address", meta.Host()),
	)

	m.calls.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, hit bool) {
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ddb.cache.hit", hit)))
}

func (m *metricsImpl) RecordThrottle(ctx context.Context, meta CallMeta) {
	m.throttled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("ddb.operation", meta.Operation),
		attribute.String("server.address", meta.Host()),
	))
}

func (m *metricsImpl) RecordBreakerTransition(ctx context.Context, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("ddb.breaker.from", from),
		attribute.String("ddb.breaker.to", to),
	))
}

type noopMetrics struct{}

func (noopMetrics) RecordCall(context.Context, CallMeta, time.Duration, error) {}
func (noopMetrics) RecordCacheLookup(context.Context, bool)                     {}
func (noopMetrics) RecordThrottle(context.Context, CallMeta)                    {}
func (noopMetrics) RecordBreakerTransition(context.Context, string, string)     {}
