package observe

import (
	"context"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CallMeta describes one outbound call for telemetry purposes.
type CallMeta struct {
	Operation string // read, read_raw or write
	Method    string // HTTP method
	URL       string // full request URL
	CacheKey  string // empty when the call is not cached
	RequestID string
}

// SpanName returns the span name for this call: ddb.<operation>.
func (m CallMeta) SpanName() string {
	if m.Operation == "" {
		return "ddb.call"
	}
	return "ddb." + m.Operation
}

// Host returns the host of the call's URL, or "" if it does not parse.
func (m CallMeta) Host() string {
	u, err := url.Parse(m.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Fields returns the call metadata as log fields.
func (m CallMeta) Fields() []Field {
	fields := []Field{
		F("op", m.Operation),
		F("method", m.Method),
		F("url", m.URL),
	}
	if m.CacheKey != "" {
		fields = append(fields, F("cache_key", m.CacheKey))
	}
	if m.RequestID != "" {
		fields = append(fields, F("request_id", m.RequestID))
	}
	return fields
}

func (m CallMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("ddb.operation", m.Operation),
		attribute.String("http.request.method", m.Method),
		attribute.String("server.address", m.Host()),
	}
	if m.CacheKey != "" {
		attrs = append(attrs, attribute.String("ddb.cache_key", m.CacheKey))
	}
	if m.RequestID != "" {
		attrs = append(attrs, attribute.String("ddb.request_id", m.RequestID))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with call-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a client span for the call.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(meta.attributes()...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
