package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return NewTracer(tp.Tracer("test")), rec
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestCallMeta_SpanName(t *testing.T) {
	tests := []struct {
		op   string
		want string
	}{
		{"read", "ddb.read"},
		{"read_raw", "ddb.read_raw"},
		{"write", "ddb.write"},
		{"", "ddb.call"},
	}
	for _, tt := range tests {
		if got := (CallMeta{Operation: tt.op}).SpanName(); got != tt.want {
			t.Errorf("SpanName(%q) = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestCallMeta_Host(t *testing.T) {
	if got := testMeta.Host(); got != "character-service.dndbeyond.com" {
		t.Errorf("Host() = %q", got)
	}
	if got := (CallMeta{URL: "://bad"}).Host(); got != "" {
		t.Errorf("Host() of bad URL = %q, want empty", got)
	}
}

func TestTracer_SpanAttributes(t *testing.T) {
	tracer, rec := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), testMeta)
	tracer.EndSpan(span, nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != "ddb.read" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", s.SpanKind())
	}

	want := map[string]string{
		"http.request.method": "GET",
		"server.address":      "character-service.dndbeyond.com",
		"ddb.cache_key":       "ddb:character:1",
		"ddb.request_id":      "req-1",
	}
	for k, v := range want {
		got, ok := spanAttr(s, k)
		if !ok || got.AsString() != v {
			t.Errorf("attribute %s = %v, want %q", k, got.AsString(), v)
		}
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestTracer_OmitsEmptyCacheKey(t *testing.T) {
	tracer, rec := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), CallMeta{Operation: "write", Method: "POST"})
	tracer.EndSpan(span, nil)

	if _, ok := spanAttr(rec.Ended()[0], "ddb.cache_key"); ok {
		t.Error("ddb.cache_key should be omitted for uncached calls")
	}
}

func TestTracer_RecordsError(t *testing.T) {
	tracer, rec := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), testMeta)
	tracer.EndSpan(span, errors.New("upstream 503"))

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error || s.Status().Description != "upstream 503" {
		t.Errorf("status = %+v", s.Status())
	}
	if len(s.Events()) == 0 {
		t.Error("expected an exception event")
	}
}

func TestNoopTracer_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	_, span := tracer.StartSpan(context.Background(), testMeta)
	tracer.EndSpan(span, errors.New("x"))
}
