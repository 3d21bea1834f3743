package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonwraymond/ddbclient/auth"
	"github.com/jonwraymond/ddbclient/resilience"
)

var (
	// ErrCircuitOpen is returned without contacting the upstream while the
	// circuit breaker is open. Treat it as "service unavailable".
	ErrCircuitOpen = resilience.ErrCircuitOpen

	// ErrTimeout is returned when a single upstream attempt outlives
	// Config.RequestTimeout.
	ErrTimeout = resilience.ErrTimeout

	// ErrInvalidRequest indicates a malformed URL, method or body. Such
	// calls never reach the pipeline.
	ErrInvalidRequest = errors.New("client: invalid request")

	// ErrDecode indicates a response that does not decode into the
	// requested type.
	ErrDecode = errors.New("client: decode response")
)

// HTTPError is an upstream failure. StatusCode is zero when no response was
// received.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *HTTPError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ddb: %s %s: ", e.Method, e.URL)
	if e.StatusCode == 0 {
		b.WriteString("transport failure")
	} else {
		fmt.Fprintf(&b, "status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *HTTPError) Unwrap() error { return e.Err }

// newStatusError builds an HTTPError from a non-2xx response. The message
// is the body's "message" field when present.
func newStatusError(method, url string, status int, body []byte) *HTTPError {
	msg := http.StatusText(status)
	var envelope struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
		msg = envelope.Message
	}
	return &HTTPError{Method: method, URL: url, StatusCode: status, Message: msg}
}

// StatusCode returns the upstream status carried by err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsThrottled reports whether err is an upstream 429.
func IsThrottled(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}

// IsBreakerFailure reports whether err counts toward opening the circuit:
// transport failures, attempt timeouts and 5xx responses do; client errors,
// throttling, missing credentials and caller cancellation do not.
func IsBreakerFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, auth.ErrMissingCredentials) {
		return false
	}
	if errors.Is(err, resilience.ErrTimeout) {
		return true
	}
	var he *HTTPError
	if !errors.As(err, &he) {
		return false
	}
	return he.StatusCode == 0 || he.StatusCode >= 500
}
