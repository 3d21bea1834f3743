// Package observe provides the logging, tracing and metrics used around every
// outbound call the client makes.
//
// It is pure instrumentation: the client builds a Middleware from an Observer
// and wraps each call with it. Exporter selection lives in the exporters
// subpackage.
package observe
