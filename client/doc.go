// Package client is the resilient gateway to the upstream character service.
//
// Every outbound call passes through the same pipeline, outermost first:
// the "too many requests" backoff, the shared admission controller, the
// optional in-flight bulkhead, the circuit breaker and a per-attempt
// deadline. The backoff itself is bounded only by the caller's context.
// Reads are cache-aside over a time-bounded FIFO cache and their
// responses are unwrapped from the upstream's success envelopes; writes
// invalidate the cache keys they are given once they succeed.
//
// Concurrent misses on the same key are not coalesced; each reaches the
// upstream.
package client
