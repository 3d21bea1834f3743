// Package auth supplies the upstream credentials for outbound calls.
//
// A Provider yields the bearer token and session cookies. A HeaderBuilder
// turns them into request headers: the bearer token goes on every request,
// the cookies only on requests to the configured web hosts. Transport is an
// http.RoundTripper that applies those headers, and TokenExpiry reads the
// token's expiry for health reporting.
//
// Credentials are never refreshed here; obtaining them is the caller's
// concern.
package auth
