// Package health reports whether the client can currently serve calls.
//
// A Checker inspects one component and returns a Result whose Status is
// Healthy, Degraded or Unhealthy. The checkers in this package cover the
// client's moving parts:
//
//   - BreakerChecker: open circuit is unhealthy, half-open is degraded
//   - TokenChecker: expired bearer token is unhealthy, nearly expired is degraded
//   - CacheChecker: cache fill against its capacity
//   - LimiterChecker: callers queued at the admission controller
//   - MemoryChecker: process heap against a limit
//
// An Aggregator runs its checkers concurrently and folds their results
// into one status. RegisterHandlers exposes it over HTTP:
//
//	agg := health.NewAggregator()
//	agg.Register("breaker", health.NewBreakerChecker(c.Breaker()))
//	agg.Register("token", health.NewTokenChecker(creds.Token, health.TokenCheckerConfig{}))
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
package health
