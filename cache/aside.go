package cache

import (
	"context"
	"time"
)

// LoadFunc fetches the value for a cache miss.
type LoadFunc func(ctx context.Context) ([]byte, error)

// LookupFunc observes the outcome of each cache lookup.
type LookupFunc func(ctx context.Context, key string, hit bool)

// Aside implements the cache-aside read pattern over a Cache.
//
// There is no request coalescing: concurrent misses on the same key each
// invoke their LoadFunc.
type Aside struct {
	cache    Cache
	onLookup LookupFunc
}

// NewAside creates a cache-aside reader. onLookup may be nil.
func NewAside(c Cache, onLookup LookupFunc) *Aside {
	return &Aside{cache: c, onLookup: onLookup}
}

// Get returns the cached value for key, or calls load, stores its result
// with ttl and returns it. Errors are not cached. A key that fails
// ValidateKey bypasses the cache entirely.
func (a *Aside) Get(ctx context.Context, key string, ttl time.Duration, load LoadFunc) ([]byte, error) {
	if a.cache == nil || ValidateKey(key) != nil {
		return load(ctx)
	}

	if cached, ok := a.cache.Get(ctx, key); ok {
		a.observe(ctx, key, true)
		return cached, nil
	}
	a.observe(ctx, key, false)

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	_ = a.cache.Set(ctx, key, value, ttl)
	return value, nil
}

// Invalidate deletes every key. It never fails.
func (a *Aside) Invalidate(ctx context.Context, keys ...string) {
	if a.cache == nil {
		return
	}
	for _, key := range keys {
		_ = a.cache.Delete(ctx, key)
	}
}

func (a *Aside) observe(ctx context.Context, key string, hit bool) {
	if a.onLookup != nil {
		a.onLookup(ctx, key, hit)
	}
}
