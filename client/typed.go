package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Read is Get decoded into T. An empty payload yields the zero T.
func Read[T any](ctx context.Context, c *Client, url, cacheKey string, ttl time.Duration) (T, error) {
	raw, err := c.Get(ctx, url, cacheKey, ttl)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](url, raw)
}

// ReadRaw is GetRaw decoded into T.
func ReadRaw[T any](ctx context.Context, c *Client, url string) (T, error) {
	raw, err := c.GetRaw(ctx, url)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](url, raw)
}

// WriteAs is Write with the unwrapped response decoded into T.
func WriteAs[T any](ctx context.Context, c *Client, method, url string, body any, invalidateKeys ...string) (T, error) {
	raw, err := c.Write(ctx, method, url, body, invalidateKeys...)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](url, raw)
}

func decode[T any](url string, raw []byte) (T, error) {
	var v T
	if len(bytes.TrimSpace(raw)) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w from %s: %w", ErrDecode, url, err)
	}
	return v, nil
}
