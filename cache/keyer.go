package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultPrefix prefixes every key built by Key and DefaultKeyer.
const DefaultPrefix = "ddb"

// Key builds a namespaced key: ddb:<resource>:<part>:<part>...
//
// Reusing one key for two different resource types makes a read decode
// another resource's payload; scoping every key by resource avoids that.
func Key(resource string, parts ...any) string {
	var b strings.Builder
	b.WriteString(DefaultPrefix)
	b.WriteByte(':')
	b.WriteString(resource)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// Keyer derives deterministic cache keys from structured request input.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key for a resource type and its input.
	Key(resource string, input any) (string, error)
}

// DefaultKeyer generates SHA-256 based cache keys.
type DefaultKeyer struct {
	// Prefix overrides DefaultPrefix when set.
	Prefix string
}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{Prefix: DefaultPrefix}
}

// Key generates a deterministic cache key.
// Format: <prefix>:<resource>:<hash>
// where hash is the first 16 hex characters of SHA-256(canonical JSON(input))
func (k *DefaultKeyer) Key(resource string, input any) (string, error) {
	canonical, err := canonicalize(input)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize input: %w", err)
	}

	prefix := k.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	hash := sha256.Sum256(canonical)
	return prefix + ":" + resource + ":" + hex.EncodeToString(hash[:8]), nil
}

// canonicalize produces a deterministic JSON representation of the input.
// Map keys are sorted.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return canonicalizeMap(m)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)

// HashKey is DefaultKeyer.Key with the default prefix.
func HashKey(resource string, input any) (string, error) {
	return NewDefaultKeyer().Key(resource, input)
}
