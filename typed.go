package tieredcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Options tunes a single Cached call.
type Options struct {
	// TTL for the stored result. <= 0 applies the configured default.
	TTL time.Duration
	// Prefix overrides the configured key prefix for this call.
	Prefix string
	// SingleFlight coalesces concurrent misses on the same key into one
	// compute invocation. Off by default: without it, callers racing on
	// a cold key each compute independently and the last write wins.
	SingleFlight bool
}

// Get returns the decoded value for key. ok=false on a miss or when the
// cached payload does not decode into T.
func Get[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var v T
	b := c.tiers.Get(ctx, key)
	if b == nil {
		return v, false
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, false
	}
	return v, true
}

// MGet looks up each key in order. Slots for missing or undecodable
// entries are nil.
func MGet[T any](ctx context.Context, c *Cache, keys []string) []*T {
	out := make([]*T, len(keys))
	for i, k := range keys {
		if v, ok := Get[T](ctx, c, k); ok {
			val := v
			out[i] = &val
		}
	}
	return out
}

// HGet reads a hash field stored as a composite "{key}:{field}" entry.
func HGet[T any](ctx context.Context, c *Cache, key, field string) (T, bool) {
	return Get[T](ctx, c, hashKey(key, field))
}

// Cached is the read-through memoization operation. On a hit the cached
// value is returned and compute is never invoked; on a miss compute
// runs, its result is stored under the namespaced key with the given
// TTL, and the result is returned.
//
// An error from compute always propagates unchanged; the cache never
// masks a computation failure. A result that cannot be JSON-encoded
// surfaces as *SerializationError, since silently dropping the write
// would hand later callers a stale or missing value with no trace.
// Storage failures themselves are logged and absorbed as usual. A
// cached payload that no longer decodes into T is treated as a miss and
// recomputed.
func Cached[T any](ctx context.Context, c *Cache, key string, compute func() (T, error), opts Options) (T, error) {
	full := c.namespacedOpt(key, opts.Prefix)

	if v, ok := Get[T](ctx, c, full); ok {
		return v, nil
	}

	if !opts.SingleFlight {
		return computeAndStore(ctx, c, full, compute, opts.TTL)
	}

	res, err, _ := c.sf.Do(full, func() (any, error) {
		// Re-check under the flight: an earlier winner may have
		// populated the key already.
		if v, ok := Get[T](ctx, c, full); ok {
			return v, nil
		}
		return computeAndStore(ctx, c, full, compute, opts.TTL)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected type from singleflight result")
	}
	return v, nil
}

func computeAndStore[T any](ctx context.Context, c *Cache, fullKey string, compute func() (T, error), ttl time.Duration) (T, error) {
	v, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		var zero T
		return zero, &SerializationError{Key: fullKey, Err: err}
	}
	c.tiers.Set(ctx, fullKey, b, c.ttlOrDefault(ttl))
	return v, nil
}

func (c *Cache) namespacedOpt(key, prefix string) string {
	if prefix != "" {
		return prefix + key
	}
	return c.prefix + key
}
