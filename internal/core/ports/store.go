package ports

import (
	"context"
	"errors"
	"time"
)

// ErrScanUnsupported is returned by Store.Keys when the backing store
// cannot enumerate keys. Callers should treat it as "no matches" rather
// than a failure.
var ErrScanUnsupported = errors.New("store does not support key enumeration")

// Store defines the contract a single cache tier must fulfil.
// Implementations must be safe for concurrent use and should degrade
// gracefully (returning an error without crashing callers) so the
// tiered layer can fall through to another tier.
type Store interface {
	// Name identifies the tier in logs and metrics (e.g. "memory", "redis").
	Name() string
	// Get returns the raw bytes for key. ok=false if not found or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with TTL (0 or negative means no expiration).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns all keys matching the glob pattern ('*' wildcard).
	// Stores without enumeration support return ErrScanUnsupported.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Incr adjusts the integer value stored at key by delta and returns
	// the new value. A missing key counts from zero. The key's TTL, if
	// any, is left untouched.
	Incr(ctx context.Context, key string, delta int64) (int64, error)
	// IncrWithTTL adjusts the counter like Incr and (re)sets its TTL.
	// Implementations should make the two steps atomic when the backend
	// allows it.
	IncrWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	// Close releases any resources held by the store.
	Close() error
}
