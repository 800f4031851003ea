package tiered

import (
	"context"
	"errors"
	"time"

	"github.com/avatarctic/tiered-cache/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// Cache fans cache operations out across the process-local tier and an
// optional shared tier. Availability of the shared tier is decided once
// at construction: a later per-call failure is logged and absorbed, it
// never flips the recorded health flags. No store failure escapes this
// layer: reads fall back to a miss and writes become best-effort no-ops.
type Cache struct {
	local  ports.Store
	shared ports.Store // nil when the remote backend was unreachable at startup
	logger *logrus.Logger
	m      *Metrics
}

// New composes the tiers. shared may be nil for memory-only operation.
func New(local ports.Store, shared ports.Store, logger *logrus.Logger, m *Metrics) *Cache {
	return &Cache{local: local, shared: shared, logger: logger, m: m}
}

// tiers returns the available tiers in lookup order, local first.
func (c *Cache) tiers() []ports.Store {
	if c.shared == nil {
		return []ports.Store{c.local}
	}
	return []ports.Store{c.local, c.shared}
}

// preferred returns the tier best suited for shared state (counters,
// key enumeration): the shared tier when available, local otherwise.
func (c *Cache) preferred() ports.Store {
	if c.shared != nil {
		return c.shared
	}
	return c.local
}

// Set writes to every available tier. Failures are logged and the
// write continues; tiers may drift apart if one write fails while
// another succeeds.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	for _, t := range c.tiers() {
		if err := t.Set(ctx, key, value, ttl); err != nil {
			c.warn("set", t.Name(), key, err)
		}
	}
}

// Get returns the first hit across tiers, or nil when no tier holds the
// key. Both tiers are populated on every write, so lookup order does
// not affect what callers observe.
func (c *Cache) Get(ctx context.Context, key string) []byte {
	for _, t := range c.tiers() {
		b, ok, err := t.Get(ctx, key)
		if err != nil {
			c.warn("get", t.Name(), key, err)
			continue
		}
		if ok {
			c.m.hit(t.Name())
			return b
		}
	}
	c.m.miss()
	return nil
}

// Delete removes the key from every tier, best-effort.
func (c *Cache) Delete(ctx context.Context, key string) {
	for _, t := range c.tiers() {
		if err := t.Delete(ctx, key); err != nil {
			c.warn("delete", t.Name(), key, err)
		}
	}
}

func (c *Cache) Exists(ctx context.Context, key string) bool {
	return c.Get(ctx, key) != nil
}

// Expire rewrites the current value with a fresh TTL. The read and the
// rewrite are not atomic: the value can vanish in between if its
// original TTL elapses concurrently.
func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) {
	b := c.Get(ctx, key)
	if b == nil {
		return
	}
	c.Set(ctx, key, b, ttl)
}

// Keys enumerates keys matching the glob pattern from the shared tier
// when available (it holds the cross-process view), falling back to the
// local tier. A tier without enumeration support yields no matches.
func (c *Cache) Keys(ctx context.Context, pattern string) []string {
	t := c.preferred()
	keys, err := t.Keys(ctx, pattern)
	if err != nil {
		if !errors.Is(err, ports.ErrScanUnsupported) {
			c.warn("keys", t.Name(), pattern, err)
		}
		return nil
	}
	return keys
}

// ClearByPattern deletes every key matching the glob pattern from all
// tiers and returns how many keys were matched. Deletes stay
// best-effort: a failed per-tier delete is logged, not subtracted from
// the count. Deletions are issued one by one; a concurrent writer may
// repopulate a key mid-way.
func (c *Cache) ClearByPattern(ctx context.Context, pattern string) int {
	keys := c.Keys(ctx, pattern)
	for _, k := range keys {
		c.Delete(ctx, k)
	}
	return len(keys)
}

// Incr adjusts a counter on the preferred tier and returns the new
// value, or 0 when the tier fails.
func (c *Cache) Incr(ctx context.Context, key string, delta int64) int64 {
	t := c.preferred()
	n, err := t.Incr(ctx, key, delta)
	if err != nil {
		c.warn("incr", t.Name(), key, err)
		return 0
	}
	return n
}

// IncrWithTTL bumps a counter and (re)arms its expiry in one step where
// the backend allows it. Intended for rate-limiting style counters
// where occasional inaccuracy is acceptable.
func (c *Cache) IncrWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) int64 {
	t := c.preferred()
	n, err := t.IncrWithTTL(ctx, key, delta, ttl)
	if err != nil {
		c.warn("incr_with_ttl", t.Name(), key, err)
		return 0
	}
	return n
}

// Health reports which tiers were available at construction time.
func (c *Cache) Health() (memory, remote bool) {
	return c.local != nil, c.shared != nil
}

// Close tears down every tier.
func (c *Cache) Close() error {
	var firstErr error
	for _, t := range c.tiers() {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Cache) warn(op, tier, key string, err error) {
	c.m.storeError(op, tier)
	if c.logger == nil {
		return
	}
	c.logger.WithFields(logrus.Fields{
		"operation": op,
		"tier":      tier,
		"key":       key,
	}).WithError(err).Warn("cache store operation failed")
}
