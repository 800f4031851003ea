package health

import (
	"context"
	"errors"

	"github.com/avatarctic/tiered-cache/internal/core/ports"
	"github.com/avatarctic/tiered-cache/internal/infrastructure/memory"
	"github.com/go-redis/redis/v8"
)

// memoryHealthChecker probes the in-process tier.
type memoryHealthChecker struct{ store *memory.Store }

func (m *memoryHealthChecker) Name() string { return "memory" }
func (m *memoryHealthChecker) Check(context.Context) error {
	if m.store == nil {
		return errors.New("memory store not initialized")
	}
	return nil
}

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client *redis.Client }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// NewMemoryHealthChecker creates a health checker for the local tier.
func NewMemoryHealthChecker(store *memory.Store) ports.HealthChecker {
	return &memoryHealthChecker{store: store}
}

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client *redis.Client) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}
