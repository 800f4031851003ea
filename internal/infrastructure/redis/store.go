package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	scanBatchSize  = 200
	maxRetryDelay  = time.Second
	defaultRetries = 3
	defaultBackoff = 50 * time.Millisecond
)

// Store adapts a Redis client to the shared cache tier contract.
// Transient failures are retried with bounded exponential backoff so a
// flapping connection does not stall callers indefinitely.
type Store struct {
	client     *redis.Client
	maxRetries int
	backoff    time.Duration
}

// NewStore wraps client. maxRetries <= 0 and backoff <= 0 fall back to
// 3 attempts and a 50ms base delay.
func NewStore(client *redis.Client, maxRetries int, backoff time.Duration) *Store {
	if maxRetries <= 0 {
		maxRetries = defaultRetries
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &Store{client: client, maxRetries: maxRetries, backoff: backoff}
}

func (s *Store) Name() string { return "redis" }

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data  []byte
		found bool
	)
	err := s.withRetry(ctx, func() error {
		b, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			data, found = nil, false
			return nil
		}
		if err != nil {
			return err
		}
		data, found = b, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return data, found, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.withRetry(ctx, func() error {
		return s.client.Set(ctx, key, value, ttl).Err()
	})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.withRetry(ctx, func() error {
		return s.client.Del(ctx, key).Err()
	})
}

// Keys enumerates matching keys with cursor-based SCAN so large
// keyspaces are walked in batches instead of blocking the server.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (s *Store) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	var val int64
	err := s.withRetry(ctx, func() error {
		n, err := s.client.IncrBy(ctx, key, delta).Result()
		if err != nil {
			return err
		}
		val = n
		return nil
	})
	return val, err
}

// IncrWithTTL performs the increment and the expiry in one transactional
// pipeline, so the counter can never land without its TTL.
func (s *Store) IncrWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	var val int64
	err := s.withRetry(ctx, func() error {
		pipe := s.client.TxPipeline()
		incr := pipe.IncrBy(ctx, key, delta)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		val = incr.Val()
		return nil
	})
	return val, err
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delay := s.backoff
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == s.maxRetries-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
	return err
}
