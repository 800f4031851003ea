package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	config "github.com/avatarctic/tiered-cache/configs"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := NewStore(client, 3, time.Millisecond)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestNewClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	t.Run("successful connection", func(t *testing.T) {
		client, err := NewClient(&config.RedisConfig{Host: host, Port: port, PoolSize: 4})
		require.NoError(t, err)
		defer client.Close()

		assert.NoError(t, client.Ping(context.Background()).Err())
	})

	t.Run("unreachable backend", func(t *testing.T) {
		_, err := NewClient(&config.RedisConfig{
			Host:        "127.0.0.1",
			Port:        "1",
			DialTimeout: 200 * time.Millisecond,
		})
		assert.Error(t, err)
	})
}

func TestStoreRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte(`{"a":1}`), 0))

	b, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(b))
}

func TestStoreGetMissing(t *testing.T) {
	store, _ := setupTestStore(t)

	b, ok, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, b)
}

func TestStoreTTL(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Second))

	_, ok, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = store.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreDelete(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, store.Delete(ctx, "k"))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Absence is not an error.
	assert.NoError(t, store.Delete(ctx, "k"))
}

func TestStoreKeysScan(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "cache:user:1", []byte("a"), 0))
	require.NoError(t, store.Set(ctx, "cache:user:2", []byte("b"), 0))
	require.NoError(t, store.Set(ctx, "cache:other:3", []byte("c"), 0))

	keys, err := store.Keys(ctx, "cache:user:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cache:user:1", "cache:user:2"}, keys)

	none, err := store.Keys(ctx, "session:*")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStoreIncr(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := store.Incr(ctx, "counter", 1)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	n, err := store.Incr(ctx, "counter", -1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStoreIncrWithTTL(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	n, err := store.IncrWithTTL(ctx, "rl", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.IncrWithTTL(ctx, "rl", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// The pipeline must leave the key with an expiry.
	assert.Positive(t, mr.TTL("rl"))

	mr.FastForward(2 * time.Minute)

	n, err = store.IncrWithTTL(ctx, "rl", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "counter restarts after expiry")
}

func TestStoreRetryRecovers(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := NewStore(client, 3, 20*time.Millisecond)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	// One transient error from the server: the bounded retry should
	// absorb it and the read still succeeds.
	mr.SetError("transient failure")
	go func() {
		time.Sleep(5 * time.Millisecond)
		mr.SetError("")
	}()

	b, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(b))
}

func TestStoreRetryExhausted(t *testing.T) {
	store, mr := setupTestStore(t)
	mr.SetError("backend down")

	_, _, err := store.Get(context.Background(), "k")
	assert.Error(t, err)
}
