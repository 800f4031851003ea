package memory

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"
)

// entry is a single cached value. expiresAt.IsZero() means no expiration.
type entry struct {
	value      []byte
	insertedAt time.Time
	expiresAt  time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Store is the process-local cache tier. It is always available and is
// safe for concurrent use. Expired entries are dropped lazily on read
// and, when a sweep interval is configured, by a background sweeper.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	stopSweep chan struct{}
	closeOnce sync.Once
}

// NewStore creates an in-memory store. sweepInterval <= 0 disables the
// background sweeper.
func NewStore(sweepInterval time.Duration) *Store {
	s := &Store{
		entries:   make(map[string]*entry),
		stopSweep: make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweep(sweepInterval)
	}
	return s
}

func (s *Store) Name() string { return "memory" }

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := time.Now()
	// Copy the fields out under the read lock: the counters mutate
	// entries in place under the write lock, so the entry must not be
	// touched once the lock is released.
	s.mu.RLock()
	e, ok := s.entries[key]
	var value []byte
	expired := false
	if ok {
		if expired = e.expired(now); !expired {
			value = e.value
		}
	}
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if expired {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// replaced the entry.
		if cur, ok := s.entries[key]; ok && cur.expired(time.Now()) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return value, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now()
	e := &entry{value: value, insertedAt: now}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Keys matches against the glob pattern using path.Match semantics,
// which cover the '*' wildcard the invalidation helpers rely on.
func (s *Store) Keys(_ context.Context, pattern string) ([]string, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k, e := range s.entries {
		if e.expired(now) {
			continue
		}
		if ok, err := path.Match(pattern, k); err != nil {
			return nil, fmt.Errorf("invalid key pattern %q: %w", pattern, err)
		} else if ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *Store) Incr(_ context.Context, key string, delta int64) (int64, error) {
	return s.incr(key, delta, 0, false)
}

// IncrWithTTL resets the counter's TTL on every call, mirroring the
// remote tier's INCR+EXPIRE pipeline. Within this process the two
// steps happen under one lock, so they are atomic here.
func (s *Store) IncrWithTTL(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	return s.incr(key, delta, ttl, true)
}

func (s *Store) incr(key string, delta int64, ttl time.Duration, setTTL bool) (int64, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	e, ok := s.entries[key]
	if ok && !e.expired(now) {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %q is not an integer: %w", key, err)
		}
		current = parsed
	} else {
		e = &entry{insertedAt: now}
		s.entries[key] = e
	}

	current += delta
	e.value = []byte(strconv.FormatInt(current, 10))
	if setTTL {
		if ttl > 0 {
			e.expiresAt = now.Add(ttl)
		} else {
			e.expiresAt = time.Time{}
		}
	}
	return current, nil
}

// Len reports the number of live entries. Used by health probes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for k, e := range s.entries {
				if e.expired(now) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		case <-s.stopSweep:
			return
		}
	}
}

// Close stops the background sweeper and drops all entries.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.stopSweep) })
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.mu.Unlock()
	return nil
}
