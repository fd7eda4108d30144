package ratings

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CacheError is a constant error type for cache lookups.
type CacheError string

func (e CacheError) Error() string { return string(e) }

const ErrCacheMiss CacheError = "cache miss"

// Cache stores encoded ratings by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

const memorySweepInterval = time.Minute

// MemoryCache is an in-process Cache. Expired entries are dropped on read,
// and Set sweeps all of them at most once per memorySweepInterval.
type MemoryCache struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !now.Before(m.nextSweep) {
		m.sweep(now)
		m.nextSweep = now.Add(memorySweepInterval)
	}

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryCache) sweep(now time.Time) {
	for key, entry := range m.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// CachedClient serves repeated lookups from a Cache. Only successful
// lookups are stored so an outage is retried on the next request.
type CachedClient struct {
	next  Client
	cache Cache
	ttl   time.Duration
}

func NewCachedClient(next Client, cache Cache, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, cache: cache, ttl: ttl}
}

func cacheKey(isbn string) string {
	return "ratings:" + isbn
}

func (c *CachedClient) Lookup(ctx context.Context, isbn string) (*Rating, error) {
	key := cacheKey(isbn)

	if data, err := c.cache.Get(ctx, key); err == nil {
		var rating Rating
		if err := json.Unmarshal(data, &rating); err == nil {
			return &rating, nil
		}
	} else if err != ErrCacheMiss {
		log.Warn().Err(err).Str("isbn", isbn).Msg("Ratings cache read failed")
	}

	rating, err := c.next.Lookup(ctx, isbn)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(rating)
	if err == nil {
		err = c.cache.Set(ctx, key, data, c.ttl)
	}
	if err != nil {
		log.Warn().Err(err).Str("isbn", isbn).Msg("Ratings cache write failed")
	}

	return rating, nil
}
