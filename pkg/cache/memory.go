package cache

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryCache in-memory реализация кэша. Вытеснение по LRU делает golang-lru,
// срок жизни записи проверяется при чтении.
type MemoryCache struct {
	items      *lru.Cache[string, memoryEntry]
	defaultTTL time.Duration

	// Статистика
	hits   atomic.Int64
	misses atomic.Int64

	closed atomic.Bool
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryCache создаёт новый in-memory кэш
func NewMemoryCache(opts *Options) *MemoryCache {
	if opts == nil {
		opts = DefaultOptions()
	}

	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	// Ошибка возможна только при size <= 0
	items, _ := lru.New[string, memoryEntry](maxEntries) //nolint:errcheck // size проверен выше

	return &MemoryCache{
		items:      items,
		defaultTTL: opts.DefaultTTL,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	entry, ok := c.items.Get(key)
	if !ok || entry.isExpired(time.Now()) {
		if ok {
			c.items.Remove(key)
		}
		c.misses.Add(1)
		return nil, ErrKeyNotFound
	}

	c.hits.Add(1)
	return append([]byte(nil), entry.value...), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.items.Add(key, entry)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.items.Remove(key)
	return nil
}

func (c *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}
	entry, ok := c.items.Peek(key)
	return ok && !entry.isExpired(time.Now()), nil
}

func (c *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	if c.closed.Load() {
		return 0, ErrCacheClosed
	}

	var count int64
	for _, key := range c.items.Keys() {
		if strings.HasPrefix(key, prefix) && c.items.Remove(key) {
			count++
		}
	}
	return count, nil
}

func (c *MemoryCache) Stats(_ context.Context) (*Stats, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	stats := &Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Backend: BackendMemory,
	}

	now := time.Now()
	for _, entry := range c.items.Values() {
		if !entry.isExpired(now) {
			stats.TotalKeys++
			stats.MemoryBytes += int64(len(entry.value))
		}
	}

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats, nil
}

func (c *MemoryCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.items.Purge()
	return nil
}
