package cache

import (
	"context"
	"sync"
	"time"

	"lojadash/backend/internal/domain"
)

// MetricsCache memoizes computed metrics. Keys embed the snapshot version, so
// entries never need explicit invalidation.
type MetricsCache interface {
	Get(ctx context.Context, key string) (*domain.Metrics, bool, error)
	Set(ctx context.Context, key string, value *domain.Metrics, ttl time.Duration) error
}

type NoopMetricsCache struct{}

func (NoopMetricsCache) Get(_ context.Context, _ string) (*domain.Metrics, bool, error) {
	return nil, false, nil
}

func (NoopMetricsCache) Set(_ context.Context, _ string, _ *domain.Metrics, _ time.Duration) error {
	return nil
}

type memoryEntry struct {
	value     *domain.Metrics
	expiresAt time.Time
}

const defaultMemoryEntries = 256

// MemoryMetricsCache is an in-process cache used when no Redis is configured.
// It holds at most maxEntries values.
type MemoryMetricsCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

func NewMemoryMetricsCache() *MemoryMetricsCache {
	return NewBoundedMemoryMetricsCache(defaultMemoryEntries)
}

func NewBoundedMemoryMetricsCache(maxEntries int) *MemoryMetricsCache {
	if maxEntries < 1 {
		maxEntries = defaultMemoryEntries
	}
	return &MemoryMetricsCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *MemoryMetricsCache) Get(_ context.Context, key string) (*domain.Metrics, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryMetricsCache) Set(_ context.Context, key string, value *domain.Metrics, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evict(now)
	}

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

// evict drops expired entries, or the entry closest to expiry when none has
// expired. Entries without a deadline go last.
func (c *MemoryMetricsCache) evict(now time.Time) {
	victim := ""
	var victimAt time.Time
	for key, entry := range c.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			continue
		}
		if victim == "" || earlier(entry.expiresAt, victimAt) {
			victim, victimAt = key, entry.expiresAt
		}
	}
	if len(c.entries) >= c.maxEntries && victim != "" {
		delete(c.entries, victim)
	}
}

func earlier(a time.Time, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	if b.IsZero() {
		return true
	}
	return a.Before(b)
}

func (c *MemoryMetricsCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
