package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process presence cache with real TTL semantics.
// Used by tests and local runs without Redis.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// NewMemoryCache constructs an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// WithClock overrides the clock. Test hook for TTL boundaries.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

// Set overwrites the entry and resets its TTL.
func (c *MemoryCache) Set(_ context.Context, robotID string, entry Entry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[Key(robotID)] = memoryEntry{entry: entry, expiresAt: c.now().Add(ttl)}
	return nil
}

// Get returns the entry when present and not expired.
func (c *MemoryCache) Get(_ context.Context, robotID string) (Entry, bool, error) {
	c.mu.RLock()
	stored, ok := c.entries[Key(robotID)]
	c.mu.RUnlock()
	if !ok || c.now().After(stored.expiresAt) {
		return Entry{}, false, nil
	}
	return stored.entry, true, nil
}

// Exists reports whether a non-expired entry is present.
func (c *MemoryCache) Exists(ctx context.Context, robotID string) (bool, error) {
	_, ok, err := c.Get(ctx, robotID)
	return ok, err
}

// Delete removes the entry.
func (c *MemoryCache) Delete(_ context.Context, robotID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, Key(robotID))
	return nil
}
