package cache

import (
	"context"
	"sync"
	"time"

	"github.com/adargal/pelles/internal/domain"
)

// keySeparator joins store id and query into one map key; neither side can
// contain it after normalization
const keySeparator = "\x00"

// memoryItem represents a single cached search result with expiration
type memoryItem struct {
	storeID    string
	candidates []domain.Candidate
	expiration time.Time
}

// MemoryCache is a thread-safe in-memory search cache with TTL support.
// Useful for tests and single-run deployments that don't need the results
// to survive a restart.
type MemoryCache struct {
	data  map[string]memoryItem
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]memoryItem),
		ttl:  ttl,
	}

	// Cleanup goroutine removes expired entries every 10 minutes
	go cache.cleanupExpired()

	return cache
}

// Get retrieves cached candidates, or ErrCacheMiss when absent or expired.
func (c *MemoryCache) Get(ctx context.Context, storeID, normalizedQuery string) ([]domain.Candidate, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[storeID+keySeparator+normalizedQuery]
	if !exists || time.Now().After(item.expiration) {
		return nil, domain.ErrCacheMiss
	}

	candidates := make([]domain.Candidate, len(item.candidates))
	copy(candidates, item.candidates)
	return candidates, nil
}

// Put stores candidates for the key, replacing any existing entry.
func (c *MemoryCache) Put(ctx context.Context, storeID, normalizedQuery string, candidates []domain.Candidate) error {
	stored := make([]domain.Candidate, len(candidates))
	copy(stored, candidates)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[storeID+keySeparator+normalizedQuery] = memoryItem{
		storeID:    storeID,
		candidates: stored,
		expiration: time.Now().Add(c.ttl),
	}
	return nil
}

// Clear removes cached entries; an empty storeID clears every store.
// Returns the number of entries removed.
func (c *MemoryCache) Clear(ctx context.Context, storeID string) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var removed int64
	for key, item := range c.data {
		if storeID == "" || item.storeID == storeID {
			delete(c.data, key)
			removed++
		}
	}
	return removed, nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		now := time.Now()
		for key, item := range c.data {
			if now.After(item.expiration) {
				delete(c.data, key)
			}
		}
		c.mutex.Unlock()
	}
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}
