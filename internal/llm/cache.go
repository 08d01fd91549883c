package llm

import (
	"strings"
	"sync"
	"time"

	"github.com/stocksense/pantry/internal/service"
)

// cacheEntry represents one cached classification.
type cacheEntry struct {
	expiry time.Time
	result service.ClassifyResult
}

// resultCache provides thread-safe caching of classifications keyed by
// normalized raw product name. Receipts repeat the same names week
// after week, so the hit rate is high.
type resultCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newResultCache creates a new cache with the specified TTL.
func newResultCache(ttl time.Duration) *resultCache {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	cache := &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go cache.cleanup()
	return cache
}

// cacheKey normalizes a raw name for lookup.
func cacheKey(rawName string) string {
	return strings.ToLower(strings.TrimSpace(rawName))
}

// get retrieves a classification if it exists and hasn't expired.
func (c *resultCache) get(rawName string) (service.ClassifyResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[cacheKey(rawName)]
	if !exists || time.Now().After(entry.expiry) {
		return service.ClassifyResult{}, false
	}
	return entry.result, true
}

// set stores a classification in the cache.
func (c *resultCache) set(rawName string, result service.ClassifyResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(rawName)] = cacheEntry{
		result: result,
		expiry: time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *resultCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries in the cache.
func (c *resultCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *resultCache) Close() {
	close(c.stopCh)
}
