package musiclookup

import (
	"context"
	"sync"
	"time"
)

const (
	cacheTTL      = 300 * time.Second
	evictInterval = 5 * time.Minute
)

type cacheEntry struct {
	resolved Resolved
	fetched  time.Time
}

// Cache is an in-process TTL cache of resolved lookups keyed by track URL.
// Expired entries are ignored on read and overwritten on the next successful
// fetch; a background loop drops them so the map stays bounded.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns a cached resolution if one exists and is fresh.
func (c *Cache) Get(trackURL string) (Resolved, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[trackURL]
	if !ok || c.now().Sub(e.fetched) >= cacheTTL {
		return Resolved{}, false
	}
	return e.resolved, true
}

// Put stores or overwrites the resolution for a track URL.
func (c *Cache) Put(trackURL string, r Resolved) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[trackURL] = cacheEntry{resolved: r, fetched: c.now()}
}

// Evict removes entries whose TTL has lapsed and returns how many were dropped.
func (c *Cache) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	cutoff := c.now().Add(-cacheTTL)
	for k, e := range c.entries {
		if e.fetched.Before(cutoff) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// StartEviction drops expired entries in the background until ctx is cancelled.
func (c *Cache) StartEviction(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(evictInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Evict()
			}
		}
	}()
}
