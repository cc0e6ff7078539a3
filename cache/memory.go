package cache

import (
	"sync"
	"time"
)

// memoryEntry is a cached translation and the moment it stops being served.
// A zero deadline never expires.
type memoryEntry struct {
	value    string
	deadline time.Time
}

func (e memoryEntry) live(now time.Time) bool {
	return e.deadline.IsZero() || now.Before(e.deadline)
}

// InMemoryCache is a concurrency-safe translation cache for a single run, or
// for several runs when paired with a snapshot file.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryCache creates an empty cache whose entries live for ttl after
// being set. A ttl of 0 or less keeps entries for the life of the cache.
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     max(ttl, 0),
		now:     time.Now,
	}
}

// Get returns the translation stored under key. An expired entry is
// evicted and reported as a miss.
func (c *InMemoryCache) Get(key string) (string, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if !e.live(now) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && !cur.live(now) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false
	}
	return e.value, true
}

// Set stores value under key, restarting its lifetime.
func (c *InMemoryCache) Set(key, value string) error {
	e := memoryEntry{value: value}
	if c.ttl > 0 {
		e.deadline = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Len returns the number of entries still served.
func (c *InMemoryCache) Len() int {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, e := range c.entries {
		if e.live(now) {
			n++
		}
	}
	return n
}

// Purge drops every expired entry and returns how many were dropped.
func (c *InMemoryCache) Purge() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, e := range c.entries {
		if !e.live(now) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Clear removes every entry.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
}

// Entries returns a copy of the entries still served.
func (c *InMemoryCache) Entries() map[string]string {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.entries))
	for key, e := range c.entries {
		if e.live(now) {
			out[key] = e.value
		}
	}
	return out
}

var _ TranslationCache = (*InMemoryCache)(nil)
