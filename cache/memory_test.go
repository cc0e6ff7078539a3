package cache

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryCache_GetSet(t *testing.T) {
	c := NewInMemoryCache(time.Hour)

	if err := c.Set("key1", "value1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Errorf("Get returned %q %v, want %q", val, ok, "value1")
	}

	val, ok = c.Get("nonexistent")
	if ok || val != "" {
		t.Errorf("Get should miss for unknown key, got %q", val)
	}
}

func TestInMemoryCache_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewInMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set("key1", "value1")

	if val, ok := c.Get("key1"); !ok || val != "value1" {
		t.Error("Value should be available immediately after set")
	}

	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("key1"); ok {
		t.Error("Value should be expired after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Expired entry should be evicted on read, len %d", c.Len())
	}
}

func TestInMemoryCache_NoTTL(t *testing.T) {
	now := time.Now()
	c := NewInMemoryCache(0)
	c.now = func() time.Time { return now }

	c.Set("key1", "value1")
	now = now.Add(24 * 365 * time.Hour)

	if val, ok := c.Get("key1"); !ok || val != "value1" {
		t.Error("Value should never expire with no TTL")
	}
}

func TestInMemoryCache_Overwrite(t *testing.T) {
	c := NewInMemoryCache(time.Hour)

	c.Set("key1", "value1")
	c.Set("key1", "value2")

	if val, _ := c.Get("key1"); val != "value2" {
		t.Errorf("Value should be overwritten, got %q", val)
	}
}

func TestInMemoryCache_LenClear(t *testing.T) {
	c := NewInMemoryCache(time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	if c.Len() != 2 {
		t.Errorf("Cache should have length 2, got %d", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Cleared cache should have length 0, got %d", c.Len())
	}
}

func TestInMemoryCache_EntriesSkipsExpired(t *testing.T) {
	now := time.Now()
	c := NewInMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set("old", "a")
	now = now.Add(50 * time.Second)
	c.Set("new", "b")
	now = now.Add(20 * time.Second)

	entries := c.Entries()
	if len(entries) != 1 || entries["new"] != "b" {
		t.Errorf("Unexpected entries %v", entries)
	}
	if c.Len() != 1 {
		t.Errorf("Len should count live entries only, got %d", c.Len())
	}
}

func TestInMemoryCache_SetRestartsLifetime(t *testing.T) {
	now := time.Now()
	c := NewInMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set("key", "v1")
	now = now.Add(45 * time.Second)
	c.Set("key", "v2")
	now = now.Add(45 * time.Second)

	if val, ok := c.Get("key"); !ok || val != "v2" {
		t.Errorf("Rewritten entry should live a full TTL, got %q %v", val, ok)
	}
}

func TestInMemoryCache_Purge(t *testing.T) {
	now := time.Now()
	c := NewInMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", "1")
	c.Set("b", "2")
	now = now.Add(30 * time.Second)
	c.Set("c", "3")
	now = now.Add(40 * time.Second)

	if n := c.Purge(); n != 2 {
		t.Errorf("Expected 2 purged entries, got %d", n)
	}
	if n := c.Purge(); n != 0 {
		t.Errorf("Second purge should find nothing, got %d", n)
	}
	if val, ok := c.Get("c"); !ok || val != "3" {
		t.Error("Live entry should survive a purge")
	}
}

func TestInMemoryCache_Concurrent(t *testing.T) {
	c := NewInMemoryCache(time.Hour)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Set(string(rune('a'+i%26)), "value")
		}(i)
		go func(i int) {
			defer wg.Done()
			c.Get(string(rune('a' + i%26)))
		}(i)
	}

	wg.Wait()
}
