package pagetran

import (
	"sync"
)

// parallelLookupThreshold is the minimum number of spans for which cache
// lookups are fanned out to goroutines.
const parallelLookupThreshold = 5

// CacheLookup looks up the cached translation of every span. It returns the
// hits by span index and the indexes of the misses in document order. Spans
// that share a cache key are looked up once.
func CacheLookup(cache TranslationCache, spans []*Span, key func(*Span) string) (map[int]string, []int) {
	hits := make(map[int]string)
	if cache == nil || len(spans) == 0 {
		misses := make([]int, len(spans))
		for i := range spans {
			misses[i] = i
		}
		return hits, misses
	}

	keys := make([]string, len(spans))
	unique := make(map[string]bool)
	for i, s := range spans {
		keys[i] = key(s)
		unique[keys[i]] = true
	}

	var found map[string]string
	if len(spans) < parallelLookupThreshold {
		found = sequentialLookup(cache, unique)
	} else {
		found = parallelLookup(cache, unique)
	}

	var misses []int
	for i, k := range keys {
		if v, ok := found[k]; ok {
			hits[i] = v
		} else {
			misses = append(misses, i)
		}
	}

	return hits, misses
}

func sequentialLookup(cache TranslationCache, keys map[string]bool) map[string]string {
	found := make(map[string]string)
	for k := range keys {
		if v, ok := cache.Get(k); ok {
			found[k] = v
		}
	}
	return found
}

func parallelLookup(cache TranslationCache, keys map[string]bool) map[string]string {
	type lookupResult struct {
		key   string
		value string
		found bool
	}

	results := make(chan lookupResult, len(keys))
	var wg sync.WaitGroup

	for k := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			v, ok := cache.Get(key)
			results <- lookupResult{key: key, value: v, found: ok}
		}(k)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	found := make(map[string]string)
	for r := range results {
		if r.found {
			found[r.key] = r.value
		}
	}
	return found
}
