package cache

import (
	"sort"
	"sync"
	"time"
)

// PatternCount is one entry of [PatternTracker.Common].
type PatternCount struct {
	Pattern    string `json:"pattern"`
	Correction string `json:"correction"`
	Count      int    `json:"count"`
}

// PatternTracker counts how often each original→correction substitution has
// been applied. Counts for a pattern live as long as the pattern keeps being
// seen within the TTL; the tracker is bounded like any other [Cache].
type PatternTracker struct {
	mu    sync.Mutex
	store *Cache[map[string]int]
}

// NewPatternTracker creates a tracker that remembers at most maxPatterns
// distinct original words for ttl each.
func NewPatternTracker(maxPatterns int, ttl time.Duration, opts ...Option) (*PatternTracker, error) {
	store, err := New[map[string]int](maxPatterns, ttl, opts...)
	if err != nil {
		return nil, err
	}
	return &PatternTracker{store: store}, nil
}

// Add records one application of pattern → correction.
func (t *PatternTracker) Add(pattern, correction string) {
	if pattern == "" || pattern == correction {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	key := NewKey(pattern)
	counts, ok := t.store.Get(key)
	next := make(map[string]int, len(counts)+1)
	if ok {
		for k, v := range counts {
			next[k] = v
		}
	}
	next[correction]++
	t.store.Set(key, next)
}

// Stats returns the correction counts recorded for pattern.
func (t *PatternTracker) Stats(pattern string) map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts, ok := t.store.Get(NewKey(pattern))
	if !ok {
		return map[string]int{}
	}
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[k] = v
	}
	return out
}

// Common returns the n most frequently applied substitutions, most frequent
// first. Ties are ordered by pattern then correction. n <= 0 returns all.
func (t *PatternTracker) Common(n int) []PatternCount {
	t.mu.Lock()
	var all []PatternCount
	for _, key := range t.store.Keys() {
		counts, ok := t.store.Get(key)
		if !ok {
			continue
		}
		pattern := key.First()
		for corr, c := range counts {
			all = append(all, PatternCount{Pattern: pattern, Correction: corr, Count: c})
		}
	}
	t.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		if all[i].Pattern != all[j].Pattern {
			return all[i].Pattern < all[j].Pattern
		}
		return all[i].Correction < all[j].Correction
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}
