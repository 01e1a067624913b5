// Package cache provides a bounded, time-expiring key/value store shared by
// the dictionary engine and the correction orchestrator.
//
// Entries expire a fixed TTL after they were written. When the cache is full,
// the entry with the oldest creation time is evicted, regardless of how
// recently it was read. Expired entries are removed lazily on access and in
// bulk by [Cache.Cleanup].
//
// All methods are safe for concurrent use. Every operation holds a single
// mutex for at most one O(size) pass.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidConfig is returned by [New] when the size or TTL is not positive.
var ErrInvalidConfig = errors.New("cache: invalid configuration")

// Stats is a point-in-time snapshot of cache occupancy.
type Stats struct {
	// Total is the number of stored entries, including expired ones that have
	// not been swept yet.
	Total int `json:"total_items"`

	// Active is the number of entries that have not expired.
	Active int `json:"active_items"`

	// Expired is Total - Active.
	Expired int `json:"expired_items"`

	// MaxSize is the configured capacity.
	MaxSize int `json:"max_size"`
}

type options struct {
	now func() time.Time
}

// Option configures a [Cache].
type Option func(*options)

// WithClock replaces time.Now as the source of creation and expiry times.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

type entry[V any] struct {
	value     V
	createdAt time.Time
	seq       uint64
}

// Cache is a bounded TTL cache keyed by [Key].
type Cache[V any] struct {
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[Key]entry[V]
	seq     uint64
}

// New creates a cache holding at most maxSize entries, each living for ttl.
func New[V any](maxSize int, ttl time.Duration, opts ...Option) (*Cache[V], error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max_size must be positive, got %d", ErrInvalidConfig, maxSize)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidConfig, ttl)
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     o.now,
		entries: make(map[Key]entry[V], maxSize),
	}, nil
}

// expired reports whether e is past its TTL at now.
func (c *Cache[V]) expired(e entry[V], now time.Time) bool {
	return now.Sub(e.createdAt) >= c.ttl
}

// Get returns the value stored under key. The second result is false when the
// key is absent or has expired; an expired entry is removed.
func (c *Cache[V]) Get(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(e, c.now()) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Has reports whether key holds a live entry.
func (c *Cache[V]) Has(key Key) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores value under key with a fresh creation time. When the cache is at
// capacity and key is new, the oldest entry is evicted first.
func (c *Cache[V]) Set(key Key, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.seq++
	c.entries[key] = entry[V]{value: value, createdAt: now, seq: c.seq}
}

// evictOldest removes the entry with the smallest creation time, breaking
// ties by insertion order. Must be called with c.mu held.
func (c *Cache[V]) evictOldest() {
	var (
		oldestKey Key
		oldest    entry[V]
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.createdAt.Before(oldest.createdAt) ||
			(e.createdAt.Equal(oldest.createdAt) && e.seq < oldest.seq) {
			oldestKey, oldest, found = k, e, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeleteFunc removes every entry whose key satisfies match and returns the
// number removed.
func (c *Cache[V]) DeleteFunc(match func(Key) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Cleanup removes all expired entries and returns how many were dropped.
func (c *Cache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	return c.Stats().Active
}

// Keys returns the keys of all live entries in unspecified order.
func (c *Cache[V]) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]Key, 0, len(c.entries))
	for k, e := range c.entries {
		if !c.expired(e, now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Stats returns an occupancy snapshot.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	active := 0
	for _, e := range c.entries {
		if !c.expired(e, now) {
			active++
		}
	}
	return Stats{
		Total:   len(c.entries),
		Active:  active,
		Expired: len(c.entries) - active,
		MaxSize: c.maxSize,
	}
}

// RunJanitor calls [Cache.Cleanup] every interval until ctx is done. It
// blocks; start it in its own goroutine.
func (c *Cache[V]) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}
