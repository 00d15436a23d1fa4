// Package cache provides a generic, concurrency-safe LRU cache with
// read-through semantics for memoizing schema definition lookups.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// Cache is a bounded LRU cache safe for concurrent use. The zero value is not
// usable; construct with New.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*list.Element
	order    *list.List
	capacity int

	hits   atomic.Uint64
	misses atomic.Uint64
}

type pair[K comparable, V any] struct {
	key   K
	value V
}

// New creates a cache holding at most capacity entries. Non-positive
// capacities fall back to 256.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache[K, V]{
		entries:  make(map[K]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
	}
}

// Get returns the cached value for key, marking it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	c.order.MoveToFront(el)
	return el.Value.(pair[K, V]).value, true
}

// Set stores value under key, evicting the least recently used entry when at
// capacity.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

func (c *Cache[K, V]) set(key K, value V) {
	if el, ok := c.entries[key]; ok {
		el.Value = pair[K, V]{key, value}
		c.order.MoveToFront(el)
		return
	}
	if len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			delete(c.entries, oldest.Value.(pair[K, V]).key)
			c.order.Remove(oldest)
		}
	}
	c.entries[key] = c.order.PushFront(pair[K, V]{key, value})
}

// GetOrLoad returns the cached value for key, or calls load to produce it,
// caching the result on success. Concurrent callers for the same missing key
// may both invoke load; the last write wins without corrupting readers.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.mu.Lock()
	c.set(key, v)
	c.mu.Unlock()
	return v, nil
}

// Delete removes key from the cache.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.order.Remove(el)
	}
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats reports hit/miss counters since construction.
type Stats struct {
	Size   int
	Hits   uint64
	Misses uint64
}

// Stats returns a snapshot of cache counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Size:   c.Len(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}
