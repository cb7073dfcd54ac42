// Package absent implements the absent-key negative cache: a bounded
// LRU of keys known not to exist, so a repeated GET on a missing key
// skips a second cold round-trip through RIO. Accessed only from the
// executor goroutine, so it carries no lock of its own, same as the
// lock manager and batch accumulator.
package absent

import (
	lru "github.com/hashicorp/golang-lru/v2/simplelru"
)

// Cache is the C10 absent-key cache.
type Cache struct {
	lru *lru.LRU[string, struct{}]
}

// New builds a cache with the given capacity. Capacity must be >= 1.
func New(capacity int) *Cache {
	l, err := lru.NewLRU[string, struct{}](capacity, nil)
	if err != nil {
		// Only NewLRU(size<=0, ...) errors; callers pass a configured,
		// validated capacity so this should not happen.
		panic(err)
	}
	return &Cache{lru: l}
}

// Put records key as absent, moving it to the head.
func (c *Cache) Put(key []byte) {
	c.lru.Add(string(key), struct{}{})
}

// Get reports whether key is cached as absent, moving it to the head
// on a hit.
func (c *Cache) Get(key []byte) bool {
	_, ok := c.lru.Get(string(key))
	return ok
}

// Delete drops key from the cache, e.g. after it is written back.
func (c *Cache) Delete(key []byte) {
	c.lru.Remove(string(key))
}

// Resize changes the cache's capacity, evicting from the tail if the
// new capacity is smaller than the current size.
func (c *Cache) Resize(capacity int) {
	c.lru.Resize(capacity)
}

// Len reports the number of keys currently cached.
func (c *Cache) Len() int { return c.lru.Len() }
