package solver

import (
	"container/list"
	"sync"
)

// CostCache memoizes soft-cost scores keyed by schedule hash. It is a
// bounded LRU safe for concurrent use: reads share the lock in read mode,
// writes serialize. The cache is advisory only; eviction can slow search but
// never change results.
type CostCache struct {
	mu       sync.RWMutex
	capacity int
	order    *list.List
	entries  map[Hash]*list.Element

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	key   Hash
	score float64
}

// NewCostCache returns a cache bounded to capacity entries.
func NewCostCache(capacity int) *CostCache {
	if capacity <= 0 {
		capacity = 1 << 16
	}
	return &CostCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[Hash]*list.Element, capacity),
	}
}

// Get looks up a memoized score.
func (c *CostCache) Get(key Hash) (float64, bool) {
	c.mu.RLock()
	elem, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return 0, false
	}
	c.mu.Lock()
	c.order.MoveToFront(elem)
	c.hits++
	score := elem.Value.(*cacheEntry).score
	c.mu.Unlock()
	return score, true
}

// Put stores a score, evicting the least recently used entry at capacity.
func (c *CostCache) Put(key Hash, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).score = score
		c.order.MoveToFront(elem)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, score: score})
}

// Len returns the current entry count.
func (c *CostCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Stats returns cumulative hit and miss counts.
func (c *CostCache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
