// Package cache provides the LRU block cache the embedded engine uses
// for decompressed segment blocks. Capacity is charge-based: each
// entry is charged its payload size and the least recently used
// entries are evicted once the total charge exceeds capacity.
package cache

import (
	"container/list"
	"sync"
)

// Key uniquely identifies a cached block.
type Key struct {
	FileNumber uint64
	Offset     uint64
}

// LRU is a thread-safe, charge-bounded LRU cache.
type LRU struct {
	mu       sync.Mutex
	capacity uint64
	usage    uint64
	order    *list.List // front = most recently used
	index    map[Key]*list.Element

	hits   uint64
	misses uint64
}

type lruEntry struct {
	key    Key
	value  []byte
	charge uint64
}

// NewLRU creates a cache bounded by capacity bytes of charge.
func NewLRU(capacity uint64) *LRU {
	return &LRU{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[Key]*list.Element),
	}
}

// Insert adds or replaces a block and evicts as needed.
func (c *LRU) Insert(key Key, value []byte) {
	charge := uint64(len(value))
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		old := el.Value.(*lruEntry)
		c.usage -= old.charge
		old.value = value
		old.charge = charge
		c.usage += charge
		c.order.MoveToFront(el)
	} else {
		el := c.order.PushFront(&lruEntry{key: key, value: value, charge: charge})
		c.index[key] = el
		c.usage += charge
	}
	for c.usage > c.capacity && c.order.Len() > 0 {
		oldest := c.order.Back()
		e := oldest.Value.(*lruEntry)
		c.order.Remove(oldest)
		delete(c.index, e.key)
		c.usage -= e.charge
	}
}

// Lookup returns the cached block, or nil on a miss.
func (c *LRU) Lookup(key Key) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[key]
	if !ok {
		c.misses++
		return nil
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).value
}

// Erase removes a key if present.
func (c *LRU) Erase(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		e := el.Value.(*lruEntry)
		c.order.Remove(el)
		delete(c.index, key)
		c.usage -= e.charge
	}
}

// Usage returns the current total charge.
func (c *LRU) Usage() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Capacity returns the configured capacity.
func (c *LRU) Capacity() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity
}

// Stats returns cumulative hit and miss counts.
func (c *LRU) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear drops all entries.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.index = make(map[Key]*list.Element)
	c.usage = 0
}
