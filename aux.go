package quarry

// aux.go implements the auxiliary engine objects an options bundle
// can own: block cache, filter policy, and environment. Each wraps
// one native handle with idempotent, exactly-once release. An object
// attached to Options must stay alive at least as long as every DB
// opened with that bundle; releasing it earlier is a caller error the
// engine cannot detect.

import "github.com/quarrykv/quarry/internal/native"

// Cache is a block cache shared by every DB opened with options that
// reference it.
type Cache struct {
	eng    native.Engine
	handle uintptr
	closed bool
}

// NewLRUCache creates an LRU block cache with the given capacity in
// bytes.
func NewLRUCache(capacity int) *Cache {
	eng := engine()
	return &Cache{eng: eng, handle: eng.CacheCreateLRU(capacity)}
}

// Close releases the cache. Idempotent.
func (c *Cache) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.eng.CacheDestroy(c.handle)
}

// FilterPolicy configures the engine's read filter.
type FilterPolicy struct {
	eng    native.Engine
	handle uintptr
	closed bool
}

// NewBloomFilterPolicy creates a bloom filter policy. bitsPerKey
// controls accuracy; 10 is the conventional choice.
func NewBloomFilterPolicy(bitsPerKey int) *FilterPolicy {
	eng := engine()
	return &FilterPolicy{eng: eng, handle: eng.FilterPolicyCreateBloom(bitsPerKey)}
}

// Close releases the filter policy. Idempotent.
func (p *FilterPolicy) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.eng.FilterPolicyDestroy(p.handle)
}

// Env is the engine environment (filesystem and scheduling hooks).
type Env struct {
	eng    native.Engine
	handle uintptr
	closed bool
}

// NewDefaultEnv returns the engine's default environment.
func NewDefaultEnv() *Env {
	eng := engine()
	return &Env{eng: eng, handle: eng.CreateDefaultEnv()}
}

// Close releases the environment. Idempotent.
func (e *Env) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.eng.EnvDestroy(e.handle)
}
