package embedded

// alloc.go implements the allocation accounting for buffers handed
// across the ABI. Every buffer the engine returns (get results,
// property strings, error strings) is registered here under its real
// address, which both keeps the backing memory reachable while the
// caller holds the pointer and lets Free enforce exactly-once release.

import (
	"fmt"
	"sync"
	"unsafe"
)

// arena tracks engine-owned allocations by address.
type arena struct {
	mu   sync.Mutex
	live map[uintptr][]byte
}

func newArena() *arena {
	return &arena{live: make(map[uintptr][]byte)}
}

// take registers b as an engine-owned allocation and returns its
// address. Empty slices are given a one-byte backing so the address
// is non-zero and still unique.
func (a *arena) take(b []byte) uintptr {
	if cap(b) == 0 {
		b = make([]byte, 1)[:0]
	}
	p := uintptr(unsafe.Pointer(unsafe.SliceData(b[:cap(b)])))
	a.mu.Lock()
	a.live[p] = b
	a.mu.Unlock()
	return p
}

// cstring copies s into a NUL-terminated engine-owned allocation.
func (a *arena) cstring(s string) uintptr {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return a.take(b[:len(s)])
}

// free releases an allocation. Freeing an address that is not live is
// a bug in the binding layer, not a recoverable condition.
func (a *arena) free(p uintptr) {
	if p == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live[p]; !ok {
		panic(fmt.Sprintf("embedded: free of unknown or already-freed pointer %#x", p))
	}
	delete(a.live, p)
}

// count reports the number of live allocations. Used by tests to
// prove the binding frees everything it takes.
func (a *arena) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// handleTable maps opaque uintptr handles to engine objects. Handles
// are synthetic (never dereferenced by the caller), so plain counters
// serve as addresses.
type handleTable struct {
	mu   sync.Mutex
	next uintptr
	objs map[uintptr]any
}

func newHandleTable() *handleTable {
	return &handleTable{next: 0x1000, objs: make(map[uintptr]any)}
}

func (t *handleTable) put(obj any) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	h := t.next
	t.objs[h] = obj
	return h
}

func (t *handleTable) get(h uintptr) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.objs[h]
	if !ok {
		panic(fmt.Sprintf("embedded: use of unknown or destroyed handle %#x", h))
	}
	return obj
}

func (t *handleTable) drop(h uintptr) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.objs[h]
	if !ok {
		panic(fmt.Sprintf("embedded: destroy of unknown or already-destroyed handle %#x", h))
	}
	delete(t.objs, h)
	return obj
}
