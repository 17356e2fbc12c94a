package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUInsertLookup(t *testing.T) {
	c := NewLRU(1024)
	k := Key{FileNumber: 1, Offset: 0}

	assert.Nil(t, c.Lookup(k))
	c.Insert(k, []byte("block"))
	assert.Equal(t, []byte("block"), c.Lookup(k))

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestLRUOverwrite(t *testing.T) {
	c := NewLRU(1024)
	k := Key{FileNumber: 1, Offset: 8}

	c.Insert(k, []byte("old"))
	c.Insert(k, []byte("newer"))
	assert.Equal(t, []byte("newer"), c.Lookup(k))
	assert.Equal(t, uint64(5), c.Usage())
}

func TestLRUEviction(t *testing.T) {
	c := NewLRU(30)
	a := Key{FileNumber: 1, Offset: 0}
	b := Key{FileNumber: 1, Offset: 10}
	d := Key{FileNumber: 1, Offset: 20}

	c.Insert(a, make([]byte, 10))
	c.Insert(b, make([]byte, 10))

	// Touch a so b is the coldest entry when d forces an eviction.
	require.NotNil(t, c.Lookup(a))
	c.Insert(d, make([]byte, 15))

	assert.NotNil(t, c.Lookup(a))
	assert.Nil(t, c.Lookup(b), "the least recently used block is evicted")
	assert.NotNil(t, c.Lookup(d))
	assert.LessOrEqual(t, c.Usage(), c.Capacity())
}

func TestLRUOversizedValueNotCached(t *testing.T) {
	c := NewLRU(8)
	k := Key{FileNumber: 1, Offset: 0}
	c.Insert(k, make([]byte, 64))
	assert.Nil(t, c.Lookup(k), "a value larger than the cache cannot be held")
	assert.Zero(t, c.Usage())
}

func TestLRUErase(t *testing.T) {
	c := NewLRU(1024)
	k := Key{FileNumber: 2, Offset: 0}

	c.Insert(k, []byte("x"))
	c.Erase(k)
	assert.Nil(t, c.Lookup(k))
	assert.Zero(t, c.Usage())

	// Erasing an absent key is harmless.
	c.Erase(Key{FileNumber: 9, Offset: 9})
}

func TestLRUClear(t *testing.T) {
	c := NewLRU(1024)
	c.Insert(Key{FileNumber: 1, Offset: 0}, []byte("a"))
	c.Insert(Key{FileNumber: 1, Offset: 1}, []byte("b"))

	c.Clear()
	assert.Zero(t, c.Usage())
	assert.Nil(t, c.Lookup(Key{FileNumber: 1, Offset: 0}))
}
