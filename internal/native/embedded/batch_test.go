package embedded

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBatchRecords(t *testing.T) {
	b := newWriteBatch()
	assert.Equal(t, uint32(0), b.count())

	b.put([]byte("a"), []byte("1"))
	b.delete([]byte("b"))
	b.put([]byte("c"), []byte("3"))
	assert.Equal(t, uint32(3), b.count())

	var ops []string
	err := b.iterate(
		func(key, value []byte) { ops = append(ops, "put "+string(key)+"="+string(value)) },
		func(key []byte) { ops = append(ops, "del "+string(key)) })
	require.NoError(t, err)
	assert.Equal(t, []string{"put a=1", "del b", "put c=3"}, ops)
}

func TestWriteBatchSeq(t *testing.T) {
	b := newWriteBatch()
	assert.Equal(t, uint64(0), b.seq())
	b.setSeq(42)
	assert.Equal(t, uint64(42), b.seq())

	b.put([]byte("k"), []byte("v"))
	assert.Equal(t, uint64(42), b.seq(), "records do not disturb the header")
}

func TestWriteBatchClearResets(t *testing.T) {
	b := newWriteBatch()
	b.setSeq(7)
	b.put([]byte("k"), []byte("v"))
	b.clear()

	assert.Equal(t, uint32(0), b.count())
	assert.Equal(t, uint64(0), b.seq())
	err := b.iterate(
		func(key, value []byte) { t.Fatal("cleared batch yielded a put") },
		func(key []byte) { t.Fatal("cleared batch yielded a delete") })
	require.NoError(t, err)
}

func TestWriteBatchEmptyValuesAndKeys(t *testing.T) {
	b := newWriteBatch()
	b.put(nil, nil)
	b.put([]byte("k"), nil)

	var n int
	err := b.iterate(
		func(key, value []byte) {
			n++
			assert.Empty(t, value)
		},
		func(key []byte) { t.Fatal("unexpected delete") })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWriteBatchCorrupted(t *testing.T) {
	b := newWriteBatch()
	b.put([]byte("k"), []byte("v"))

	// Chop the record mid-way; the declared count no longer matches.
	b.data = b.data[:len(b.data)-2]
	err := b.iterate(func(key, value []byte) {}, func(key []byte) {})
	require.ErrorIs(t, err, errBatchCorrupted)
}
