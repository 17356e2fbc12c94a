package quarry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillKeys(t *testing.T, db *DB, keys ...string) {
	t.Helper()
	for _, k := range keys {
		require.NoError(t, db.Put(nil, []byte(k), []byte("v-"+k)))
	}
}

func collectForward(t *testing.T, it *Iterator) []string {
	t.Helper()
	var keys []string
	for it.SeekToFirst(); it.Valid(); it.Next() {
		k, err := it.Key()
		require.NoError(t, err)
		keys = append(keys, string(k))
	}
	require.NoError(t, it.Err())
	return keys
}

func TestIteratorForward(t *testing.T) {
	db := openTestDB(t)
	fillKeys(t, db, "delta", "alpha", "charlie", "bravo")

	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	defer it.Close()

	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta"}, collectForward(t, it))
}

func TestIteratorReverse(t *testing.T) {
	db := openTestDB(t)
	fillKeys(t, db, "a", "b", "c")

	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for it.SeekToLast(); it.Valid(); it.Prev() {
		k, err := it.Key()
		require.NoError(t, err)
		keys = append(keys, string(k))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"c", "b", "a"}, keys)
}

func TestIteratorSeek(t *testing.T) {
	db := openTestDB(t)
	fillKeys(t, db, "apple", "cherry", "grape")

	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	defer it.Close()

	// Exact hit.
	it.Seek([]byte("cherry"))
	require.True(t, it.Valid())
	k, err := it.Key()
	require.NoError(t, err)
	assert.Equal(t, "cherry", string(k))

	// Between keys: lands on the next one in order.
	it.Seek([]byte("banana"))
	require.True(t, it.Valid())
	k, err = it.Key()
	require.NoError(t, err)
	assert.Equal(t, "cherry", string(k))

	// Past the end: invalid, no error.
	it.Seek([]byte("zebra"))
	assert.False(t, it.Valid())
	require.NoError(t, it.Err())
}

func TestIteratorValues(t *testing.T) {
	db := openTestDB(t)
	fillKeys(t, db, "x")

	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	defer it.Close()

	it.SeekToFirst()
	require.True(t, it.Valid())
	v, err := it.Value()
	require.NoError(t, err)
	assert.Equal(t, "v-x", string(v))
}

func TestIteratorUnpositioned(t *testing.T) {
	db := openTestDB(t)
	fillKeys(t, db, "a")

	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	defer it.Close()

	// Fresh iterators are invalid until a seek positions them.
	assert.False(t, it.Valid())
	_, err = it.Key()
	require.ErrorIs(t, err, ErrIteratorInvalid)
	_, err = it.Value()
	require.ErrorIs(t, err, ErrIteratorInvalid)
}

func TestIteratorEmptyDB(t *testing.T) {
	db := openTestDB(t)

	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	defer it.Close()

	it.SeekToFirst()
	assert.False(t, it.Valid())
	it.SeekToLast()
	assert.False(t, it.Valid())
	require.NoError(t, it.Err())
}

func TestIteratorIgnoresLaterWrites(t *testing.T) {
	db := openTestDB(t)
	fillKeys(t, db, "a", "b")

	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	defer it.Close()

	require.NoError(t, db.Put(nil, []byte("c"), []byte("late")))

	assert.Equal(t, []string{"a", "b"}, collectForward(t, it))
}

func TestIteratorSkipsDeleted(t *testing.T) {
	db := openTestDB(t)
	fillKeys(t, db, "a", "b", "c")
	require.NoError(t, db.Delete(nil, []byte("b")))

	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	defer it.Close()

	assert.Equal(t, []string{"a", "c"}, collectForward(t, it))
}

func TestIteratorClose(t *testing.T) {
	db := openTestDB(t)
	fillKeys(t, db, "a")

	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	require.NoError(t, it.Close())
	require.NoError(t, it.Close(), "close is idempotent")

	assert.False(t, it.Valid())
	_, err = it.Key()
	require.ErrorIs(t, err, ErrIteratorClosed)
	require.ErrorIs(t, it.Err(), ErrIteratorClosed)
}

type reverseComparator struct{}

func (reverseComparator) Compare(a, b []byte) int { return -BytewiseComparator{}.Compare(a, b) }
func (reverseComparator) Name() string            { return "test.ReverseComparator" }

func TestIteratorCustomComparator(t *testing.T) {
	opts := testOptions()
	opts.Comparator = reverseComparator{}

	db, err := Open(filepath.Join(t.TempDir(), "db"), opts)
	require.NoError(t, err)
	defer db.Close()

	fillKeys(t, db, "a", "c", "b")

	it, err := db.NewIterator(nil)
	require.NoError(t, err)
	defer it.Close()

	assert.Equal(t, []string{"c", "b", "a"}, collectForward(t, it))
}
