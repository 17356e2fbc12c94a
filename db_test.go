package quarry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() *Options {
	o := DefaultOptions()
	o.CreateIfMissing = true
	return o
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "db"), testOptions())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMissingWithoutCreate(t *testing.T) {
	opts := DefaultOptions()
	_, err := Open(filepath.Join(t.TempDir(), "absent"), opts)
	require.Error(t, err)
	var oe *OpenError
	require.ErrorAs(t, err, &oe)
	assert.Contains(t, oe.Path, "absent")
}

func TestOpenErrorIfExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := Open(dir, testOptions())
	require.NoError(t, err)
	require.NoError(t, db.Put(nil, []byte("k"), []byte("v")))
	require.NoError(t, db.Close())

	opts := testOptions()
	opts.ErrorIfExists = true
	_, err = Open(dir, opts)
	require.Error(t, err)
}

func TestPutGetDelete(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Put(nil, []byte("name"), []byte("quarry")))
	got, err := db.Get(nil, []byte("name"))
	require.NoError(t, err)
	assert.Equal(t, []byte("quarry"), got)

	require.NoError(t, db.Delete(nil, []byte("name")))
	_, err = db.Get(nil, []byte("name"))
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key succeeds.
	require.NoError(t, db.Delete(nil, []byte("never-existed")))
}

func TestGetAbsent(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Get(nil, []byte("nope"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidState, "absence is not a state error")
}

func TestHas(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Put(nil, []byte("a"), []byte("1")))

	ok, err := db.Has(nil, []byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.Has(nil, []byte("b"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmptyValue(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Put(nil, []byte("empty"), nil))

	got, err := db.Get(nil, []byte("empty"))
	require.NoError(t, err)
	assert.Empty(t, got)

	ok, err := db.Has(nil, []byte("empty"))
	require.NoError(t, err)
	assert.True(t, ok, "empty value is distinct from absence")
}

func TestOverwrite(t *testing.T) {
	db := openTestDB(t)
	key := []byte("k")
	require.NoError(t, db.Put(nil, key, []byte("first")))
	require.NoError(t, db.Put(nil, key, []byte("second")))

	got, err := db.Get(nil, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestClosedDB(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close(), "close is idempotent")

	require.ErrorIs(t, db.Put(nil, []byte("k"), []byte("v")), ErrDBClosed)
	_, err := db.Get(nil, []byte("k"))
	require.ErrorIs(t, err, ErrDBClosed)
	require.ErrorIs(t, db.Delete(nil, []byte("k")), ErrDBClosed)
	_, err = db.GetSnapshot()
	require.ErrorIs(t, err, ErrDBClosed)
	_, err = db.NewIterator(nil)
	require.ErrorIs(t, err, ErrDBClosed)
}

func TestReopenPersistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")

	db, err := Open(dir, testOptions())
	require.NoError(t, err)
	require.NoError(t, db.Put(nil, []byte("durable"), []byte("yes")))
	require.NoError(t, db.Put(nil, []byte("gone"), []byte("soon")))
	require.NoError(t, db.Delete(nil, []byte("gone")))
	require.NoError(t, db.Close())

	db, err = Open(dir, DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	got, err := db.Get(nil, []byte("durable"))
	require.NoError(t, err)
	assert.Equal(t, []byte("yes"), got)

	_, err = db.Get(nil, []byte("gone"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSyncWrite(t *testing.T) {
	db := openTestDB(t)
	wo := &WriteOptions{Sync: true}
	require.NoError(t, db.Put(wo, []byte("k"), []byte("v")))
	got, err := db.Get(nil, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestPropertyValue(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Put(nil, []byte("k"), []byte("v")))

	v, ok := db.PropertyValue("leveldb.stats")
	assert.True(t, ok)
	assert.NotEmpty(t, v)

	_, ok = db.PropertyValue("no.such.property")
	assert.False(t, ok)
}

func TestCompactRange(t *testing.T) {
	db := openTestDB(t)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, db.Put(nil, []byte(k), []byte("v-"+k)))
	}
	require.NoError(t, db.Delete(nil, []byte("b")))
	require.NoError(t, db.CompactRange(nil, nil))

	got, err := db.Get(nil, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v-a"), got)
	_, err = db.Get(nil, []byte("b"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApproximateSizes(t *testing.T) {
	db := openTestDB(t)
	for i := byte('a'); i <= 'z'; i++ {
		require.NoError(t, db.Put(nil, []byte{i}, make([]byte, 100)))
	}

	sizes, err := db.ApproximateSizes([]Range{
		{Start: []byte("a"), Limit: []byte("n")},
		{Start: []byte("x"), Limit: []byte("x")},
	})
	require.NoError(t, err)
	require.Len(t, sizes, 2)
	assert.Greater(t, sizes[0], uint64(0))
	assert.Equal(t, uint64(0), sizes[1], "empty range has no size")
}

func TestDestroyDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := Open(dir, testOptions())
	require.NoError(t, err)
	require.NoError(t, db.Put(nil, []byte("k"), []byte("v")))
	require.NoError(t, db.Close())

	require.NoError(t, DestroyDatabase(dir, nil))

	// The data is gone; a fresh open starts empty.
	db, err = Open(dir, testOptions())
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Get(nil, []byte("k"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOptionsWithAuxiliaries(t *testing.T) {
	cache := NewLRUCache(1 << 20)
	defer cache.Close()
	policy := NewBloomFilterPolicy(10)
	defer policy.Close()
	env := NewDefaultEnv()
	defer env.Close()

	opts := testOptions()
	opts.Cache = cache
	opts.FilterPolicy = policy
	opts.Env = env
	opts.Compression = ZstdCompression

	db, err := Open(filepath.Join(t.TempDir(), "db"), opts)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put(nil, []byte("k"), []byte("v")))
	got, err := db.Get(nil, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestCompressionPersistence(t *testing.T) {
	for _, ct := range []CompressionType{NoCompression, SnappyCompression, ZstdCompression, LZ4Compression} {
		dir := filepath.Join(t.TempDir(), "db")
		opts := testOptions()
		opts.Compression = ct
		db, err := Open(dir, opts)
		require.NoError(t, err)

		// Compressible payload so every codec takes its real path.
		val := make([]byte, 4096)
		require.NoError(t, db.Put(nil, []byte("blob"), val))
		require.NoError(t, db.Close())

		db, err = Open(dir, opts)
		require.NoError(t, err)
		got, err := db.Get(nil, []byte("blob"))
		require.NoError(t, err)
		assert.Equal(t, val, got)
		require.NoError(t, db.Close())
	}
}
