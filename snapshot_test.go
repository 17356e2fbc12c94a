package quarry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotIsolation(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Put(nil, []byte("k"), []byte("v1")))

	snap, err := db.GetSnapshot()
	require.NoError(t, err)
	defer snap.Release()

	require.NoError(t, db.Put(nil, []byte("k"), []byte("v2")))
	require.NoError(t, db.Put(nil, []byte("new"), []byte("x")))

	ro := &ReadOptions{Snapshot: snap}

	got, err := db.Get(ro, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got, "snapshot sees the value at capture time")

	_, err = db.Get(ro, []byte("new"))
	require.ErrorIs(t, err, ErrNotFound, "snapshot does not see later inserts")

	got, err = db.Get(nil, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got, "plain reads see the latest state")
}

func TestSnapshotSurvivesDelete(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Put(nil, []byte("k"), []byte("v")))

	snap, err := db.GetSnapshot()
	require.NoError(t, err)
	defer snap.Release()

	require.NoError(t, db.Delete(nil, []byte("k")))

	got, err := db.Get(&ReadOptions{Snapshot: snap}, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = db.Get(nil, []byte("k"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotIterator(t *testing.T) {
	db := openTestDB(t)
	fillKeys(t, db, "a", "b")

	snap, err := db.GetSnapshot()
	require.NoError(t, err)
	defer snap.Release()

	fillKeys(t, db, "c")

	it, err := db.NewIterator(&ReadOptions{Snapshot: snap})
	require.NoError(t, err)
	defer it.Close()

	assert.Equal(t, []string{"a", "b"}, collectForward(t, it))
}

func TestSnapshotReleased(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Put(nil, []byte("k"), []byte("v")))

	snap, err := db.GetSnapshot()
	require.NoError(t, err)
	snap.Release()
	snap.Release() // idempotent

	_, err = db.Get(&ReadOptions{Snapshot: snap}, []byte("k"))
	require.ErrorIs(t, err, ErrSnapshotReleased)

	_, err = db.NewIterator(&ReadOptions{Snapshot: snap})
	require.ErrorIs(t, err, ErrSnapshotReleased)
}

func TestSnapshotReleaseAfterDBClose(t *testing.T) {
	db := openTestDB(t)
	snap, err := db.GetSnapshot()
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// The engine reclaimed the snapshot with the DB; releasing the
	// stale handle must be harmless.
	snap.Release()
}
