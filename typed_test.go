package quarry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedRoundTrip(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, PutValue(db, nil, int64(123), "blah"))

	got, found, err := GetValue[int64, string](db, nil, 123)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "blah", got)
}

func TestTypedAbsentIsZeroValue(t *testing.T) {
	db := openTestDB(t)

	got, found, err := GetValue[int64, string](db, nil, 999)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, got)

	n, found, err := GetValue[string, uint32](db, nil, "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, n)
}

func TestTypedDelete(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, PutValue(db, nil, "k", uint16(7)))
	require.NoError(t, DeleteValue(db, nil, "k"))

	_, found, err := GetValue[string, uint16](db, nil, "k")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting again is not an error.
	require.NoError(t, DeleteValue(db, nil, "k"))
}

func TestTypedFixedLayoutValue(t *testing.T) {
	type point struct {
		X, Y int32
		Tag  [4]byte
	}
	db := openTestDB(t)

	want := point{X: -3, Y: 14, Tag: [4]byte{'g', 'e', 'o', 0}}
	require.NoError(t, PutValue(db, nil, "origin", want))

	got, found, err := GetValue[string, point](db, nil, "origin")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func TestTypedSliceValue(t *testing.T) {
	db := openTestDB(t)

	want := []uint32{10, 20, 30}
	require.NoError(t, PutValue(db, nil, int32(1), want))

	got, found, err := GetValue[int32, []uint32](db, nil, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func TestTypedMismatchedWidth(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, PutValue(db, nil, "k", uint64(1)))

	// Reading 8 stored bytes as a 4-byte value must fail loudly.
	_, _, err := GetValue[string, uint32](db, nil, "k")
	require.Error(t, err)
	var ee *EncodingError
	require.ErrorAs(t, err, &ee)
}

func TestTypedUnsupportedType(t *testing.T) {
	db := openTestDB(t)

	err := PutValue(db, nil, "k", map[string]int{"a": 1})
	require.Error(t, err)
	var ee *EncodingError
	require.ErrorAs(t, err, &ee)
}
