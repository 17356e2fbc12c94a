package quarry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytewiseComparator(t *testing.T) {
	cmp := BytewiseComparator{}

	assert.Equal(t, "leveldb.BytewiseComparator", cmp.Name())

	assert.Negative(t, cmp.Compare([]byte("a"), []byte("b")))
	assert.Positive(t, cmp.Compare([]byte("b"), []byte("a")))
	assert.Zero(t, cmp.Compare([]byte("same"), []byte("same")))

	// A prefix orders before its extension.
	assert.Negative(t, cmp.Compare([]byte("ab"), []byte("abc")))

	// Bytes compare unsigned.
	assert.Negative(t, cmp.Compare([]byte{0x01}, []byte{0xFF}))

	// Empty orders first.
	assert.Negative(t, cmp.Compare(nil, []byte("a")))
}
