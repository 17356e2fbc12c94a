package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBloomNoFalseNegatives(t *testing.T) {
	b := NewBuilder(10)
	for i := 0; i < 1000; i++ {
		b.AddKey([]byte(fmt.Sprintf("key-%04d", i)))
	}
	require.Equal(t, 1000, b.KeyCount())

	f := b.Finish()
	for i := 0; i < 1000; i++ {
		assert.True(t, f.MayContain([]byte(fmt.Sprintf("key-%04d", i))),
			"added key %d reported absent", i)
	}
}

func TestBloomFalsePositiveRate(t *testing.T) {
	b := NewBuilder(10)
	for i := 0; i < 10000; i++ {
		b.AddKey([]byte(fmt.Sprintf("member-%05d", i)))
	}
	f := b.Finish()

	fp := 0
	probes := 10000
	for i := 0; i < probes; i++ {
		if f.MayContain([]byte(fmt.Sprintf("outsider-%05d", i))) {
			fp++
		}
	}
	// 10 bits per key targets about 1%; leave generous slack.
	assert.Less(t, float64(fp)/float64(probes), 0.05)
}

func TestBloomEmptyFilter(t *testing.T) {
	f := NewBuilder(10).Finish()
	assert.GreaterOrEqual(t, f.SizeBytes(), 8, "a minimum-size bit array is always allocated")
	assert.False(t, f.MayContain([]byte("anything")))
}

func TestBloomTinyBitsPerKey(t *testing.T) {
	// Degenerate configurations clamp rather than misbehave.
	b := NewBuilder(0)
	b.AddKey([]byte("k"))
	f := b.Finish()
	assert.True(t, f.MayContain([]byte("k")))
}
