package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("compressible payload "), 100)
	for _, ct := range []Type{None, Snappy, Zstd, LZ4} {
		t.Run(ct.String(), func(t *testing.T) {
			compressed, err := Compress(ct, payload)
			require.NoError(t, err)
			if ct != None {
				assert.Less(t, len(compressed), len(payload))
			}

			got, err := Decompress(ct, compressed)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestEmptyPayload(t *testing.T) {
	for _, ct := range []Type{None, Snappy, Zstd, LZ4} {
		compressed, err := Compress(ct, nil)
		require.NoError(t, err)
		got, err := Decompress(ct, compressed)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestIncompressibleLZ4(t *testing.T) {
	// High-entropy-ish short input exercises the raw-storage path of
	// the LZ4 block wrapper.
	payload := []byte{0x00, 0xFF, 0x7A, 0x13, 0xC4}
	compressed, err := Compress(LZ4, payload)
	require.NoError(t, err)
	got, err := Decompress(LZ4, compressed)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestUnknownType(t *testing.T) {
	_, err := Compress(Type(200), []byte("x"))
	require.Error(t, err)
	_, err = Decompress(Type(200), []byte("x"))
	require.Error(t, err)
	assert.False(t, Type(200).IsSupported())
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "None", None.String())
	assert.Equal(t, "Snappy", Snappy.String())
	assert.Equal(t, "Zstd", Zstd.String())
	assert.Equal(t, "LZ4", LZ4.String())
}

func TestCorruptInput(t *testing.T) {
	for _, ct := range []Type{Snappy, Zstd} {
		_, err := Decompress(ct, []byte("definitely not a compressed stream"))
		assert.Error(t, err, "type %s accepted garbage", ct)
	}

	// A size prefix claiming five bytes over a one-byte block.
	_, err := Decompress(LZ4, []byte{5, 0, 0, 0, 0xFF})
	assert.Error(t, err)
	_, err = Decompress(LZ4, []byte{1, 2})
	assert.Error(t, err, "block shorter than its size prefix")
}
