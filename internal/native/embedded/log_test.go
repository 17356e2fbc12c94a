package embedded

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrykv/quarry/internal/compression"
)

func TestFrameRoundTrip(t *testing.T) {
	for _, ct := range []compression.Type{
		compression.None, compression.Snappy, compression.Zstd, compression.LZ4,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			payload := bytes.Repeat([]byte("payload "), 64)
			frame, err := appendFrame(nil, ct, payload)
			require.NoError(t, err)

			fr := &frameReader{r: bytes.NewReader(frame)}
			got, err := fr.next()
			require.NoError(t, err)
			assert.Equal(t, payload, got)
			assert.Equal(t, int64(len(frame)), fr.offset)

			_, err = fr.next()
			require.ErrorIs(t, err, io.EOF, "stream ends cleanly at a frame boundary")
		})
	}
}

func TestFrameIncompressibleFallsBackToRaw(t *testing.T) {
	// One byte cannot shrink; the frame must store it uncompressed so
	// the overhead stays bounded.
	frame, err := appendFrame(nil, compression.Snappy, []byte{0xFF})
	require.NoError(t, err)
	assert.Equal(t, byte(compression.None), frame[4])

	fr := &frameReader{r: bytes.NewReader(frame)}
	got, err := fr.next()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, got)
}

func TestFrameChecksumMismatch(t *testing.T) {
	frame, err := appendFrame(nil, compression.None, []byte("payload"))
	require.NoError(t, err)
	frame[len(frame)-1] ^= 0x01

	fr := &frameReader{r: bytes.NewReader(frame)}
	_, err = fr.next()
	require.ErrorIs(t, err, errFrameCorrupt)
}

func TestFrameTruncated(t *testing.T) {
	frame, err := appendFrame(nil, compression.None, []byte("payload"))
	require.NoError(t, err)

	// Cut inside the payload.
	fr := &frameReader{r: bytes.NewReader(frame[:frameHeaderSize+2])}
	_, err = fr.next()
	require.ErrorIs(t, err, errFrameCorrupt)

	// Cut inside the header.
	fr = &frameReader{r: bytes.NewReader(frame[:3])}
	_, err = fr.next()
	require.ErrorIs(t, err, errFrameCorrupt)
}

func TestScanValidPrefix(t *testing.T) {
	f1, err := appendFrame(nil, compression.None, []byte("first"))
	require.NoError(t, err)
	data, err := appendFrame(f1, compression.None, []byte("second"))
	require.NoError(t, err)
	good := int64(len(data))
	data = append(data, "trailing garbage"...)

	path := filepath.Join(t.TempDir(), "JOURNAL")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	valid, err := scanValidPrefix(path)
	require.NoError(t, err)
	assert.Equal(t, good, valid)
}

func TestScanValidPrefixEmptyAndClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "JOURNAL")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	valid, err := scanValidPrefix(path)
	require.NoError(t, err)
	assert.Zero(t, valid)

	frame, err := appendFrame(nil, compression.Zstd, bytes.Repeat([]byte("x"), 256))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, frame, 0o644))

	valid, err = scanValidPrefix(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(frame)), valid)
}
