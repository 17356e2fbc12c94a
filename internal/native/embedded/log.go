package embedded

// log.go implements the on-disk frame format shared by the journal
// (live write-ahead log) and the segment (compacted rewrite). A frame
// wraps one batch:
//
//	uint32  payload length (compressed, little-endian)
//	byte    compression type
//	uint64  XXH3 of the compression byte + compressed payload
//	bytes   payload
//
// The checksum covers the compression byte so a flipped type
// indicator is caught the same way as flipped payload bytes.

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"

	"github.com/quarrykv/quarry/internal/compression"
)

const frameHeaderSize = 4 + 1 + 8

var errFrameCorrupt = errors.New("embedded: corrupt log frame")

// journalName and segmentName are the engine-owned files inside a
// database directory. lockName guards single-process exclusivity.
const (
	journalName = "JOURNAL"
	segmentName = "SEGMENT"
	lockName    = "LOCK"
)

func frameChecksum(ctype byte, payload []byte) uint64 {
	var h xxh3.Hasher
	_, _ = h.Write([]byte{ctype})
	_, _ = h.Write(payload)
	return h.Sum64()
}

// appendFrame encodes payload into a frame and returns the encoded
// bytes.
func appendFrame(dst []byte, ctype compression.Type, payload []byte) ([]byte, error) {
	compressed, err := compression.Compress(ctype, payload)
	if err != nil {
		return nil, err
	}
	// Fall back to storing raw when compression does not pay.
	if len(compressed) >= len(payload) && ctype != compression.None {
		ctype = compression.None
		compressed = payload
	}
	var hdr [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(compressed)))
	hdr[4] = byte(ctype)
	binary.LittleEndian.PutUint64(hdr[5:13], frameChecksum(byte(ctype), compressed))
	dst = append(dst, hdr[:]...)
	return append(dst, compressed...), nil
}

// frameReader decodes frames sequentially and remembers the offset of
// the frame it is about to read, which repair uses as the truncation
// point on corruption.
type frameReader struct {
	r      io.Reader
	offset int64
}

// next returns the decompressed payload of the next frame. It returns
// io.EOF at a clean end of stream and errFrameCorrupt (wrapped) when
// the stream is damaged.
func (fr *frameReader) next() ([]byte, error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(fr.r, hdr[:1]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: header: %v", errFrameCorrupt, err)
	}
	if _, err := io.ReadFull(fr.r, hdr[1:]); err != nil {
		return nil, fmt.Errorf("%w: truncated header", errFrameCorrupt)
	}
	n := binary.LittleEndian.Uint32(hdr[0:4])
	ctype := hdr[4]
	want := binary.LittleEndian.Uint64(hdr[5:13])
	if n > 1<<30 {
		return nil, fmt.Errorf("%w: implausible frame length %d", errFrameCorrupt, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		return nil, fmt.Errorf("%w: truncated payload", errFrameCorrupt)
	}
	if got := frameChecksum(ctype, payload); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch (got %#x want %#x)", errFrameCorrupt, got, want)
	}
	out, err := compression.Decompress(compression.Type(ctype), payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errFrameCorrupt, err)
	}
	fr.offset += int64(frameHeaderSize) + int64(n)
	return out, nil
}

// scanValidPrefix reads frames from path and returns the byte offset
// of the end of the last intact frame.
func scanValidPrefix(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	fr := &frameReader{r: f}
	for {
		_, err := fr.next()
		if errors.Is(err, io.EOF) {
			return fr.offset, nil
		}
		if err != nil {
			return fr.offset, nil
		}
	}
}
