// Package compression provides per-record compression for the
// embedded engine's journal and segment frames. Each frame carries a
// one-byte type indicator alongside the compressed payload.
package compression

import (
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a compression algorithm. The values match the
// engine ABI's compression constants.
type Type uint8

const (
	// None stores payloads verbatim.
	None Type = 0

	// Snappy uses Google Snappy block compression.
	Snappy Type = 1

	// Zstd uses Zstandard at its default level.
	Zstd Type = 2

	// LZ4 uses LZ4 block compression at the fast level.
	LZ4 Type = 3
)

// String returns the human-readable name of the compression type.
func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case Snappy:
		return "Snappy"
	case Zstd:
		return "Zstd"
	case LZ4:
		return "LZ4"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// IsSupported reports whether this build can encode and decode t.
func (t Type) IsSupported() bool {
	switch t {
	case None, Snappy, Zstd, LZ4:
		return true
	default:
		return false
	}
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Compress encodes data with the given type.
func Compress(t Type, data []byte) ([]byte, error) {
	switch t {
	case None:
		return data, nil

	case Snappy:
		return snappy.Encode(nil, data), nil

	case Zstd:
		return zstdEncoder.EncodeAll(data, nil), nil

	case LZ4:
		return compressLZ4(data)

	default:
		return nil, fmt.Errorf("compression: unsupported type %s", t)
	}
}

// Decompress decodes data previously produced by Compress with the
// same type.
func Decompress(t Type, data []byte) ([]byte, error) {
	switch t {
	case None:
		return data, nil

	case Snappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("compression: snappy decode: %w", err)
		}
		return out, nil

	case Zstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("compression: zstd decode: %w", err)
		}
		return out, nil

	case LZ4:
		return decompressLZ4(data)

	default:
		return nil, fmt.Errorf("compression: unsupported type %s", t)
	}
}

// LZ4 block compression does not record the uncompressed size, so the
// payload carries a fixed 4-byte little-endian size prefix.
func compressLZ4(data []byte) ([]byte, error) {
	buf := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	buf[0] = byte(len(data))
	buf[1] = byte(len(data) >> 8)
	buf[2] = byte(len(data) >> 16)
	buf[3] = byte(len(data) >> 24)
	var c lz4.Compressor
	n, err := c.CompressBlock(data, buf[4:])
	if err != nil {
		return nil, fmt.Errorf("compression: lz4 encode: %w", err)
	}
	if n == 0 {
		// Incompressible input is stored raw after the prefix.
		return append(buf[:4], data...), nil
	}
	return buf[:4+n], nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("compression: lz4 block too short: %w", io.ErrUnexpectedEOF)
	}
	size := int(data[0]) | int(data[1])<<8 | int(data[2])<<16 | int(data[3])<<24
	if size < 0 {
		return nil, fmt.Errorf("compression: lz4 size prefix overflow")
	}
	if size == len(data)-4 {
		// Stored raw.
		out := make([]byte, size)
		copy(out, data[4:])
		return out, nil
	}
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(data[4:], out)
	if err != nil {
		return nil, fmt.Errorf("compression: lz4 decode: %w", err)
	}
	return out[:n], nil
}
