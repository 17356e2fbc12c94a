package embedded

// batch.go implements the write batch record buffer. The encoding is
// the classic log-structured layout: a 12-byte header carrying the
// base sequence number and the record count, followed by tagged,
// length-prefixed records. The same bytes travel to the journal
// unchanged, so a batch is both the atomic write unit and the
// recovery unit.
//
//	Header (12 bytes):
//	  - 8 bytes: base sequence number (little-endian uint64)
//	  - 4 bytes: record count (little-endian uint32)
//	Records (repeated):
//	  - 1 byte: kind (kindValue | kindDelete)
//	  - uvarint key length, key bytes
//	  - for kindValue: uvarint value length, value bytes

import (
	"encoding/binary"
	"errors"
)

const batchHeaderSize = 12

var errBatchCorrupted = errors.New("embedded: corrupted write batch")

type writeBatch struct {
	data []byte
}

func newWriteBatch() *writeBatch {
	return &writeBatch{data: make([]byte, batchHeaderSize)}
}

func (b *writeBatch) clear() {
	b.data = b.data[:batchHeaderSize]
	for i := range b.data {
		b.data[i] = 0
	}
}

func (b *writeBatch) count() uint32 {
	return binary.LittleEndian.Uint32(b.data[8:12])
}

func (b *writeBatch) setCount(n uint32) {
	binary.LittleEndian.PutUint32(b.data[8:12], n)
}

func (b *writeBatch) seq() uint64 {
	return binary.LittleEndian.Uint64(b.data[0:8])
}

func (b *writeBatch) setSeq(seq uint64) {
	binary.LittleEndian.PutUint64(b.data[0:8], seq)
}

func (b *writeBatch) put(key, value []byte) {
	b.data = append(b.data, kindValue)
	b.data = binary.AppendUvarint(b.data, uint64(len(key)))
	b.data = append(b.data, key...)
	b.data = binary.AppendUvarint(b.data, uint64(len(value)))
	b.data = append(b.data, value...)
	b.setCount(b.count() + 1)
}

func (b *writeBatch) delete(key []byte) {
	b.data = append(b.data, kindDelete)
	b.data = binary.AppendUvarint(b.data, uint64(len(key)))
	b.data = append(b.data, key...)
	b.setCount(b.count() + 1)
}

// iterate replays the records in insertion order. The key and value
// slices alias the batch buffer; visitors must copy what they keep.
func (b *writeBatch) iterate(put func(key, value []byte), del func(key []byte)) error {
	rest := b.data[batchHeaderSize:]
	for n := b.count(); n > 0; n-- {
		if len(rest) == 0 {
			return errBatchCorrupted
		}
		kind := rest[0]
		rest = rest[1:]
		key, tail, ok := readBlob(rest)
		if !ok {
			return errBatchCorrupted
		}
		rest = tail
		switch kind {
		case kindValue:
			value, tail, ok := readBlob(rest)
			if !ok {
				return errBatchCorrupted
			}
			rest = tail
			if put != nil {
				put(key, value)
			}
		case kindDelete:
			if del != nil {
				del(key)
			}
		default:
			return errBatchCorrupted
		}
	}
	if len(rest) != 0 {
		return errBatchCorrupted
	}
	return nil
}

func readBlob(b []byte) (blob, rest []byte, ok bool) {
	n, w := binary.Uvarint(b)
	if w <= 0 || uint64(len(b)-w) < n {
		return nil, nil, false
	}
	return b[w : w+int(n)], b[w+int(n):], true
}
