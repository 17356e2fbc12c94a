package quarry

// write_batch.go implements atomic multi-operation writes.

import (
	"runtime"

	"github.com/quarrykv/quarry/internal/native"
)

// WriteBatch accumulates put and delete operations for atomic
// application via DB.Write. Entries are applied in the order they
// were added, so a later operation on a key supersedes an earlier
// one in the same batch. A WriteBatch is not safe for concurrent use.
type WriteBatch struct {
	eng    native.Engine
	handle uintptr
	closed bool
}

// BatchVisitor receives the entries of a batch in insertion order.
type BatchVisitor interface {
	Put(key, value []byte)
	Delete(key []byte)
}

// NewWriteBatch creates an empty batch. Close it when done.
func NewWriteBatch() *WriteBatch {
	eng := engine()
	return &WriteBatch{eng: eng, handle: eng.WriteBatchCreate()}
}

// Put records a key/value insertion.
func (b *WriteBatch) Put(key, value []byte) error {
	if b.closed {
		return ErrBatchClosed
	}
	kptr, klen := native.BytesPtr(key)
	vptr, vlen := native.BytesPtr(value)
	b.eng.WriteBatchPut(b.handle, kptr, klen, vptr, vlen)
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
	return nil
}

// Delete records a key removal.
func (b *WriteBatch) Delete(key []byte) error {
	if b.closed {
		return ErrBatchClosed
	}
	kptr, klen := native.BytesPtr(key)
	b.eng.WriteBatchDelete(b.handle, kptr, klen)
	runtime.KeepAlive(key)
	return nil
}

// Clear removes every recorded operation, leaving the batch empty and
// reusable.
func (b *WriteBatch) Clear() error {
	if b.closed {
		return ErrBatchClosed
	}
	b.eng.WriteBatchClear(b.handle)
	return nil
}

// Iterate replays the recorded operations through v in insertion
// order. The spans passed to v are only valid for the duration of
// each callback.
func (b *WriteBatch) Iterate(v BatchVisitor) error {
	if b.closed {
		return ErrBatchClosed
	}
	b.eng.WriteBatchIterate(b.handle, v.Put, v.Delete)
	return nil
}

// Close releases the batch. It is idempotent.
func (b *WriteBatch) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.eng.WriteBatchDestroy(b.handle)
	b.handle = 0
	return nil
}
