package quarry

// iterator.go implements ordered traversal over the keyspace.
//
// An iterator is a cursor that is either positioned on an entry or
// invalid. It starts invalid; one of the seek operations positions
// it. Key and Value borrow engine memory that is only guaranteed
// stable until the cursor moves, so both return copies.

import (
	"runtime"
	"slices"

	"github.com/quarrykv/quarry/internal/native"
)

// Iterator traverses keys in comparator order. It observes the state
// of the database at creation time (or at the attached snapshot) and
// never sees writes made after it was created. An Iterator is not
// safe for concurrent use.
type Iterator struct {
	db        *DB
	handle    uintptr
	destroyRO func()

	// snapshot keeps an attached snapshot reachable for the life of
	// the cursor.
	snapshot *Snapshot

	closed bool
}

// Valid reports whether the cursor is positioned on an entry.
func (it *Iterator) Valid() bool {
	if it.closed {
		return false
	}
	return it.db.eng.IterValid(it.handle)
}

// SeekToFirst positions the cursor on the first entry. The cursor
// becomes invalid if the database is empty.
func (it *Iterator) SeekToFirst() {
	if it.closed {
		return
	}
	it.db.eng.IterSeekToFirst(it.handle)
}

// SeekToLast positions the cursor on the last entry.
func (it *Iterator) SeekToLast() {
	if it.closed {
		return
	}
	it.db.eng.IterSeekToLast(it.handle)
}

// Seek positions the cursor on the first entry whose key is at or
// past target in comparator order. The cursor becomes invalid when
// every key orders before target.
func (it *Iterator) Seek(target []byte) {
	if it.closed {
		return
	}
	ptr, n := native.BytesPtr(target)
	it.db.eng.IterSeek(it.handle, ptr, n)
	runtime.KeepAlive(target)
}

// Next advances the cursor. Advancing past the last entry leaves the
// cursor invalid; calling Next on an invalid cursor is a no-op.
func (it *Iterator) Next() {
	if it.closed || !it.db.eng.IterValid(it.handle) {
		return
	}
	it.db.eng.IterNext(it.handle)
}

// Prev steps the cursor backward. Stepping before the first entry
// leaves the cursor invalid; calling Prev on an invalid cursor is a
// no-op.
func (it *Iterator) Prev() {
	if it.closed || !it.db.eng.IterValid(it.handle) {
		return
	}
	it.db.eng.IterPrev(it.handle)
}

// Key returns a copy of the key under the cursor, or
// ErrIteratorInvalid when the cursor is not positioned.
func (it *Iterator) Key() ([]byte, error) {
	return it.entry(it.db.eng.IterKey)
}

// Value returns a copy of the value under the cursor, or
// ErrIteratorInvalid when the cursor is not positioned.
func (it *Iterator) Value() ([]byte, error) {
	return it.entry(it.db.eng.IterValue)
}

func (it *Iterator) entry(read func(uintptr, *int) uintptr) ([]byte, error) {
	if it.closed {
		return nil, ErrIteratorClosed
	}
	if !it.db.eng.IterValid(it.handle) {
		return nil, ErrIteratorInvalid
	}
	var n int
	p := read(it.handle, &n)
	if p == 0 {
		return nil, ErrIteratorInvalid
	}
	// The engine owns this buffer only until the cursor moves.
	return slices.Clone(native.Span(p, n)), nil
}

// Err returns the first error the cursor encountered while reading,
// or nil. An invalid cursor with a nil Err simply ran off the end of
// the keyspace.
func (it *Iterator) Err() error {
	if it.closed {
		return ErrIteratorClosed
	}
	var errp uintptr
	it.db.eng.IterGetError(it.handle, &errp)
	return takeError(it.db.eng, errp)
}

// Close releases the cursor. It is idempotent. The attached snapshot,
// if any, is not released; that remains the caller's responsibility.
func (it *Iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.db.eng.IterDestroy(it.handle)
	it.handle = 0
	if it.destroyRO != nil {
		it.destroyRO()
		it.destroyRO = nil
	}
	it.snapshot = nil
	return nil
}
