package quarry

// db.go implements the database handle: one open engine connection
// with deterministic, exactly-once release of the native resources it
// owns. Every native call converts the out-error pointer into a typed
// Go error before any further logic runs.

import (
	"runtime"
	"slices"
	"sync"

	"github.com/quarrykv/quarry/internal/native"
)

// DB is an open database connection. A DB may serve concurrent
// readers; concurrent writers rely on the engine's internal
// serialization. Close must not race with in-flight operations.
type DB struct {
	eng  native.Engine
	path string

	mu     sync.Mutex
	handle uintptr
	closed bool

	// The bundle co-owns the auxiliary objects (cache, filter policy,
	// comparator, env); holding it here guarantees they stay
	// reachable while the connection lives. The native comparator is
	// created per open and destroyed on Close.
	opts      *Options
	cmpHandle uintptr
}

// Range is a key range for size approximation. A nil Start or Limit
// is open-ended on that side.
type Range struct {
	Start []byte
	Limit []byte
}

// Open opens the database at path. A nil opts means DefaultOptions().
// The returned DB owns one native connection; callers needing a
// different configuration open a new DB rather than mutating a live
// one.
func Open(path string, opts *Options) (*DB, error) {
	eng := engine()
	optsH, cmpH, destroyOpts := opts.materialize(eng)
	defer destroyOpts()

	var errp uintptr
	handle := eng.Open(optsH, path, &errp)
	if err := takeError(eng, errp); err != nil {
		if cmpH != 0 {
			eng.ComparatorDestroy(cmpH)
		}
		return nil, &OpenError{Path: path, Err: err}
	}
	if handle == 0 {
		// The engine reported neither a handle nor an error; surface
		// it as a generic open failure rather than guessing.
		if cmpH != 0 {
			eng.ComparatorDestroy(cmpH)
		}
		return nil, &OpenError{Path: path, Err: &EngineError{Message: "engine returned no handle"}}
	}
	return &DB{eng: eng, path: path, handle: handle, opts: opts, cmpHandle: cmpH}, nil
}

// Path returns the directory this DB was opened at.
func (db *DB) Path() string { return db.path }

// Close releases the native connection. It is idempotent and safe to
// call on an already-closed DB; it never fails.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	db.eng.Close(db.handle)
	db.handle = 0
	if db.cmpHandle != 0 {
		db.eng.ComparatorDestroy(db.cmpHandle)
		db.cmpHandle = 0
	}
	return nil
}

// conn returns the live handle or ErrDBClosed.
func (db *DB) conn() (uintptr, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return 0, ErrDBClosed
	}
	return db.handle, nil
}

// Put sets the value for key. A nil wo means DefaultWriteOptions().
func (db *DB) Put(wo *WriteOptions, key, value []byte) error {
	h, err := db.conn()
	if err != nil {
		return err
	}
	woh, done := wo.materialize(db.eng)
	defer done()

	kptr, klen := native.BytesPtr(key)
	vptr, vlen := native.BytesPtr(value)
	var errp uintptr
	db.eng.Put(h, woh, kptr, klen, vptr, vlen, &errp)
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
	return takeError(db.eng, errp)
}

// Delete removes key. Deleting an absent key is not an error.
func (db *DB) Delete(wo *WriteOptions, key []byte) error {
	h, err := db.conn()
	if err != nil {
		return err
	}
	woh, done := wo.materialize(db.eng)
	defer done()

	kptr, klen := native.BytesPtr(key)
	var errp uintptr
	db.eng.Delete(h, woh, kptr, klen, &errp)
	runtime.KeepAlive(key)
	return takeError(db.eng, errp)
}

// getView performs the native read and returns an owned view over the
// engine's result buffer, or nil when the key is absent.
func (db *DB) getView(ro *ReadOptions, key []byte) (*ByteView, error) {
	h, err := db.conn()
	if err != nil {
		return nil, err
	}
	roh, done, err := ro.materialize(db.eng)
	if err != nil {
		return nil, err
	}
	defer done()

	kptr, klen := native.BytesPtr(key)
	var vlen int
	var errp uintptr
	p := db.eng.Get(h, roh, kptr, klen, &vlen, &errp)
	runtime.KeepAlive(key)
	if err := takeError(db.eng, errp); err != nil {
		return nil, err
	}
	if p == 0 {
		// Null value with null error is the engine's "not found".
		return nil, nil
	}
	return OwnedView(p, vlen, db.eng.Free), nil
}

// Get returns a copy of the value stored for key, or ErrNotFound.
func (db *DB) Get(ro *ReadOptions, key []byte) ([]byte, error) {
	view, err := db.getView(ro, key)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, ErrNotFound
	}
	defer view.Release()
	span, err := view.Bytes()
	if err != nil {
		return nil, err
	}
	return slices.Clone(span), nil
}

// Has reports whether key is present.
func (db *DB) Has(ro *ReadOptions, key []byte) (bool, error) {
	view, err := db.getView(ro, key)
	if err != nil {
		return false, err
	}
	if view == nil {
		return false, nil
	}
	return true, view.Release()
}

// Write applies the batch atomically: either every entry becomes
// visible or none does.
func (db *DB) Write(wo *WriteOptions, batch *WriteBatch) error {
	h, err := db.conn()
	if err != nil {
		return err
	}
	if batch.closed {
		return ErrBatchClosed
	}
	woh, done := wo.materialize(db.eng)
	defer done()

	var errp uintptr
	db.eng.Write(h, woh, batch.handle, &errp)
	return takeError(db.eng, errp)
}

// GetSnapshot creates a point-in-time read view. The snapshot must be
// released before the DB closes.
func (db *DB) GetSnapshot() (*Snapshot, error) {
	h, err := db.conn()
	if err != nil {
		return nil, err
	}
	return &Snapshot{db: db, handle: db.eng.CreateSnapshot(h)}, nil
}

// NewIterator creates an iterator over the database. The iterator
// starts unpositioned; call SeekToFirst, SeekToLast, or Seek before
// reading. It must not outlive the DB.
func (db *DB) NewIterator(ro *ReadOptions) (*Iterator, error) {
	h, err := db.conn()
	if err != nil {
		return nil, err
	}
	roh, done, err := ro.materialize(db.eng)
	if err != nil {
		return nil, err
	}
	it := db.eng.CreateIterator(h, roh)
	var snap *Snapshot
	if ro != nil {
		snap = ro.Snapshot
	}
	return &Iterator{db: db, handle: it, destroyRO: done, snapshot: snap}, nil
}

// PropertyValue returns the engine property named name, with false
// when the engine does not recognize it.
func (db *DB) PropertyValue(name string) (string, bool) {
	h, err := db.conn()
	if err != nil {
		return "", false
	}
	p := db.eng.PropertyValue(h, name)
	if p == 0 {
		return "", false
	}
	v := native.GoString(p)
	db.eng.Free(p)
	return v, true
}

// CompactRange compacts the key range [start, limit]. Nil bounds are
// open-ended; CompactRange(nil, nil) compacts the whole keyspace.
func (db *DB) CompactRange(start, limit []byte) error {
	h, err := db.conn()
	if err != nil {
		return err
	}
	sptr, slen := native.BytesPtr(start)
	lptr, llen := native.BytesPtr(limit)
	db.eng.CompactRange(h, sptr, slen, lptr, llen)
	runtime.KeepAlive(start)
	runtime.KeepAlive(limit)
	return nil
}

// ApproximateSizes returns the approximate on-disk size of each
// range.
func (db *DB) ApproximateSizes(ranges []Range) ([]uint64, error) {
	h, err := db.conn()
	if err != nil {
		return nil, err
	}
	starts := make([][]byte, len(ranges))
	limits := make([][]byte, len(ranges))
	for i, r := range ranges {
		starts[i], limits[i] = r.Start, r.Limit
	}
	return db.eng.ApproximateSizes(h, starts, limits), nil
}

// DestroyDatabase removes the database at path entirely. It must not
// be called while a DB is open on the same path.
func DestroyDatabase(path string, opts *Options) error {
	eng := engine()
	optsH, cmpH, destroyOpts := opts.materialize(eng)
	defer destroyOpts()
	if cmpH != 0 {
		defer eng.ComparatorDestroy(cmpH)
	}
	var errp uintptr
	eng.DestroyDB(optsH, path, &errp)
	if err := takeError(eng, errp); err != nil {
		return &OpenError{Path: path, Err: err}
	}
	return nil
}

// RepairDatabase attempts to recover as much data as possible from a
// damaged database directory. It must not be called while a DB is
// open on the same path.
func RepairDatabase(path string, opts *Options) error {
	eng := engine()
	optsH, cmpH, destroyOpts := opts.materialize(eng)
	defer destroyOpts()
	if cmpH != 0 {
		defer eng.ComparatorDestroy(cmpH)
	}
	var errp uintptr
	eng.RepairDB(optsH, path, &errp)
	if err := takeError(eng, errp); err != nil {
		return &OpenError{Path: path, Err: err}
	}
	return nil
}
