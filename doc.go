// Package quarry is a memory-safe Go binding for an embedded, ordered
// key-value engine exposed through the LevelDB C ABI.
//
// The engine is reached through opaque handles, pointer+length
// buffers, and nullable out-error strings. quarry wraps that surface
// into structured Go types with deterministic, exactly-once release
// of every native resource: database handles, iterators, snapshots,
// write batches, and the auxiliary objects (cache, filter policy,
// comparator, environment) an options bundle keeps alive.
//
// Two engine backends are available. By default quarry runs against a
// small pure-Go engine that implements the identical ABI, so the
// package works without any shared library installed. Calling
// UseNativeLibrary before creating any object switches the process to
// the real native library, loaded at runtime without cgo.
//
// Basic usage:
//
//	opts := quarry.DefaultOptions()
//	opts.CreateIfMissing = true
//
//	db, err := quarry.Open(dir, opts)
//	if err != nil {
//		// ...
//	}
//	defer db.Close()
//
//	err = db.Put(quarry.DefaultWriteOptions(), []byte("k"), []byte("v"))
//	val, err := db.Get(quarry.DefaultReadOptions(), []byte("k"))
//
// Reads of absent keys return ErrNotFound; the typed helpers
// (GetValue and friends) report absence as a zero value with a found
// flag instead.
//
// A DB may serve concurrent readers from multiple goroutines and
// relies on the engine's internal serialization for concurrent
// writers. Iterators, snapshots, and write batches are not safe for
// concurrent use without external synchronization. Closing a DB while
// operations are in flight on it is undefined; callers must
// quiesce first.
package quarry
