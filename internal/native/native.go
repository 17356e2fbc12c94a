// Package native defines the engine ABI the binding layer talks to.
//
// The ABI mirrors the LevelDB C API: opaque uintptr handles,
// pointer+length buffers for keys and values, and a nullable
// out-error pointer that, when set, owns a heap string which must be
// released through the engine's own Free routine. Two backends
// implement it: dynlib (the real shared library, loaded with purego)
// and embedded (a pure-Go engine).
//
// Reference: leveldb/include/leveldb/c.h
package native

// Engine is the full ABI surface. Handles returned by the Create*
// calls are owned by the caller and must be destroyed through the
// matching Destroy call exactly once. Buffers returned by Get,
// PropertyValue and the error strings written through errptr are
// engine-owned allocations that must be released through Free.
//
// Key and value buffers passed in are borrowed for the duration of
// the call only.
type Engine interface {
	// Options handles.
	OptionsCreate() uintptr
	OptionsDestroy(opts uintptr)
	OptionsSetCreateIfMissing(opts uintptr, v bool)
	OptionsSetErrorIfExists(opts uintptr, v bool)
	OptionsSetParanoidChecks(opts uintptr, v bool)
	OptionsSetCompression(opts uintptr, c int)
	OptionsSetWriteBufferSize(opts uintptr, n int)
	OptionsSetMaxOpenFiles(opts uintptr, n int)
	OptionsSetBlockSize(opts uintptr, n int)
	OptionsSetBlockRestartInterval(opts uintptr, n int)
	OptionsSetCache(opts, cache uintptr)
	OptionsSetFilterPolicy(opts, policy uintptr)
	OptionsSetComparator(opts, cmp uintptr)
	OptionsSetEnv(opts, env uintptr)

	// Read/write options handles.
	ReadOptionsCreate() uintptr
	ReadOptionsDestroy(ro uintptr)
	ReadOptionsSetVerifyChecksums(ro uintptr, v bool)
	ReadOptionsSetFillCache(ro uintptr, v bool)
	ReadOptionsSetSnapshot(ro, snap uintptr)
	WriteOptionsCreate() uintptr
	WriteOptionsDestroy(wo uintptr)
	WriteOptionsSetSync(wo uintptr, v bool)

	// Auxiliary objects attachable to options. Comparator callbacks
	// are bridged by each backend (purego.NewCallback for dynlib,
	// direct calls for embedded).
	CacheCreateLRU(capacity int) uintptr
	CacheDestroy(cache uintptr)
	FilterPolicyCreateBloom(bitsPerKey int) uintptr
	FilterPolicyDestroy(policy uintptr)
	ComparatorCreate(name string, compare func(a, b []byte) int) uintptr
	ComparatorDestroy(cmp uintptr)
	CreateDefaultEnv() uintptr
	EnvDestroy(env uintptr)

	// Database lifecycle and point operations.
	Open(opts uintptr, path string, errptr *uintptr) uintptr
	Close(db uintptr)
	Put(db, wo uintptr, key uintptr, keyLen int, val uintptr, valLen int, errptr *uintptr)
	Delete(db, wo uintptr, key uintptr, keyLen int, errptr *uintptr)
	// Get returns an engine-owned buffer, or 0 with *errptr left
	// untouched when the key is absent.
	Get(db, ro uintptr, key uintptr, keyLen int, valLen *int, errptr *uintptr) uintptr
	Write(db, wo, batch uintptr, errptr *uintptr)
	PropertyValue(db uintptr, name string) uintptr
	ApproximateSizes(db uintptr, starts, limits [][]byte) []uint64
	CompactRange(db uintptr, start uintptr, startLen int, limit uintptr, limitLen int)

	// Snapshots.
	CreateSnapshot(db uintptr) uintptr
	ReleaseSnapshot(db, snap uintptr)

	// Iterators. IterKey and IterValue return buffers borrowed from
	// the iterator, valid only until the next positioning call.
	CreateIterator(db, ro uintptr) uintptr
	IterDestroy(it uintptr)
	IterValid(it uintptr) bool
	IterSeekToFirst(it uintptr)
	IterSeekToLast(it uintptr)
	IterSeek(it uintptr, key uintptr, keyLen int)
	IterNext(it uintptr)
	IterPrev(it uintptr)
	IterKey(it uintptr, n *int) uintptr
	IterValue(it uintptr, n *int) uintptr
	IterGetError(it uintptr, errptr *uintptr)

	// Write batches.
	WriteBatchCreate() uintptr
	WriteBatchDestroy(batch uintptr)
	WriteBatchClear(batch uintptr)
	WriteBatchPut(batch uintptr, key uintptr, keyLen int, val uintptr, valLen int)
	WriteBatchDelete(batch uintptr, key uintptr, keyLen int)
	WriteBatchIterate(batch uintptr, put func(key, value []byte), del func(key []byte))

	// Whole-database maintenance. Must not run concurrently with an
	// open handle on the same path.
	DestroyDB(opts uintptr, path string, errptr *uintptr)
	RepairDB(opts uintptr, path string, errptr *uintptr)

	// Free releases an engine-owned buffer. It is never a generic
	// allocator free.
	Free(ptr uintptr)
}

// Compression constants, matching leveldb_no_compression and friends.
// The embedded engine additionally understands LZ4 and Zstd.
const (
	NoCompression     = 0
	SnappyCompression = 1
	ZstdCompression   = 2
	LZ4Compression    = 3
)
