//go:build darwin || freebsd || linux

// Package dynlib implements the engine ABI against the real native
// library, loaded at runtime with purego so no cgo toolchain is
// required. Function pointers are registered once per Load; callback
// bridging (comparators, batch replay) goes through purego.NewCallback.
//
// Reference: leveldb/include/leveldb/c.h
package dynlib

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/quarrykv/quarry/internal/native"
)

// Note: slice and buffer parameters travel as uintptr because purego
// on ARM64 does not support slice arguments.
var (
	optionsCreate              func() uintptr
	optionsDestroy             func(uintptr)
	optionsSetCreateIfMissing  func(uintptr, uint8)
	optionsSetErrorIfExists    func(uintptr, uint8)
	optionsSetParanoidChecks   func(uintptr, uint8)
	optionsSetCompression      func(uintptr, int32)
	optionsSetWriteBufferSize  func(uintptr, uintptr)
	optionsSetMaxOpenFiles     func(uintptr, int32)
	optionsSetBlockSize        func(uintptr, uintptr)
	optionsSetBlockRestart     func(uintptr, int32)
	optionsSetCache            func(uintptr, uintptr)
	optionsSetFilterPolicy     func(uintptr, uintptr)
	optionsSetComparator       func(uintptr, uintptr)
	optionsSetEnv              func(uintptr, uintptr)

	readoptionsCreate             func() uintptr
	readoptionsDestroy            func(uintptr)
	readoptionsSetVerifyChecksums func(uintptr, uint8)
	readoptionsSetFillCache       func(uintptr, uint8)
	readoptionsSetSnapshot        func(uintptr, uintptr)
	writeoptionsCreate            func() uintptr
	writeoptionsDestroy           func(uintptr)
	writeoptionsSetSync           func(uintptr, uint8)

	cacheCreateLRU          func(uintptr) uintptr
	cacheDestroy            func(uintptr)
	filterpolicyCreateBloom func(int32) uintptr
	filterpolicyDestroy     func(uintptr)
	comparatorCreate        func(uintptr, uintptr, uintptr, uintptr) uintptr
	comparatorDestroy       func(uintptr)
	createDefaultEnv        func() uintptr
	envDestroy              func(uintptr)

	dbOpen             func(uintptr, string, *uintptr) uintptr
	dbClose            func(uintptr)
	dbPut              func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, *uintptr)
	dbDelete           func(uintptr, uintptr, uintptr, uintptr, *uintptr)
	dbGet              func(uintptr, uintptr, uintptr, uintptr, *uintptr, *uintptr) uintptr
	dbWrite            func(uintptr, uintptr, uintptr, *uintptr)
	dbPropertyValue    func(uintptr, string) uintptr
	dbApproximateSizes func(uintptr, int32, uintptr, uintptr, uintptr, uintptr, uintptr)
	dbCompactRange     func(uintptr, uintptr, uintptr, uintptr, uintptr)

	dbCreateSnapshot  func(uintptr) uintptr
	dbReleaseSnapshot func(uintptr, uintptr)

	dbCreateIterator func(uintptr, uintptr) uintptr
	iterDestroy      func(uintptr)
	iterValid        func(uintptr) uint8
	iterSeekToFirst  func(uintptr)
	iterSeekToLast   func(uintptr)
	iterSeek         func(uintptr, uintptr, uintptr)
	iterNext         func(uintptr)
	iterPrev         func(uintptr)
	iterKey          func(uintptr, *uintptr) uintptr
	iterValue        func(uintptr, *uintptr) uintptr
	iterGetError     func(uintptr, *uintptr)

	writebatchCreate  func() uintptr
	writebatchDestroy func(uintptr)
	writebatchClear   func(uintptr)
	writebatchPut     func(uintptr, uintptr, uintptr, uintptr, uintptr)
	writebatchDelete  func(uintptr, uintptr, uintptr)
	writebatchIterate func(uintptr, uintptr, uintptr, uintptr)

	destroyDB func(uintptr, string, *uintptr)
	repairDB  func(uintptr, string, *uintptr)
	freeBuf   func(uintptr)
)

var (
	loadOnce sync.Once
	loadErr  error
)

// DefaultLibrary returns the platform's conventional shared library
// name for the engine.
func DefaultLibrary() string {
	switch runtime.GOOS {
	case "darwin":
		return "libleveldb.dylib"
	default:
		return "libleveldb.so"
	}
}

func register(lib uintptr) {
	purego.RegisterLibFunc(&optionsCreate, lib, "leveldb_options_create")
	purego.RegisterLibFunc(&optionsDestroy, lib, "leveldb_options_destroy")
	purego.RegisterLibFunc(&optionsSetCreateIfMissing, lib, "leveldb_options_set_create_if_missing")
	purego.RegisterLibFunc(&optionsSetErrorIfExists, lib, "leveldb_options_set_error_if_exists")
	purego.RegisterLibFunc(&optionsSetParanoidChecks, lib, "leveldb_options_set_paranoid_checks")
	purego.RegisterLibFunc(&optionsSetCompression, lib, "leveldb_options_set_compression")
	purego.RegisterLibFunc(&optionsSetWriteBufferSize, lib, "leveldb_options_set_write_buffer_size")
	purego.RegisterLibFunc(&optionsSetMaxOpenFiles, lib, "leveldb_options_set_max_open_files")
	purego.RegisterLibFunc(&optionsSetBlockSize, lib, "leveldb_options_set_block_size")
	purego.RegisterLibFunc(&optionsSetBlockRestart, lib, "leveldb_options_set_block_restart_interval")
	purego.RegisterLibFunc(&optionsSetCache, lib, "leveldb_options_set_cache")
	purego.RegisterLibFunc(&optionsSetFilterPolicy, lib, "leveldb_options_set_filter_policy")
	purego.RegisterLibFunc(&optionsSetComparator, lib, "leveldb_options_set_comparator")
	purego.RegisterLibFunc(&optionsSetEnv, lib, "leveldb_options_set_env")

	purego.RegisterLibFunc(&readoptionsCreate, lib, "leveldb_readoptions_create")
	purego.RegisterLibFunc(&readoptionsDestroy, lib, "leveldb_readoptions_destroy")
	purego.RegisterLibFunc(&readoptionsSetVerifyChecksums, lib, "leveldb_readoptions_set_verify_checksums")
	purego.RegisterLibFunc(&readoptionsSetFillCache, lib, "leveldb_readoptions_set_fill_cache")
	purego.RegisterLibFunc(&readoptionsSetSnapshot, lib, "leveldb_readoptions_set_snapshot")
	purego.RegisterLibFunc(&writeoptionsCreate, lib, "leveldb_writeoptions_create")
	purego.RegisterLibFunc(&writeoptionsDestroy, lib, "leveldb_writeoptions_destroy")
	purego.RegisterLibFunc(&writeoptionsSetSync, lib, "leveldb_writeoptions_set_sync")

	purego.RegisterLibFunc(&cacheCreateLRU, lib, "leveldb_cache_create_lru")
	purego.RegisterLibFunc(&cacheDestroy, lib, "leveldb_cache_destroy")
	purego.RegisterLibFunc(&filterpolicyCreateBloom, lib, "leveldb_filterpolicy_create_bloom")
	purego.RegisterLibFunc(&filterpolicyDestroy, lib, "leveldb_filterpolicy_destroy")
	purego.RegisterLibFunc(&comparatorCreate, lib, "leveldb_comparator_create")
	purego.RegisterLibFunc(&comparatorDestroy, lib, "leveldb_comparator_destroy")
	purego.RegisterLibFunc(&createDefaultEnv, lib, "leveldb_create_default_env")
	purego.RegisterLibFunc(&envDestroy, lib, "leveldb_env_destroy")

	purego.RegisterLibFunc(&dbOpen, lib, "leveldb_open")
	purego.RegisterLibFunc(&dbClose, lib, "leveldb_close")
	purego.RegisterLibFunc(&dbPut, lib, "leveldb_put")
	purego.RegisterLibFunc(&dbDelete, lib, "leveldb_delete")
	purego.RegisterLibFunc(&dbGet, lib, "leveldb_get")
	purego.RegisterLibFunc(&dbWrite, lib, "leveldb_write")
	purego.RegisterLibFunc(&dbPropertyValue, lib, "leveldb_property_value")
	purego.RegisterLibFunc(&dbApproximateSizes, lib, "leveldb_approximate_sizes")
	purego.RegisterLibFunc(&dbCompactRange, lib, "leveldb_compact_range")

	purego.RegisterLibFunc(&dbCreateSnapshot, lib, "leveldb_create_snapshot")
	purego.RegisterLibFunc(&dbReleaseSnapshot, lib, "leveldb_release_snapshot")

	purego.RegisterLibFunc(&dbCreateIterator, lib, "leveldb_create_iterator")
	purego.RegisterLibFunc(&iterDestroy, lib, "leveldb_iter_destroy")
	purego.RegisterLibFunc(&iterValid, lib, "leveldb_iter_valid")
	purego.RegisterLibFunc(&iterSeekToFirst, lib, "leveldb_iter_seek_to_first")
	purego.RegisterLibFunc(&iterSeekToLast, lib, "leveldb_iter_seek_to_last")
	purego.RegisterLibFunc(&iterSeek, lib, "leveldb_iter_seek")
	purego.RegisterLibFunc(&iterNext, lib, "leveldb_iter_next")
	purego.RegisterLibFunc(&iterPrev, lib, "leveldb_iter_prev")
	purego.RegisterLibFunc(&iterKey, lib, "leveldb_iter_key")
	purego.RegisterLibFunc(&iterValue, lib, "leveldb_iter_value")
	purego.RegisterLibFunc(&iterGetError, lib, "leveldb_iter_get_error")

	purego.RegisterLibFunc(&writebatchCreate, lib, "leveldb_writebatch_create")
	purego.RegisterLibFunc(&writebatchDestroy, lib, "leveldb_writebatch_destroy")
	purego.RegisterLibFunc(&writebatchClear, lib, "leveldb_writebatch_clear")
	purego.RegisterLibFunc(&writebatchPut, lib, "leveldb_writebatch_put")
	purego.RegisterLibFunc(&writebatchDelete, lib, "leveldb_writebatch_delete")
	purego.RegisterLibFunc(&writebatchIterate, lib, "leveldb_writebatch_iterate")

	purego.RegisterLibFunc(&destroyDB, lib, "leveldb_destroy_db")
	purego.RegisterLibFunc(&repairDB, lib, "leveldb_repair_db")
	purego.RegisterLibFunc(&freeBuf, lib, "leveldb_free")
}

// Engine implements native.Engine over the loaded shared library.
type Engine struct {
	// comparators and batch visitors registered as C callbacks must
	// stay reachable for the life of their native object.
	mu        sync.Mutex
	callbacks map[uintptr][]uintptr
	compares  map[uintptr]func(a, b []byte) int
	names     map[uintptr][]byte // comparator handle -> NUL-terminated name buffer

	iterateMu    sync.Mutex
	iterateOnce  sync.Once
	iteratePut   func(key, value []byte)
	iterateDel   func(key []byte)
	iteratePutCB uintptr
	iterateDelCB uintptr
}

var _ native.Engine = (*Engine)(nil)

// Load opens the shared library at path (or the platform default when
// path is empty) and returns an Engine bound to it. Load may be
// called once per process; the library is never unloaded.
func Load(path string) (*Engine, error) {
	if path == "" {
		path = DefaultLibrary()
	}
	loadOnce.Do(func() {
		lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			loadErr = fmt.Errorf("dynlib: load %s: %w", path, err)
			return
		}
		register(lib)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return &Engine{
		callbacks: make(map[uintptr][]uintptr),
		compares:  make(map[uintptr]func(a, b []byte) int),
		names:     make(map[uintptr][]byte),
	}, nil
}

func b2u(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

func (e *Engine) OptionsCreate() uintptr      { return optionsCreate() }
func (e *Engine) OptionsDestroy(opts uintptr) { optionsDestroy(opts) }
func (e *Engine) OptionsSetCreateIfMissing(opts uintptr, v bool) {
	optionsSetCreateIfMissing(opts, b2u(v))
}
func (e *Engine) OptionsSetErrorIfExists(opts uintptr, v bool) {
	optionsSetErrorIfExists(opts, b2u(v))
}
func (e *Engine) OptionsSetParanoidChecks(opts uintptr, v bool) {
	optionsSetParanoidChecks(opts, b2u(v))
}
func (e *Engine) OptionsSetCompression(opts uintptr, c int) { optionsSetCompression(opts, int32(c)) }
func (e *Engine) OptionsSetWriteBufferSize(opts uintptr, n int) {
	optionsSetWriteBufferSize(opts, uintptr(n))
}
func (e *Engine) OptionsSetMaxOpenFiles(opts uintptr, n int) { optionsSetMaxOpenFiles(opts, int32(n)) }
func (e *Engine) OptionsSetBlockSize(opts uintptr, n int)    { optionsSetBlockSize(opts, uintptr(n)) }
func (e *Engine) OptionsSetBlockRestartInterval(opts uintptr, n int) {
	optionsSetBlockRestart(opts, int32(n))
}
func (e *Engine) OptionsSetCache(opts, cache uintptr)         { optionsSetCache(opts, cache) }
func (e *Engine) OptionsSetFilterPolicy(opts, policy uintptr) { optionsSetFilterPolicy(opts, policy) }
func (e *Engine) OptionsSetComparator(opts, cmp uintptr)      { optionsSetComparator(opts, cmp) }
func (e *Engine) OptionsSetEnv(opts, env uintptr)             { optionsSetEnv(opts, env) }

func (e *Engine) ReadOptionsCreate() uintptr    { return readoptionsCreate() }
func (e *Engine) ReadOptionsDestroy(ro uintptr) { readoptionsDestroy(ro) }
func (e *Engine) ReadOptionsSetVerifyChecksums(ro uintptr, v bool) {
	readoptionsSetVerifyChecksums(ro, b2u(v))
}
func (e *Engine) ReadOptionsSetFillCache(ro uintptr, v bool) { readoptionsSetFillCache(ro, b2u(v)) }
func (e *Engine) ReadOptionsSetSnapshot(ro, snap uintptr)    { readoptionsSetSnapshot(ro, snap) }

func (e *Engine) WriteOptionsCreate() uintptr            { return writeoptionsCreate() }
func (e *Engine) WriteOptionsDestroy(wo uintptr)         { writeoptionsDestroy(wo) }
func (e *Engine) WriteOptionsSetSync(wo uintptr, v bool) { writeoptionsSetSync(wo, b2u(v)) }

func (e *Engine) CacheCreateLRU(capacity int) uintptr { return cacheCreateLRU(uintptr(capacity)) }
func (e *Engine) CacheDestroy(cache uintptr)          { cacheDestroy(cache) }

func (e *Engine) FilterPolicyCreateBloom(bitsPerKey int) uintptr {
	return filterpolicyCreateBloom(int32(bitsPerKey))
}
func (e *Engine) FilterPolicyDestroy(policy uintptr) { filterpolicyDestroy(policy) }

// ComparatorCreate bridges a Go comparison function into the C
// comparator object. The callback trampolines and the NUL-terminated
// name stay alive until ComparatorDestroy.
func (e *Engine) ComparatorCreate(name string, compare func(a, b []byte) int) uintptr {
	cname := append([]byte(name), 0)
	namePtr := uintptr(unsafe.Pointer(&cname[0]))

	destructor := purego.NewCallback(func(state uintptr) uintptr { return 0 })
	compareCB := purego.NewCallback(func(state, a, alen, b, blen uintptr) uintptr {
		return uintptr(compare(native.Span(a, int(alen)), native.Span(b, int(blen))))
	})
	nameCB := purego.NewCallback(func(state uintptr) uintptr { return namePtr })

	h := comparatorCreate(0, destructor, compareCB, nameCB)
	e.mu.Lock()
	e.callbacks[h] = []uintptr{destructor, compareCB, nameCB}
	e.compares[h] = compare
	e.names[h] = cname
	e.mu.Unlock()
	return h
}

func (e *Engine) ComparatorDestroy(cmp uintptr) {
	comparatorDestroy(cmp)
	e.mu.Lock()
	delete(e.callbacks, cmp)
	delete(e.compares, cmp)
	delete(e.names, cmp)
	e.mu.Unlock()
}

func (e *Engine) CreateDefaultEnv() uintptr { return createDefaultEnv() }
func (e *Engine) EnvDestroy(env uintptr)    { envDestroy(env) }

func (e *Engine) Open(opts uintptr, path string, errptr *uintptr) uintptr {
	return dbOpen(opts, path, errptr)
}
func (e *Engine) Close(db uintptr) { dbClose(db) }

func (e *Engine) Put(db, wo uintptr, key uintptr, keyLen int, val uintptr, valLen int, errptr *uintptr) {
	dbPut(db, wo, key, uintptr(keyLen), val, uintptr(valLen), errptr)
}

func (e *Engine) Delete(db, wo uintptr, key uintptr, keyLen int, errptr *uintptr) {
	dbDelete(db, wo, key, uintptr(keyLen), errptr)
}

func (e *Engine) Get(db, ro uintptr, key uintptr, keyLen int, valLen *int, errptr *uintptr) uintptr {
	var n uintptr
	p := dbGet(db, ro, key, uintptr(keyLen), &n, errptr)
	*valLen = int(n)
	return p
}

func (e *Engine) Write(db, wo, batch uintptr, errptr *uintptr) { dbWrite(db, wo, batch, errptr) }

func (e *Engine) PropertyValue(db uintptr, name string) uintptr { return dbPropertyValue(db, name) }

func (e *Engine) ApproximateSizes(db uintptr, starts, limits [][]byte) []uint64 {
	n := len(starts)
	startPtrs := make([]uintptr, n)
	startLens := make([]uintptr, n)
	limitPtrs := make([]uintptr, n)
	limitLens := make([]uintptr, n)
	for i := range starts {
		startPtrs[i], startLens[i] = splitSpan(starts[i])
		if i < len(limits) {
			limitPtrs[i], limitLens[i] = splitSpan(limits[i])
		}
	}
	sizes := make([]uint64, n)
	var sizesPtr uintptr
	if n > 0 {
		sizesPtr = uintptr(unsafe.Pointer(&sizes[0]))
		dbApproximateSizes(db, int32(n),
			uintptr(unsafe.Pointer(&startPtrs[0])), uintptr(unsafe.Pointer(&startLens[0])),
			uintptr(unsafe.Pointer(&limitPtrs[0])), uintptr(unsafe.Pointer(&limitLens[0])),
			sizesPtr)
	}
	runtime.KeepAlive(starts)
	runtime.KeepAlive(limits)
	return sizes
}

func splitSpan(b []byte) (uintptr, uintptr) {
	p, n := native.BytesPtr(b)
	return p, uintptr(n)
}

func (e *Engine) CompactRange(db uintptr, start uintptr, startLen int, limit uintptr, limitLen int) {
	dbCompactRange(db, start, uintptr(startLen), limit, uintptr(limitLen))
}

func (e *Engine) CreateSnapshot(db uintptr) uintptr  { return dbCreateSnapshot(db) }
func (e *Engine) ReleaseSnapshot(db, snap uintptr)   { dbReleaseSnapshot(db, snap) }
func (e *Engine) CreateIterator(db, ro uintptr) uintptr { return dbCreateIterator(db, ro) }

func (e *Engine) IterDestroy(it uintptr)     { iterDestroy(it) }
func (e *Engine) IterValid(it uintptr) bool  { return iterValid(it) != 0 }
func (e *Engine) IterSeekToFirst(it uintptr) { iterSeekToFirst(it) }
func (e *Engine) IterSeekToLast(it uintptr)  { iterSeekToLast(it) }
func (e *Engine) IterSeek(it uintptr, key uintptr, keyLen int) { iterSeek(it, key, uintptr(keyLen)) }
func (e *Engine) IterNext(it uintptr)        { iterNext(it) }
func (e *Engine) IterPrev(it uintptr)        { iterPrev(it) }

func (e *Engine) IterKey(it uintptr, n *int) uintptr {
	var l uintptr
	p := iterKey(it, &l)
	*n = int(l)
	return p
}

func (e *Engine) IterValue(it uintptr, n *int) uintptr {
	var l uintptr
	p := iterValue(it, &l)
	*n = int(l)
	return p
}

func (e *Engine) IterGetError(it uintptr, errptr *uintptr) { iterGetError(it, errptr) }

func (e *Engine) WriteBatchCreate() uintptr       { return writebatchCreate() }
func (e *Engine) WriteBatchDestroy(batch uintptr) { writebatchDestroy(batch) }
func (e *Engine) WriteBatchClear(batch uintptr)   { writebatchClear(batch) }

func (e *Engine) WriteBatchPut(batch uintptr, key uintptr, keyLen int, val uintptr, valLen int) {
	writebatchPut(batch, key, uintptr(keyLen), val, uintptr(valLen))
}

func (e *Engine) WriteBatchDelete(batch uintptr, key uintptr, keyLen int) {
	writebatchDelete(batch, key, uintptr(keyLen))
}

// WriteBatchIterate replays the batch through a single pair of C
// callback trampolines. purego callbacks are a finite process-wide
// resource, so the trampolines are created once and retarget the
// current visitor under the iterate lock.
func (e *Engine) WriteBatchIterate(batch uintptr, put func(key, value []byte), del func(key []byte)) {
	e.iterateMu.Lock()
	defer e.iterateMu.Unlock()
	e.iterateOnce.Do(func() {
		e.iteratePutCB = purego.NewCallback(func(state, k, klen, v, vlen uintptr) uintptr {
			e.iteratePut(native.Span(k, int(klen)), native.Span(v, int(vlen)))
			return 0
		})
		e.iterateDelCB = purego.NewCallback(func(state, k, klen uintptr) uintptr {
			e.iterateDel(native.Span(k, int(klen)))
			return 0
		})
	})
	e.iteratePut, e.iterateDel = put, del
	writebatchIterate(batch, 0, e.iteratePutCB, e.iterateDelCB)
	e.iteratePut, e.iterateDel = nil, nil
}

func (e *Engine) DestroyDB(opts uintptr, path string, errptr *uintptr) {
	destroyDB(opts, path, errptr)
}

func (e *Engine) RepairDB(opts uintptr, path string, errptr *uintptr) {
	repairDB(opts, path, errptr)
}

func (e *Engine) Free(ptr uintptr) { freeBuf(ptr) }
