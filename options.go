package quarry

// options.go implements database configuration options.
//
// Options is the bundle handed to Open, DestroyDatabase, and
// RepairDatabase. Every field maps 1:1 onto a native setter; the
// mapping happens when the bundle is materialized for a call, and the
// bundle retains strong references to its auxiliary objects so their
// lifetime is never shorter than a DB opened with it.

import "github.com/quarrykv/quarry/internal/native"

// CompressionType selects the engine's block compression.
type CompressionType int

// Compression type constants, matching the engine ABI.
const (
	NoCompression     CompressionType = native.NoCompression
	SnappyCompression CompressionType = native.SnappyCompression
	ZstdCompression   CompressionType = native.ZstdCompression
	LZ4Compression    CompressionType = native.LZ4Compression
)

// Options contains all configuration for opening a database.
type Options struct {
	// CreateIfMissing causes Open to create the database if it does
	// not exist.
	CreateIfMissing bool

	// ErrorIfExists causes Open to fail if the database already
	// exists.
	ErrorIfExists bool

	// ParanoidChecks enables aggressive verification of stored data.
	ParanoidChecks bool

	// Compression selects the block compression algorithm.
	// Default: Snappy
	Compression CompressionType

	// WriteBufferSize is the amount of data buffered in memory before
	// the engine rewrites it to sorted storage.
	// Default: 4MB
	WriteBufferSize int

	// MaxOpenFiles is the number of files the engine may hold open.
	// Default: 1000
	MaxOpenFiles int

	// BlockSize is the approximate size of stored data blocks.
	// Default: 4KB
	BlockSize int

	// BlockRestartInterval is how often block-internal restart points
	// are emitted.
	// Default: 16
	BlockRestartInterval int

	// Cache is the block cache. If nil, the engine uses a private
	// default cache.
	Cache *Cache

	// FilterPolicy enables read filtering (bloom filters). If nil, no
	// filter is used.
	FilterPolicy *FilterPolicy

	// Comparator defines the order of keys. If nil, bytewise
	// comparison is used. A custom comparator must be set on every
	// open of the same path with identical ordering semantics; the
	// engine persists data in comparator order and this layer does
	// not verify the contract across reopens.
	Comparator Comparator

	// Env overrides the engine environment. If nil, the default
	// environment is used.
	Env *Env
}

// DefaultOptions returns a new Options with the engine defaults.
func DefaultOptions() *Options {
	return &Options{
		Compression:          SnappyCompression,
		WriteBufferSize:      4 * 1024 * 1024,
		MaxOpenFiles:         1000,
		BlockSize:            4096,
		BlockRestartInterval: 16,
	}
}

// materialize builds the native options object and, when a custom
// comparator is set, its native comparator. The returned destroy
// function releases the options object; the comparator handle is
// returned separately since it must outlive any DB opened with it.
func (o *Options) materialize(eng native.Engine) (opts, cmp uintptr, destroy func()) {
	if o == nil {
		o = DefaultOptions()
	}
	opts = eng.OptionsCreate()
	eng.OptionsSetCreateIfMissing(opts, o.CreateIfMissing)
	eng.OptionsSetErrorIfExists(opts, o.ErrorIfExists)
	eng.OptionsSetParanoidChecks(opts, o.ParanoidChecks)
	eng.OptionsSetCompression(opts, int(o.Compression))
	eng.OptionsSetWriteBufferSize(opts, o.WriteBufferSize)
	eng.OptionsSetMaxOpenFiles(opts, o.MaxOpenFiles)
	eng.OptionsSetBlockSize(opts, o.BlockSize)
	eng.OptionsSetBlockRestartInterval(opts, o.BlockRestartInterval)
	if o.Cache != nil {
		eng.OptionsSetCache(opts, o.Cache.handle)
	}
	if o.FilterPolicy != nil {
		eng.OptionsSetFilterPolicy(opts, o.FilterPolicy.handle)
	}
	if o.Comparator != nil {
		cmp = eng.ComparatorCreate(o.Comparator.Name(), o.Comparator.Compare)
		eng.OptionsSetComparator(opts, cmp)
	}
	if o.Env != nil {
		eng.OptionsSetEnv(opts, o.Env.handle)
	}
	return opts, cmp, func() { eng.OptionsDestroy(opts) }
}

// ReadOptions contains options for read operations. The zero value
// reads the most recent state without checksum verification; nil is
// accepted everywhere ReadOptions is and means DefaultReadOptions().
type ReadOptions struct {
	// VerifyChecksums forces checksum verification of all data read.
	VerifyChecksums bool

	// FillCache indicates whether data read should populate the block
	// cache.
	FillCache bool

	// Snapshot pins reads to a point-in-time view. If nil, reads
	// observe the most recent state.
	Snapshot *Snapshot
}

// DefaultReadOptions returns ReadOptions with the engine defaults.
// Each call returns a fresh value; there is no shared mutable
// default.
func DefaultReadOptions() *ReadOptions {
	return &ReadOptions{FillCache: true}
}

// materialize builds a native read-options object for one call. It
// fails when a released snapshot is attached.
func (o *ReadOptions) materialize(eng native.Engine) (uintptr, func(), error) {
	if o == nil {
		o = DefaultReadOptions()
	}
	ro := eng.ReadOptionsCreate()
	eng.ReadOptionsSetVerifyChecksums(ro, o.VerifyChecksums)
	eng.ReadOptionsSetFillCache(ro, o.FillCache)
	if o.Snapshot != nil {
		if o.Snapshot.released {
			eng.ReadOptionsDestroy(ro)
			return 0, nil, ErrSnapshotReleased
		}
		eng.ReadOptionsSetSnapshot(ro, o.Snapshot.handle)
	}
	return ro, func() { eng.ReadOptionsDestroy(ro) }, nil
}

// WriteOptions contains options for write operations. Nil means
// DefaultWriteOptions().
type WriteOptions struct {
	// Sync flushes the write to stable storage before returning.
	Sync bool
}

// DefaultWriteOptions returns WriteOptions with the engine defaults.
func DefaultWriteOptions() *WriteOptions {
	return &WriteOptions{}
}

func (o *WriteOptions) materialize(eng native.Engine) (uintptr, func()) {
	if o == nil {
		o = DefaultWriteOptions()
	}
	wo := eng.WriteOptionsCreate()
	eng.WriteOptionsSetSync(wo, o.Sync)
	return wo, func() { eng.WriteOptionsDestroy(wo) }
}
