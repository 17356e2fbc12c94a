package embedded

// objects.go defines the engine-side state behind each opaque handle
// the ABI hands out. Handles are registered in the engine's handle
// table; these are the concrete objects they resolve to.

import (
	"bytes"

	"github.com/quarrykv/quarry/internal/cache"
	"github.com/quarrykv/quarry/internal/compression"
)

type comparatorState struct {
	name    string
	compare func(a, b []byte) int
}

var bytewiseComparator = &comparatorState{
	name:    "leveldb.BytewiseComparator",
	compare: bytes.Compare,
}

type cacheState struct {
	lru *cache.LRU
}

type filterPolicyState struct {
	bitsPerKey int
}

// envState is a placeholder for the engine environment. The embedded
// engine always uses the OS filesystem, so the default env carries no
// state; the handle exists so bundles can own and release it like any
// other auxiliary object.
type envState struct{}

type optionsState struct {
	createIfMissing      bool
	errorIfExists        bool
	paranoidChecks       bool
	compression          compression.Type
	writeBufferSize      int
	maxOpenFiles         int
	blockSize            int
	blockRestartInterval int
	blockCache           *cacheState
	filterPolicy         *filterPolicyState
	comparator           *comparatorState
	env                  *envState
}

func defaultOptionsState() *optionsState {
	return &optionsState{
		compression:          compression.Snappy,
		writeBufferSize:      4 * 1024 * 1024,
		maxOpenFiles:         1000,
		blockSize:            4096,
		blockRestartInterval: 16,
		comparator:           bytewiseComparator,
	}
}

// clone snapshots the option values at open time. Auxiliary objects
// are shared, not copied; their lifetime is the caller's contract.
func (o *optionsState) clone() *optionsState {
	c := *o
	return &c
}

func (o *optionsState) cmp() func(a, b []byte) int {
	if o.comparator == nil {
		return bytewiseComparator.compare
	}
	return o.comparator.compare
}

type readOptionsState struct {
	verifyChecksums bool
	fillCache       bool
	snapshot        uintptr
}

func defaultReadOptionsState() *readOptionsState {
	return &readOptionsState{fillCache: true}
}

type writeOptionsState struct {
	sync bool
}

type snapshotState struct {
	db  *database
	seq uint64
}
