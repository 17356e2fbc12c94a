package embedded

// database.go implements the embedded engine's database object: a
// versioned memtable fronted by a durable journal, with a compacted
// segment rewrite once the journal outgrows the write buffer. All
// mutation happens under db.mu; the engine serializes writers, the
// binding layer above adds no locking of its own.

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/quarrykv/quarry/internal/cache"
	"github.com/quarrykv/quarry/internal/filter"
)

// statusError mirrors the native engine's status strings. The message
// reaches callers verbatim through the ABI error pointer.
type statusError struct {
	msg string
}

func (e *statusError) Error() string { return e.msg }

func corruptionErr(format string, args ...any) error {
	return &statusError{msg: "Corruption: " + fmt.Sprintf(format, args...)}
}

func ioErr(format string, args ...any) error {
	return &statusError{msg: "IO error: " + fmt.Sprintf(format, args...)}
}

func invalidArgErr(format string, args ...any) error {
	return &statusError{msg: "Invalid argument: " + fmt.Sprintf(format, args...)}
}

type database struct {
	path string
	opts *optionsState

	mu        sync.Mutex
	mem       *memtable
	seq       uint64
	journal   *os.File
	journalN  int64 // bytes in the live journal
	sinceSeg  int   // batches applied since the last segment rewrite
	compacts  int
	filter    *filter.Bloom
	snapshots int
	logger    zerolog.Logger
}

// fileNum derives a stable cache-key namespace for a file path.
func fileNum(path string) uint64 {
	return xxh3.HashString(path)
}

// openDatabase opens or creates the database directory, replays the
// segment and journal, and leaves the journal open for appending.
func openDatabase(opts *optionsState, path string, logger zerolog.Logger) (*database, error) {
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if !opts.createIfMissing {
			return nil, invalidArgErr("%s: does not exist (create_if_missing is false)", path)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, ioErr("%s: %v", path, err)
		}
	case err != nil:
		return nil, ioErr("%s: %v", path, err)
	case !fi.IsDir():
		return nil, invalidArgErr("%s: exists but is not a directory", path)
	default:
		if opts.errorIfExists {
			if _, serr := os.Stat(filepath.Join(path, journalName)); serr == nil {
				return nil, invalidArgErr("%s: exists (error_if_exists is true)", path)
			}
		}
	}

	if err := os.WriteFile(filepath.Join(path, lockName), nil, 0o644); err != nil {
		return nil, ioErr("%s: %v", path, err)
	}

	db := &database{
		path:   path,
		opts:   opts,
		mem:    newMemtable(opts.cmp()),
		logger: logger,
	}

	if err := db.replaySegment(); err != nil {
		return nil, err
	}
	if err := db.replayJournal(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(db.journalPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, ioErr("%s: %v", path, err)
	}
	db.journal = f
	if st, err := f.Stat(); err == nil {
		db.journalN = st.Size()
	}
	db.logger.Debug().Str("path", path).Uint64("seq", db.seq).
		Int("entries", len(db.mem.entries)).Msg("database opened")
	return db, nil
}

func (db *database) journalPath() string { return filepath.Join(db.path, journalName) }
func (db *database) segmentPath() string { return filepath.Join(db.path, segmentName) }

// replayFile folds every intact frame of path into the memtable.
// Frames are batches; the base sequence in each batch header restores
// the sequence counter.
func (db *database) replayFile(path string, throughCache bool) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return ioErr("%s: %v", path, err)
	}
	defer f.Close()

	num := fileNum(path)
	fr := &frameReader{r: f}
	for {
		offset := fr.offset
		payload, err := fr.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return corruptionErr("%s: %v", path, err)
		}
		if throughCache && db.opts.blockCache != nil {
			key := cache.Key{FileNumber: num, Offset: uint64(offset)}
			cached := db.opts.blockCache.lru.Lookup(key)
			switch {
			case cached != nil && !db.opts.paranoidChecks:
				payload = cached
			default:
				// Paranoid mode distrusts cached blocks and keeps the
				// freshly verified copy.
				db.opts.blockCache.lru.Insert(key, payload)
			}
		}
		if err := db.applyPayload(payload); err != nil {
			return corruptionErr("%s: %v", path, err)
		}
	}
}

func (db *database) replaySegment() error {
	return db.replayFile(db.segmentPath(), true)
}

func (db *database) replayJournal() error {
	if err := db.replayFile(db.journalPath(), false); err != nil {
		return err
	}
	// Everything replayed from the journal is not covered by the
	// segment's bloom filter yet.
	if st, err := os.Stat(db.journalPath()); err == nil && st.Size() > 0 {
		db.sinceSeg = 1
	}
	return nil
}

// applyPayload decodes a batch payload and applies it to the
// memtable, advancing the sequence counter.
func (db *database) applyPayload(payload []byte) error {
	if len(payload) < batchHeaderSize {
		return errBatchCorrupted
	}
	b := &writeBatch{data: payload}
	seq := b.seq()
	err := b.iterate(
		func(key, value []byte) {
			db.mem.add(entry{key: slices.Clone(key), seq: seq, kind: kindValue, value: slices.Clone(value)})
			seq++
		},
		func(key []byte) {
			db.mem.add(entry{key: slices.Clone(key), seq: seq, kind: kindDelete})
			seq++
		},
	)
	if err != nil {
		return err
	}
	if seq > db.seq+1 {
		db.seq = seq - 1
	}
	return nil
}

// write applies a batch atomically: journal first, then memtable.
func (db *database) write(b *writeBatch, sync bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.journal == nil {
		return ioErr("%s: database is closed", db.path)
	}
	n := b.count()
	if n == 0 {
		return nil
	}
	base := db.seq + 1
	b.setSeq(base)

	frame, err := appendFrame(nil, db.opts.compression, b.data)
	if err != nil {
		return ioErr("%s: %v", db.path, err)
	}
	if _, err := db.journal.Write(frame); err != nil {
		return ioErr("%s: %v", db.path, err)
	}
	if sync {
		if err := db.journal.Sync(); err != nil {
			return ioErr("%s: %v", db.path, err)
		}
	}
	db.journalN += int64(len(frame))
	db.sinceSeg++

	seq := base
	_ = b.iterate(
		func(key, value []byte) {
			db.mem.add(entry{key: slices.Clone(key), seq: seq, kind: kindValue, value: slices.Clone(value)})
			seq++
		},
		func(key []byte) {
			db.mem.add(entry{key: slices.Clone(key), seq: seq, kind: kindDelete})
			seq++
		},
	)
	db.seq += uint64(n)

	if db.snapshots == 0 && db.journalN > int64(db.opts.writeBufferSize) {
		if err := db.compactLocked(); err != nil {
			db.logger.Warn().Err(err).Str("path", db.path).Msg("automatic compaction failed")
		}
	}
	return nil
}

// get returns the value visible at seq, with ok=false meaning the key
// is absent (not an error).
func (db *database) get(key []byte, seq uint64) ([]byte, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.filter != nil && db.sinceSeg == 0 && !db.filter.MayContain(key) {
		return nil, false
	}
	return db.mem.get(key, seq)
}

// view returns an isolated copy of the memtable for iteration, along
// with the current sequence number.
func (db *database) view() (*memtable, uint64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return &memtable{cmp: db.mem.cmp, entries: slices.Clone(db.mem.entries)}, db.seq
}

func (db *database) newSnapshot() *snapshotState {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.snapshots++
	return &snapshotState{db: db, seq: db.seq}
}

func (db *database) releaseSnapshot() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.snapshots > 0 {
		db.snapshots--
	}
}

// compactLocked rewrites the current visible state into the segment
// file, rebuilds the bloom filter, and truncates the journal. Caller
// holds db.mu.
func (db *database) compactLocked() error {
	tmp := db.segmentPath() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ioErr("%s: %v", db.path, err)
	}

	var bloom *filter.Builder
	if db.opts.filterPolicy != nil {
		bloom = filter.NewBuilder(db.opts.filterPolicy.bitsPerKey)
	}

	// Pack visible entries into block-sized batches so segment frames
	// honor the configured block size.
	block := newWriteBatch()
	block.setSeq(1)
	seq := uint64(1)
	flush := func() error {
		if block.count() == 0 {
			return nil
		}
		frame, err := appendFrame(nil, db.opts.compression, block.data)
		if err != nil {
			return err
		}
		if _, err := f.Write(frame); err != nil {
			return err
		}
		block = newWriteBatch()
		block.setSeq(seq)
		return nil
	}

	i, ok := db.mem.nextVisible(0, db.seq)
	for ok {
		e := db.mem.entries[i]
		block.put(e.key, e.value)
		seq++
		if bloom != nil {
			bloom.AddKey(e.key)
		}
		if len(block.data) >= db.opts.blockSize {
			if err := flush(); err != nil {
				f.Close()
				os.Remove(tmp)
				return ioErr("%s: %v", db.path, err)
			}
		}
		i, ok = db.mem.nextVisible(db.mem.groupEnd(db.mem.groupStart(i)), db.seq)
	}
	if err := flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return ioErr("%s: %v", db.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return ioErr("%s: %v", db.path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return ioErr("%s: %v", db.path, err)
	}
	if err := os.Rename(tmp, db.segmentPath()); err != nil {
		os.Remove(tmp)
		return ioErr("%s: %v", db.path, err)
	}

	// Rebuild the memtable from the surviving versions so the
	// in-memory state matches the rewrite, then start a fresh
	// journal. Note: the rewrite renumbers sequences from 1, so the
	// counter restarts; snapshots block compaction upstream.
	rebuilt := newMemtable(db.mem.cmp)
	seq = 1
	i, ok = db.mem.nextVisible(0, db.seq)
	for ok {
		e := db.mem.entries[i]
		rebuilt.add(entry{key: e.key, seq: seq, kind: kindValue, value: e.value})
		seq++
		i, ok = db.mem.nextVisible(db.mem.groupEnd(db.mem.groupStart(i)), db.seq)
	}
	db.mem = rebuilt
	db.seq = seq - 1

	if db.journal != nil {
		if err := db.journal.Truncate(0); err != nil {
			return ioErr("%s: %v", db.path, err)
		}
	} else if err := os.Remove(db.journalPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ioErr("%s: %v", db.path, err)
	}
	db.journalN = 0
	db.sinceSeg = 0
	if bloom != nil {
		db.filter = bloom.Finish()
	}
	db.compacts++
	db.logger.Debug().Str("path", db.path).Uint64("seq", db.seq).Msg("segment rewritten")
	return nil
}

func (db *database) compactRange() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.snapshots > 0 {
		// Compaction renumbers sequences; live snapshots pin the
		// current history.
		return nil
	}
	return db.compactLocked()
}

func (db *database) approximateSize(start, limit []byte) uint64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.mem.visibleSize(start, limit, db.seq)
}

// property serves engine property strings.
func (db *database) property(name string) (string, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	switch name {
	case "leveldb.stats":
		return fmt.Sprintf(
			"entries=%d seq=%d journal-bytes=%d compactions=%d snapshots=%d",
			len(db.mem.entries), db.seq, db.journalN, db.compacts, db.snapshots,
		), true
	case "leveldb.approximate-memory-usage":
		var n uint64
		for _, e := range db.mem.entries {
			n += uint64(len(e.key) + len(e.value))
		}
		return fmt.Sprintf("%d", n), true
	case "leveldb.num-files-at-level0":
		n := 0
		if db.journalN > 0 {
			n = 1
		}
		return fmt.Sprintf("%d", n), true
	}
	return "", false
}

func (db *database) close() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.journal != nil {
		_ = db.journal.Sync()
		_ = db.journal.Close()
		db.journal = nil
	}
	db.logger.Debug().Str("path", db.path).Msg("database closed")
}
