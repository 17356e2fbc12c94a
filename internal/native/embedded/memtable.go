package embedded

// memtable.go implements the in-memory multi-version table that backs
// the embedded engine. Entries are kept sorted by (user key ascending
// in the comparator's order, sequence number descending), the same
// internal-key ordering a log-structured engine uses, so snapshot
// reads and bidirectional iteration fall out of a single scan
// discipline.

import "sort"

// Entry kinds.
const (
	kindDelete byte = 0x00
	kindValue  byte = 0x01
)

type entry struct {
	key   []byte
	seq   uint64
	kind  byte
	value []byte
}

type memtable struct {
	cmp     func(a, b []byte) int
	entries []entry
}

func newMemtable(cmp func(a, b []byte) int) *memtable {
	return &memtable{cmp: cmp}
}

// ordinal orders entries: key ascending, then seq descending so the
// newest version of a key sorts first within its group.
func (m *memtable) less(i int, key []byte, seq uint64) bool {
	c := m.cmp(m.entries[i].key, key)
	if c != 0 {
		return c < 0
	}
	return m.entries[i].seq > seq
}

// add inserts a version. Keys and values are stored as given; callers
// pass copies.
func (m *memtable) add(e entry) {
	i := sort.Search(len(m.entries), func(i int) bool {
		return !m.less(i, e.key, e.seq)
	})
	m.entries = append(m.entries, entry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = e
}

// lowerBound returns the index of the first entry with key >= key.
func (m *memtable) lowerBound(key []byte) int {
	return sort.Search(len(m.entries), func(i int) bool {
		return m.cmp(m.entries[i].key, key) >= 0
	})
}

// get returns the newest version of key visible at seq. The second
// return is false when no version is visible or the visible version
// is a deletion.
func (m *memtable) get(key []byte, seq uint64) ([]byte, bool) {
	i := m.lowerBound(key)
	for ; i < len(m.entries) && m.cmp(m.entries[i].key, key) == 0; i++ {
		if m.entries[i].seq > seq {
			continue
		}
		if m.entries[i].kind == kindDelete {
			return nil, false
		}
		return m.entries[i].value, true
	}
	return nil, false
}

// groupEnd returns the index one past the last entry sharing the key
// at index i.
func (m *memtable) groupEnd(i int) int {
	j := i + 1
	for j < len(m.entries) && m.cmp(m.entries[j].key, m.entries[i].key) == 0 {
		j++
	}
	return j
}

// groupStart returns the index of the first entry sharing the key at
// index i.
func (m *memtable) groupStart(i int) int {
	j := i
	for j > 0 && m.cmp(m.entries[j-1].key, m.entries[i].key) == 0 {
		j--
	}
	return j
}

// visibleIn returns the index of the version visible at seq within
// the group [i, j), or -1 when the key is invisible or deleted there.
func (m *memtable) visibleIn(i, j int, seq uint64) int {
	for ; i < j; i++ {
		if m.entries[i].seq > seq {
			continue
		}
		if m.entries[i].kind == kindDelete {
			return -1
		}
		return i
	}
	return -1
}

// nextVisible scans forward from entry index i for the first key with
// a live version at seq. It returns the entry index of that version.
func (m *memtable) nextVisible(i int, seq uint64) (int, bool) {
	for i < len(m.entries) {
		j := m.groupEnd(i)
		if v := m.visibleIn(i, j, seq); v >= 0 {
			return v, true
		}
		i = j
	}
	return 0, false
}

// prevVisible scans backward from entry index i (inclusive) for the
// nearest preceding key with a live version at seq.
func (m *memtable) prevVisible(i int, seq uint64) (int, bool) {
	for i >= 0 {
		g := m.groupStart(i)
		if v := m.visibleIn(g, m.groupEnd(g), seq); v >= 0 {
			return v, true
		}
		i = g - 1
	}
	return 0, false
}

// visibleSize sums key and value bytes of all versions visible at seq
// within [start, limit). Nil bounds are open-ended.
func (m *memtable) visibleSize(start, limit []byte, seq uint64) uint64 {
	var total uint64
	i, ok := m.nextVisible(0, seq)
	for ok {
		k := m.entries[i].key
		if limit != nil && m.cmp(k, limit) >= 0 {
			break
		}
		if start == nil || m.cmp(k, start) >= 0 {
			total += uint64(len(k) + len(m.entries[i].value))
		}
		i, ok = m.nextVisible(m.groupEnd(m.groupStart(i)), seq)
	}
	return total
}
