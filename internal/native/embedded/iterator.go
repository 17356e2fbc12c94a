package embedded

// iterator.go implements the engine-side iterator. An iterator takes
// an isolated copy of the memtable at creation time, so it observes a
// consistent view regardless of later writes, and walks visible
// versions under its sequence bound in either direction.

type iteratorState struct {
	view *memtable
	seq  uint64

	valid bool
	pos   int // entry index of the current visible version

	key   []byte
	value []byte
}

func newIterator(view *memtable, seq uint64) *iteratorState {
	return &iteratorState{view: view, seq: seq}
}

func (it *iteratorState) settle(pos int, ok bool) {
	it.valid = ok
	if !ok {
		it.key = nil
		it.value = nil
		return
	}
	it.pos = pos
	it.key = it.view.entries[pos].key
	it.value = it.view.entries[pos].value
}

func (it *iteratorState) seekToFirst() {
	it.settle(it.view.nextVisible(0, it.seq))
}

func (it *iteratorState) seekToLast() {
	it.settle(it.view.prevVisible(len(it.view.entries)-1, it.seq))
}

func (it *iteratorState) seek(key []byte) {
	it.settle(it.view.nextVisible(it.view.lowerBound(key), it.seq))
}

func (it *iteratorState) next() {
	if !it.valid {
		return
	}
	from := it.view.groupEnd(it.view.groupStart(it.pos))
	it.settle(it.view.nextVisible(from, it.seq))
}

func (it *iteratorState) prev() {
	if !it.valid {
		return
	}
	from := it.view.groupStart(it.pos) - 1
	it.settle(it.view.prevVisible(from, it.seq))
}
