package quarry

// snapshot.go implements point-in-time read views.

// Snapshot is an immutable view of the database at the moment
// GetSnapshot was called. Attach it to ReadOptions to pin reads and
// iterators to that moment. A snapshot holds engine resources until
// released; Release before closing the DB.
type Snapshot struct {
	db       *DB
	handle   uintptr
	released bool
}

// Release frees the snapshot. It is idempotent; releasing twice is
// not an error and never double-frees. Using a released snapshot in
// ReadOptions fails with ErrSnapshotReleased.
func (s *Snapshot) Release() {
	if s.released {
		return
	}
	s.released = true
	h, err := s.db.conn()
	if err != nil {
		// The DB is gone; the engine reclaimed the snapshot with it.
		return
	}
	s.db.eng.ReleaseSnapshot(h, s.handle)
	s.handle = 0
}
