package quarry

// comparator.go implements key comparison.
//
// Comparator defines the total ordering over keys in the database.
// The default is bytewise comparison. A custom comparator must be
// supplied before the first open of a path and must order keys
// identically on every subsequent open of that same path; the engine
// persists data in comparator order and this layer forwards the
// comparator without attempting to verify that contract.

import "bytes"

// Comparator defines a total ordering over keys.
type Comparator interface {
	// Compare returns a value < 0 if a < b, 0 if a == b, > 0 if a > b.
	Compare(a, b []byte) int

	// Name identifies the ordering. The engine refuses to open a
	// database with a comparator name different from the one it was
	// created with.
	Name() string
}

// BytewiseComparator is the default comparator that compares keys
// lexicographically.
type BytewiseComparator struct{}

// Compare compares two keys lexicographically.
func (BytewiseComparator) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Name returns the comparator name.
func (BytewiseComparator) Name() string {
	return "leveldb.BytewiseComparator"
}
