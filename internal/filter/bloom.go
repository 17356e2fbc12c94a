// Package filter implements the bloom filter the embedded engine
// builds over live keys during compaction. Double hashing over a
// single XXH3 digest gives the probe sequence, so membership tests
// never rehash the key.
package filter

import (
	"math"

	"github.com/zeebo/xxh3"
)

// Bloom is an immutable bloom filter over a fixed key set.
type Bloom struct {
	bits   []byte
	probes uint32
}

// Builder accumulates key hashes and produces a Bloom.
type Builder struct {
	bitsPerKey int
	hashes     []uint64
}

// NewBuilder creates a builder. bitsPerKey controls accuracy; 10 bits
// per key yields roughly a 1% false positive rate.
func NewBuilder(bitsPerKey int) *Builder {
	if bitsPerKey < 1 {
		bitsPerKey = 1
	}
	return &Builder{bitsPerKey: bitsPerKey}
}

// AddKey records a key for the filter under construction.
func (b *Builder) AddKey(key []byte) {
	b.hashes = append(b.hashes, xxh3.Hash(key))
}

// KeyCount returns how many keys have been added.
func (b *Builder) KeyCount() int {
	return len(b.hashes)
}

// Finish builds the filter. The builder can be reused afterwards by
// discarding it; Finish does not reset it.
func (b *Builder) Finish() *Bloom {
	nbits := len(b.hashes) * b.bitsPerKey
	if nbits < 64 {
		nbits = 64
	}
	nbytes := (nbits + 7) / 8
	nbits = nbytes * 8

	// Optimal probe count for the chosen density.
	probes := uint32(math.Round(float64(b.bitsPerKey) * math.Ln2))
	if probes < 1 {
		probes = 1
	}
	if probes > 30 {
		probes = 30
	}

	f := &Bloom{bits: make([]byte, nbytes), probes: probes}
	for _, h := range b.hashes {
		f.set(h)
	}
	return f
}

func (f *Bloom) set(h uint64) {
	delta := h>>33 | h<<31
	for i := uint32(0); i < f.probes; i++ {
		pos := h % uint64(len(f.bits)*8)
		f.bits[pos/8] |= 1 << (pos % 8)
		h += delta
	}
}

// MayContain reports whether key is possibly in the set. False means
// definitely absent.
func (f *Bloom) MayContain(key []byte) bool {
	h := xxh3.Hash(key)
	delta := h>>33 | h<<31
	for i := uint32(0); i < f.probes; i++ {
		pos := h % uint64(len(f.bits)*8)
		if f.bits[pos/8]&(1<<(pos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

// SizeBytes returns the filter's bit array size.
func (f *Bloom) SizeBytes() int {
	return len(f.bits)
}
