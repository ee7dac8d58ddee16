// Package clique enumerates maximal cliques (Bron–Kerbosch with pivoting)
// and builds disjoint path combinations on top of it.
package clique

import (
	"iter"
	"math/bits"
)

// Bitset is a fixed-size set of small non-negative integers.
type Bitset []uint64

// NewBitset returns an empty set able to hold 0..n-1.
func NewBitset(n int) Bitset {
	return make(Bitset, (n+63)/64)
}

func (b Bitset) Set(i int)      { b[i>>6] |= 1 << (uint(i) & 63) }
func (b Bitset) Clear(i int)    { b[i>>6] &^= 1 << (uint(i) & 63) }
func (b Bitset) Has(i int) bool { return b[i>>6]&(1<<(uint(i)&63)) != 0 }

// Clone returns a copy of b.
func (b Bitset) Clone() Bitset {
	out := make(Bitset, len(b))
	copy(out, b)
	return out
}

// Count returns the number of members.
func (b Bitset) Count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsEmpty reports whether b has no members.
func (b Bitset) IsEmpty() bool {
	for _, w := range b {
		if w != 0 {
			return false
		}
	}
	return true
}

// And returns b ∩ o as a new set.
func (b Bitset) And(o Bitset) Bitset {
	out := make(Bitset, len(b))
	for i := range b {
		out[i] = b[i] & o[i]
	}
	return out
}

// AndNot returns b \ o as a new set.
func (b Bitset) AndNot(o Bitset) Bitset {
	out := make(Bitset, len(b))
	for i := range b {
		out[i] = b[i] &^ o[i]
	}
	return out
}

// Or returns b ∪ o as a new set.
func (b Bitset) Or(o Bitset) Bitset {
	out := make(Bitset, len(b))
	for i := range b {
		out[i] = b[i] | o[i]
	}
	return out
}

// IntersectionCount returns |b ∩ o| without allocating.
func (b Bitset) IntersectionCount(o Bitset) int {
	n := 0
	for i := range b {
		n += bits.OnesCount64(b[i] & o[i])
	}
	return n
}

// All yields the members in ascending order.
func (b Bitset) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		for wi, w := range b {
			for w != 0 {
				tz := bits.TrailingZeros64(w)
				if !yield(wi<<6 + tz) {
					return
				}
				w &= w - 1
			}
		}
	}
}
