// Package bitvec provides fixed-length packed bit vectors and the
// match-count primitive used by binary neurons. Bits beyond the logical
// length are kept set to 1 so that padding always matches padding, which
// lets MatchCount work on whole words and correct for the tail once.
package bitvec

import "fmt"

const wordBits = 64

// Vector is a bit vector of fixed logical length backed by uint64 words.
// Bit p lives in word p/64 at position p%64. Tail bits past the logical
// length are all ones (the padding convention shared with the wire codec).
type Vector struct {
	words []uint64
	n     int
}

// New returns a zeroed vector of length n (tail padding set to 1).
func New(n int) *Vector {
	if n < 0 {
		n = 0
	}
	nw := (n + wordBits - 1) / wordBits
	v := &Vector{words: make([]uint64, nw), n: n}
	v.padTail()
	return v
}

// FromBools builds a vector from a slice of bits.
func FromBools(bits []bool) *Vector {
	v := New(len(bits))
	for i, b := range bits {
		if b {
			v.words[i/wordBits] |= 1 << uint(i%wordBits)
		}
	}
	return v
}

// padTail forces every bit past the logical length to 1.
func (v *Vector) padTail() {
	if v.n%wordBits == 0 {
		return
	}
	last := len(v.words) - 1
	used := uint(v.n % wordBits)
	v.words[last] |= ^uint64(0) << used
}

// Len returns the logical length in bits.
func (v *Vector) Len() int {
	return v.n
}

// Get returns bit i. Panics if i is out of range, matching slice semantics.
func (v *Vector) Get(i int) bool {
	if i < 0 || i >= v.n {
		panic(fmt.Sprintf("bitvec: index %d out of range [0,%d)", i, v.n))
	}
	return v.words[i/wordBits]>>uint(i%wordBits)&1 == 1
}

// Set assigns bit i. Panics if i is out of range.
func (v *Vector) Set(i int, b bool) {
	if i < 0 || i >= v.n {
		panic(fmt.Sprintf("bitvec: index %d out of range [0,%d)", i, v.n))
	}
	if b {
		v.words[i/wordBits] |= 1 << uint(i%wordBits)
	} else {
		v.words[i/wordBits] &^= 1 << uint(i%wordBits)
	}
}

// Bools expands the vector back into a bool slice.
func (v *Vector) Bools() []bool {
	out := make([]bool, v.n)
	for i := range out {
		out[i] = v.words[i/wordBits]>>uint(i%wordBits)&1 == 1
	}
	return out
}

// Words exposes the backing words (tail padding included). Callers must
// not mutate the returned slice.
func (v *Vector) Words() []uint64 {
	return v.words
}

// MatchCount returns the number of positions where a and w agree, the
// XNOR-popcount at the heart of binary multiply-accumulate. Both tails
// are all ones, so every pad bit counts as a match and is subtracted.
func MatchCount(a, w *Vector) (int, error) {
	if a.n != w.n {
		return 0, fmt.Errorf("bitvec: length mismatch %d vs %d", a.n, w.n)
	}
	if a.n == 0 {
		return 0, nil
	}
	total := matchWords(a.words, w.words)
	pad := len(a.words)*wordBits - a.n
	return total - pad, nil
}
