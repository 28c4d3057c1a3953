// Copyright 2021 The bit Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bitset

import "math/bits"

// Bitset is a fixed-length bitmap, conceptually a []bool of Len entries.
// Offsets outside [0, Len) read as clear and are ignored by Set.
type Bitset struct {
	words  []uint64
	length int
}

// New returns a bitset of n clear bits.
func New(n int) *Bitset {
	if n < 0 {
		n = 0
	}
	return &Bitset{
		words:  make([]uint64, (n+63)/64),
		length: n,
	}
}

func (b *Bitset) Len() int { return b.length }

// Set sets bit i to 1.
func (b *Bitset) Set(i int) {
	if i < 0 || i >= b.length {
		return
	}
	b.words[i/64] |= 1 << (uint(i) % 64)
}

// IsSet reports whether bit i is 1.
func (b *Bitset) IsSet(i int) bool {
	if i < 0 || i >= b.length {
		return false
	}
	return b.words[i/64]&(1<<(uint(i)%64)) != 0
}

// Count returns the number of set bits.
func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}
