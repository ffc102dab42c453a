package bloom

import (
	"encoding/binary"
	"math/bits"
)

// Bitset is a fixed-length bit array stored in uint64 words.
type Bitset struct {
	words []uint64
	n     uint64
}

// NewBitset creates a zeroed bitset of n bits.
func NewBitset(n uint64) *Bitset {
	return &Bitset{
		words: make([]uint64, (n+63)/64),
		n:     n,
	}
}

// NewBitsetFromBytes builds an n-bit bitset from its LSB0 byte encoding.
// data must hold at least ceil(n/8) bytes; bits past n are cleared.
func NewBitsetFromBytes(n uint64, data []byte) (*Bitset, error) {
	need := (n + 7) / 8
	if uint64(len(data)) < need {
		return nil, ErrShortBitmap
	}
	b := NewBitset(n)
	data = data[:need]
	for i := range b.words {
		if len(data) >= 8 {
			b.words[i] = binary.LittleEndian.Uint64(data)
			data = data[8:]
			continue
		}
		var tail [8]byte
		copy(tail[:], data)
		b.words[i] = binary.LittleEndian.Uint64(tail[:])
		data = nil
	}
	if rem := n % 64; rem != 0 {
		b.words[len(b.words)-1] &= (1 << rem) - 1
	}
	return b, nil
}

// Set sets bit pos and reports whether it changed from 0 to 1.
func (b *Bitset) Set(pos uint64) bool {
	w := &b.words[pos/64]
	mask := uint64(1) << (pos % 64)
	if *w&mask != 0 {
		return false
	}
	*w |= mask
	return true
}

// Test returns true if bit pos is set.
func (b *Bitset) Test(pos uint64) bool {
	return b.words[pos/64]&(1<<(pos%64)) != 0
}

// Count returns the number of set bits.
func (b *Bitset) Count() uint64 {
	var count uint64
	for _, word := range b.words {
		count += uint64(bits.OnesCount64(word))
	}
	return count
}

// Len returns the number of bits.
func (b *Bitset) Len() uint64 {
	return b.n
}

// ByteLen returns the size of the LSB0 byte encoding.
func (b *Bitset) ByteLen() int {
	return int((b.n + 7) / 8)
}

// AppendBytes appends the LSB0 byte encoding of the bitset to dst.
func (b *Bitset) AppendBytes(dst []byte) []byte {
	remaining := b.ByteLen()
	var buf [8]byte
	for _, word := range b.words {
		binary.LittleEndian.PutUint64(buf[:], word)
		n := min(remaining, 8)
		dst = append(dst, buf[:n]...)
		remaining -= n
	}
	return dst
}
