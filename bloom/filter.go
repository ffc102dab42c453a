package bloom

import "errors"

var (
	// ErrBadBits is returned for a zero bit count.
	ErrBadBits = errors.New("bloom: bit count must be positive")
	// ErrShortBitmap is returned when a serialized bitmap is smaller than its bit count.
	ErrShortBitmap = errors.New("bloom: bitmap shorter than bit count")
)

// Filter is a triple-hash probabilistic set over byte strings.
// It is not safe for concurrent use.
type Filter struct {
	set     *Bitset
	setBits uint64
}

// New creates an empty filter of the given size in bits.
func New(bits uint64) (*Filter, error) {
	if bits == 0 {
		return nil, ErrBadBits
	}
	return &Filter{set: NewBitset(bits)}, nil
}

// Add inserts key. The set-bit counter only moves for bits that flip 0 to 1.
func (f *Filter) Add(key []byte) {
	n := f.set.Len()
	f.mark(uint64(fnv1a(key)) % n)
	f.mark(uint64(shiftXor(key)) % n)
	f.mark(uint64(mul31(key)) % n)
}

func (f *Filter) mark(pos uint64) {
	if f.set.Set(pos) {
		f.setBits++
	}
}

// MaybeContains returns false if key was definitely never added since the
// last Reset, true if it may have been.
func (f *Filter) MaybeContains(key []byte) bool {
	n := f.set.Len()
	return f.set.Test(uint64(fnv1a(key))%n) &&
		f.set.Test(uint64(shiftXor(key))%n) &&
		f.set.Test(uint64(mul31(key))%n)
}

// Bits returns the bit-array length.
func (f *Filter) Bits() uint64 {
	return f.set.Len()
}

// SetBits returns the number of bits currently set.
func (f *Filter) SetBits() uint64 {
	return f.setBits
}

// FillRatio returns SetBits/Bits in [0, 1].
func (f *Filter) FillRatio() float64 {
	return float64(f.setBits) / float64(f.set.Len())
}

// Reset replaces the bit array with an empty one of the given size.
// Callers must re-add every live key afterwards.
func (f *Filter) Reset(bits uint64) error {
	if bits == 0 {
		return ErrBadBits
	}
	f.set = NewBitset(bits)
	f.setBits = 0
	return nil
}

// Restore replaces the bit array with a serialized one and recounts set bits.
func (f *Filter) Restore(bits uint64, data []byte) error {
	if bits == 0 {
		return ErrBadBits
	}
	set, err := NewBitsetFromBytes(bits, data)
	if err != nil {
		return err
	}
	f.set = set
	f.setBits = set.Count()
	return nil
}

// ByteLen returns the size of the serialized bitmap.
func (f *Filter) ByteLen() int {
	return f.set.ByteLen()
}

// AppendTo appends the serialized bitmap to dst.
func (f *Filter) AppendTo(dst []byte) []byte {
	return f.set.AppendBytes(dst)
}
