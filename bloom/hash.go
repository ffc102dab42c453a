package bloom

const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619

	shiftXorSeed = 0x5bd1e995
	mul31Seed    = 0x811c9dc5
)

// fnv1a is 32-bit FNV-1a.
func fnv1a(key []byte) uint32 {
	h := uint32(fnvOffset32)
	for _, c := range key {
		h = (h ^ uint32(c)) * fnvPrime32
	}
	return h
}

// shiftXor computes h = (h<<5 + h) ^ c over signed bytes.
func shiftXor(key []byte) uint32 {
	h := uint32(shiftXorSeed)
	for _, c := range key {
		h = ((h << 5) + h) ^ signed(c)
	}
	return h
}

// mul31 computes h = h*31 + c over signed bytes.
func mul31(key []byte) uint32 {
	h := uint32(mul31Seed)
	for _, c := range key {
		h = h*31 + signed(c)
	}
	return h
}

// signed sign-extends c to 32 bits.
func signed(c byte) uint32 {
	return uint32(int32(int8(c)))
}
