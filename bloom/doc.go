// Package bloom implements the membership filter that fronts every bpkv
// point lookup.
//
// A Filter answers "definitely absent" or "possibly present" for a byte-string
// key. Three independent 32-bit hashes select three bit positions, each reduced
// modulo the current bit-array length:
//
//   - FNV-1a
//   - a shift-xor rolling hash, h = (h<<5 + h) ^ c, seeded 0x5bd1e995
//   - a multiply-by-31 rolling hash, h = h*31 + c, seeded 0x811c9dc5
//
// Rolling hashes fold each byte sign-extended to 32 bits. This is part of the
// dump format: a persisted bitmap is only valid under the same hashes.
//
// # Bit layout
//
// Bit j lives in byte j>>3 at position j&7 (LSB0). The in-memory bitset uses
// uint64 words; AppendTo and Restore convert through little-endian words so
// the serialized bytes follow the LSB0 byte layout on every architecture.
//
// # Growth
//
// The filter does not grow on its own. The owner watches FillRatio and calls
// Reset with a larger size, then re-adds every live key.
package bloom
