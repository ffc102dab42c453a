package bpkv

import (
	"encoding/binary"

	"github.com/Giulio2002/bpkv/internal/arena"
)

// Entry record layout inside the arena:
//
//	Offset  Size  Field
//	0       8     value offset
//	8       4     key length
//	12      4     value length
//	16      1     flags
//	17      7     padding
//	24      klen  key bytes
//
// The value is a separate allocation so that an update only allocates the
// new value and rewrites the first 8 and the 4 bytes at offset 12.
const (
	entryValOff   = 0
	entryKeyLen   = 8
	entryValLen   = 12
	entryFlags    = 16
	entryRecordSz = 24

	entryDeleted byte = 1 << 0
)

// entryRef is the arena offset of an entry record.
type entryRef = arena.Offset

// entries reads and writes entry records in the arena.
type entries struct {
	a *arena.Arena
}

// reserve returns the worst-case arena bytes a put of this size consumes.
func reserve(klen, vlen int) int {
	return arena.Align(entryRecordSz+klen) + arena.Align(vlen)
}

// create allocates a live entry holding copies of key and value.
// It returns the record and the arena-resident copy of the key.
func (es entries) create(key, value []byte) (entryRef, []byte, error) {
	ref, err := es.a.Alloc(entryRecordSz + len(key))
	if err != nil {
		return 0, nil, err
	}
	voff, err := es.a.Alloc(len(value))
	if err != nil {
		return 0, nil, err
	}
	copy(es.a.Bytes(voff, len(value)), value)

	hdr := es.a.Bytes(ref, entryRecordSz)
	binary.LittleEndian.PutUint64(hdr[entryValOff:], uint64(voff))
	binary.LittleEndian.PutUint32(hdr[entryKeyLen:], uint32(len(key)))
	binary.LittleEndian.PutUint32(hdr[entryValLen:], uint32(len(value)))
	hdr[entryFlags] = 0

	k := es.a.Bytes(ref+entryRecordSz, len(key))
	copy(k, key)
	return ref, k, nil
}

// setValue points the entry at a fresh copy of value.
func (es entries) setValue(ref entryRef, value []byte) error {
	voff, err := es.a.Alloc(len(value))
	if err != nil {
		return err
	}
	copy(es.a.Bytes(voff, len(value)), value)

	hdr := es.a.Bytes(ref, entryRecordSz)
	binary.LittleEndian.PutUint64(hdr[entryValOff:], uint64(voff))
	binary.LittleEndian.PutUint32(hdr[entryValLen:], uint32(len(value)))
	return nil
}

func (es entries) key(ref entryRef) []byte {
	hdr := es.a.Bytes(ref, entryRecordSz)
	klen := binary.LittleEndian.Uint32(hdr[entryKeyLen:])
	return es.a.Bytes(ref+entryRecordSz, int(klen))
}

func (es entries) value(ref entryRef) []byte {
	hdr := es.a.Bytes(ref, entryRecordSz)
	voff := binary.LittleEndian.Uint64(hdr[entryValOff:])
	vlen := binary.LittleEndian.Uint32(hdr[entryValLen:])
	return es.a.Bytes(arena.Offset(voff), int(vlen))
}

func (es entries) deleted(ref entryRef) bool {
	return es.a.Bytes(ref, entryRecordSz)[entryFlags]&entryDeleted != 0
}

func (es entries) markDeleted(ref entryRef) {
	es.a.Bytes(ref, entryRecordSz)[entryFlags] |= entryDeleted
}
