// Package arena provides the fixed-capacity bump allocator that holds every
// key, value and entry record of a bpkv store.
//
// Allocations are 8-byte aligned and never freed individually; the whole
// region is released at once. Offsets handed out stay valid, and the bytes
// behind them never move, until Release.
package arena

import (
	"github.com/Giulio2002/bpkv/mmap"
)

// Alignment of every allocation.
const Alignment = 8

// Offset locates an allocation inside the arena.
type Offset uint64

// Error represents an arena error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "arena: " + e.Op + ": " + e.Err.Error()
	}
	return "arena: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrOutOfMemory = &Error{Op: "out of memory"}
	ErrInvalidSize = &Error{Op: "invalid size"}
	ErrReleased    = &Error{Op: "released"}
)

// Arena is a single pre-reserved region carved sequentially.
type Arena struct {
	region *mmap.Map // nil when backed by the Go heap
	buf    []byte
	pos    int
}

// New reserves an arena of size bytes.
// The region comes from an anonymous mapping so untouched pages cost nothing;
// if the mapping cannot be created the arena falls back to a heap slice.
func New(size int) (*Arena, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	m, err := mmap.NewAnon(size)
	if err != nil {
		return &Arena{buf: make([]byte, size)}, nil
	}
	return &Arena{region: m, buf: m.Data()}, nil
}

// Align rounds n up to the arena alignment.
func Align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// Fits reports whether an allocation of n bytes would succeed.
func (a *Arena) Fits(n int) bool {
	return n >= 0 && a.buf != nil && a.pos+Align(n) <= len(a.buf)
}

// Alloc reserves n bytes and returns their offset.
// A zero-size allocation returns the current position without advancing.
func (a *Arena) Alloc(n int) (Offset, error) {
	if a.buf == nil {
		return 0, ErrReleased
	}
	if n < 0 {
		return 0, ErrInvalidSize
	}
	size := Align(n)
	if a.pos+size > len(a.buf) {
		return 0, ErrOutOfMemory
	}
	off := Offset(a.pos)
	a.pos += size
	return off, nil
}

// Bytes returns the n bytes at off. The slice capacity is clipped to n so
// appends never spill into neighbouring allocations.
func (a *Arena) Bytes(off Offset, n int) []byte {
	start := int(off)
	return a.buf[start : start+n : start+n]
}

// Used returns the number of bytes handed out, including alignment padding.
func (a *Arena) Used() int {
	return a.pos
}

// Cap returns the arena capacity in bytes.
func (a *Arena) Cap() int {
	return len(a.buf)
}

// Available returns the number of bytes still free.
func (a *Arena) Available() int {
	return len(a.buf) - a.pos
}

// Mapped reports whether the arena is backed by an anonymous mapping.
func (a *Arena) Mapped() bool {
	return a.region != nil
}

// Release frees the whole region. Every slice previously returned by Bytes
// becomes invalid. Release is idempotent.
func (a *Arena) Release() error {
	a.buf = nil
	a.pos = 0
	if a.region == nil {
		return nil
	}
	err := a.region.Close()
	a.region = nil
	return err
}
