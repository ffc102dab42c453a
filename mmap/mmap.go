// Package mmap provides cross-platform memory mapping for bpkv: anonymous
// regions that back the allocation arena, and read-only file maps used when
// loading a dump.
package mmap

// Map represents a memory-mapped region.
// This type wraps platform-specific mmap implementations.
type Map struct {
	data []byte // Mapped memory region
	size int64  // Mapped size
	anon bool   // True for anonymous (not file-backed) regions
	// Windows-specific: base address of a VirtualAlloc region or mapped view
	addr uintptr
}

// Data returns the mapped byte slice.
func (m *Map) Data() []byte {
	return m.data
}

// Size returns the mapped size.
func (m *Map) Size() int64 {
	return m.size
}

// Anonymous returns true if the region is not backed by a file.
func (m *Map) Anonymous() bool {
	return m.anon
}

// Error represents an mmap error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "mmap: " + e.Op + ": " + e.Err.Error()
	}
	return "mmap: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrInvalidSize = &Error{Op: "invalid size"}
	ErrNotMapped   = &Error{Op: "not mapped"}
	ErrEmptyFile   = &Error{Op: "empty file"}
)
