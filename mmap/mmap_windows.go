//go:build windows

package mmap

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// NewAnon reserves and commits a zero-filled read/write region of length bytes.
func NewAnon(length int) (*Map, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}

	addr, err := windows.VirtualAlloc(0, uintptr(length), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, &Error{Op: "VirtualAlloc", Err: err}
	}

	return &Map{
		data: unsafe.Slice((*byte)(unsafe.Pointer(addr)), length),
		size: int64(length),
		anon: true,
		addr: addr,
	}, nil
}

// MapFile maps the whole file at path read-only.
// The file handle is closed once the view is established; the mapping keeps
// its own reference.
func MapFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return nil, ErrEmptyFile
	}

	maxSizeHigh := uint32(uint64(size) >> 32)
	maxSizeLow := uint32(size)

	mapping, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READONLY, maxSizeHigh, maxSizeLow, nil)
	if err != nil {
		return nil, &Error{Op: "CreateFileMapping", Err: err}
	}
	// The view holds a reference to the mapping object.
	defer windows.CloseHandle(mapping)

	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		return nil, &Error{Op: "MapViewOfFile", Err: err}
	}

	return &Map{
		data: unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size)),
		size: size,
		addr: addr,
	}, nil
}

// Close releases the memory mapping.
func (m *Map) Close() error {
	if m.data == nil {
		return nil
	}

	var err error
	if m.anon {
		if e := windows.VirtualFree(m.addr, 0, windows.MEM_RELEASE); e != nil {
			err = &Error{Op: "VirtualFree", Err: e}
		}
	} else if e := windows.UnmapViewOfFile(m.addr); e != nil {
		err = &Error{Op: "UnmapViewOfFile", Err: e}
	}

	m.data = nil
	m.size = 0
	m.addr = 0
	return err
}

// Advise provides hints to the kernel about memory usage patterns.
// Windows doesn't have madvise, so these are no-ops.
func (m *Map) Advise(advice int) error {
	if m.data == nil {
		return ErrNotMapped
	}
	return nil
}

// AdviseSequential hints that pages will be accessed sequentially.
func (m *Map) AdviseSequential() error {
	return m.Advise(0)
}

// AdviseRandom hints that pages will be accessed randomly.
func (m *Map) AdviseRandom() error {
	return m.Advise(0)
}

// AdviseDontNeed hints that pages won't be needed soon.
func (m *Map) AdviseDontNeed() error {
	return m.Advise(0)
}
