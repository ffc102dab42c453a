package bpkv

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Giulio2002/bpkv/mmap"
)

// Dump file layout, all integers little-endian:
//
//	Offset  Size        Field
//	0       4           magic (FileMagic)
//	4       8           live entry count
//	12      8           filter length in bits
//	20      bits/8      filter bitmap, bit i at byte i/8, mask 1<<(i%8)
//	...                 count entries: klen u32, vlen u32, key, value
//
// Entries appear in ascending key order. Tombstones are never written.

const saveBufferSize = 1 << 20

// Save writes every live entry to path. The dump goes to path+".tmp" first
// and is renamed over path once synced, so a failed save leaves any
// previous dump intact.
func (e *Engine) Save(path string) error {
	if e.closed {
		return ErrClosedError
	}

	start := time.Now()
	tmp := path + tmpSuffix
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return WrapError(ErrIO, err)
	}

	if err := e.writeDump(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return WrapError(ErrIO, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return WrapError(ErrIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return WrapError(ErrIO, err)
	}

	e.log.Debug("store saved",
		zap.String("path", path),
		zap.Int("count", e.count),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (e *Engine) writeDump(f *os.File) error {
	w := bufio.NewWriterSize(f, saveBufferSize)

	hdr := make([]byte, fileHeaderSize, fileHeaderSize+e.filter.ByteLen())
	binary.LittleEndian.PutUint32(hdr[0:], FileMagic)
	binary.LittleEndian.PutUint64(hdr[4:], uint64(e.count))
	binary.LittleEndian.PutUint64(hdr[12:], e.filter.Bits())
	hdr = e.filter.AppendTo(hdr)
	w.Write(hdr)

	// bufio.Writer keeps the first error; it surfaces at Flush.
	var eh [entryHeaderSize]byte
	n := e.forEachLive(func(k, v []byte) {
		binary.LittleEndian.PutUint32(eh[0:], uint32(len(k)))
		binary.LittleEndian.PutUint32(eh[4:], uint32(len(v)))
		w.Write(eh[:])
		w.Write(k)
		w.Write(v)
	})
	if err := w.Flush(); err != nil {
		return WrapError(ErrIO, err)
	}
	if n != e.count {
		return WrapError(ErrProblem, fmt.Errorf("wrote %d entries, count is %d", n, e.count))
	}
	return nil
}

// Load builds an engine from a dump written by Save. The returned engine
// has no auto-save path and takes no lock. A nil opts uses DefaultOptions.
//
// A dump that does not start with FileMagic or ends early fails with
// ErrCorrupted. If the arena fills during replay the partial engine is
// discarded and ErrOutOfMemory is returned.
func Load(path string, opts *Options) (*Engine, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return load(path, opts)
}

func load(path string, opts *Options) (*Engine, error) {
	start := time.Now()
	m, err := mmap.MapFile(path)
	if err != nil {
		if errors.Is(err, mmap.ErrEmptyFile) {
			return nil, WrapError(ErrCorrupted, err)
		}
		return nil, WrapError(ErrIO, err)
	}
	defer m.Close()
	m.AdviseSequential()

	data := m.Data()
	if len(data) < fileHeaderSize || binary.LittleEndian.Uint32(data) != FileMagic {
		return nil, WrapError(ErrCorrupted, errors.New("bad magic"))
	}
	count := binary.LittleEndian.Uint64(data[4:])
	bits := binary.LittleEndian.Uint64(data[12:])
	if bits == 0 || bits%8 != 0 {
		return nil, WrapError(ErrCorrupted, fmt.Errorf("bad filter size %d", bits))
	}
	pos := uint64(fileHeaderSize)
	if uint64(len(data))-pos < bits/8 {
		return nil, WrapError(ErrCorrupted, errors.New("truncated filter"))
	}
	bitmap := data[pos : pos+bits/8]
	pos += bits / 8

	e, err := newEngine(opts)
	if err != nil {
		return nil, err
	}
	if err := e.filter.Restore(bits, bitmap); err != nil {
		e.release()
		return nil, WrapError(ErrCorrupted, err)
	}

	end := uint64(len(data))
	for i := uint64(0); i < count; i++ {
		if end-pos < entryHeaderSize {
			e.release()
			return nil, WrapError(ErrCorrupted, fmt.Errorf("truncated entry %d header", i))
		}
		klen := uint64(binary.LittleEndian.Uint32(data[pos:]))
		vlen := uint64(binary.LittleEndian.Uint32(data[pos+4:]))
		pos += entryHeaderSize
		if end-pos < klen+vlen {
			e.release()
			return nil, WrapError(ErrCorrupted, fmt.Errorf("truncated entry %d", i))
		}
		key := data[pos : pos+klen]
		value := data[pos+klen : pos+klen+vlen]
		pos += klen + vlen

		if err := e.Put(key, value); err != nil {
			e.release()
			return nil, err
		}
	}

	e.log.Debug("store loaded",
		zap.String("path", path),
		zap.Int("count", e.count),
		zap.Uint64("filter_bits", bits),
		zap.Duration("took", time.Since(start)))
	return e, nil
}
