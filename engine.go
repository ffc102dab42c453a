package bpkv

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Giulio2002/bpkv/bloom"
	"github.com/Giulio2002/bpkv/internal/arena"
)

// VisitFunc receives a key and its value during a scan. Both slices point
// into the arena and stay valid until the engine is closed; copy them to
// keep them longer.
type VisitFunc func(key, value []byte)

// Engine is an in-memory ordered key-value store.
//
// Keys and values live in a fixed-size arena, ordered by a B+tree, and
// fronted by a membership filter that answers most misses without touching
// the tree. Deletes leave tombstones; space is reclaimed only by saving and
// reloading, which writes live entries alone.
//
// An Engine is not safe for concurrent use. Callers sharing one across
// goroutines must serialize access themselves.
type Engine struct {
	opts   Options
	log    *zap.Logger
	path   string // auto-save target, empty for purely in-memory engines
	lock   *procLock
	closed bool

	arena  *arena.Arena
	es     entries
	tree   *btree
	filter *bloom.Filter
	count  int

	// inserts counts newly created logical entries and drives the
	// periodic filter growth check.
	inserts     int
	filterMaxed bool
}

// Stats is a snapshot of engine metrics.
type Stats struct {
	Count          int     // live entries
	MemoryUsed     int     // arena bytes handed out, including padding
	MemoryCap      int     // arena capacity
	FilterBits     uint64  // filter length in bits
	FilterFillRate float64 // percentage of filter bits set, 0..100
	TreeHeight     int
	NodeCount      int
}

// Open creates an engine. With an empty path the engine is purely in
// memory. Otherwise the store lock is taken, an existing dump at path is
// loaded, and Close writes the live contents back to path.
//
// A nil opts uses DefaultOptions.
func Open(path string, opts *Options) (*Engine, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if path == "" {
		return newEngine(opts)
	}

	var lk *procLock
	if !opts.NoLock {
		var err error
		lk, err = acquireLock(path + lockSuffix)
		if err != nil {
			return nil, err
		}
	}

	var (
		e   *Engine
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		e, err = load(path, opts)
	} else if errors.Is(statErr, fs.ErrNotExist) {
		e, err = newEngine(opts)
	} else {
		err = WrapError(ErrIO, statErr)
	}
	if err != nil {
		lk.release()
		return nil, err
	}

	e.path = path
	e.lock = lk
	e.log.Info("store opened", zap.String("path", path), zap.Int("count", e.count))
	return e, nil
}

func newEngine(opts *Options) (*Engine, error) {
	a, err := arena.New(opts.ArenaSize)
	if err != nil {
		return nil, WrapError(ErrOutOfMemory, err)
	}
	f, err := bloom.New(opts.FilterInitBits)
	if err != nil {
		a.Release()
		return nil, WrapError(ErrInvalid, err)
	}

	e := &Engine{
		opts:   *opts,
		log:    opts.logger(),
		arena:  a,
		es:     entries{a: a},
		filter: f,
	}
	e.tree = newTree(opts.Order, e.es)
	if !a.Mapped() {
		e.log.Debug("arena fell back to heap", zap.Int("size", opts.ArenaSize))
	}
	return e, nil
}

// Close saves the store if it has a path, then releases the arena, the
// tree and the lock. Every slice handed out by cursors or visitors becomes
// invalid. The save error, if any, is returned; resources are released
// regardless. Close is idempotent.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}

	var err error
	if e.path != "" {
		err = e.Save(e.path)
		if err != nil {
			e.log.Error("save on close failed", zap.String("path", e.path), zap.Error(err))
		}
		e.log.Info("store closed", zap.String("path", e.path), zap.Int("count", e.count))
	}

	e.release()
	if lerr := e.lock.release(); lerr != nil && err == nil {
		err = lerr
	}
	e.lock = nil
	return err
}

// release drops in-memory state without saving.
func (e *Engine) release() {
	e.closed = true
	e.tree = nil
	e.filter = nil
	e.count = 0
	if e.arena != nil {
		e.arena.Release()
	}
}

// Path returns the auto-save path, empty for in-memory engines.
func (e *Engine) Path() string {
	return e.path
}

// Len returns the number of live entries.
func (e *Engine) Len() int {
	return e.count
}

// Put stores value under key, replacing any live value.
//
// Put fails with ErrOutOfMemory when the arena cannot hold the worst-case
// footprint of the write; the store is left unchanged in that case.
func (e *Engine) Put(key, value []byte) error {
	if e.closed {
		return ErrClosedError
	}
	if uint64(len(key)) > MaxKeySize || uint64(len(value)) > MaxValueSize {
		return ErrBadValSizeError
	}
	if !e.arena.Fits(reserve(len(key), len(value))) {
		return ErrOutOfMemoryError
	}

	e.filter.Add(key)
	added, err := e.tree.insert(key, value)
	if err != nil {
		// reserve() covers every allocation insert makes
		return WrapError(ErrProblem, err)
	}
	if added {
		e.count++
		e.inserts++
		if e.inserts%e.opts.FilterGrowInterval == 0 {
			e.maybeGrowFilter()
		}
	}
	return nil
}

// find returns the live entry stored under key.
func (e *Engine) find(key []byte) (entryRef, bool) {
	if !e.filter.MaybeContains(key) {
		return 0, false
	}
	ref, ok := e.tree.lookup(key)
	if !ok || e.es.deleted(ref) {
		return 0, false
	}
	return ref, true
}

// Get returns a copy of the value stored under key, or ErrNotFound.
func (e *Engine) Get(key []byte) ([]byte, error) {
	if e.closed {
		return nil, ErrClosedError
	}
	ref, ok := e.find(key)
	if !ok {
		return nil, ErrNotFoundError
	}
	return bytes.Clone(e.es.value(ref)), nil
}

// Exists reports whether key has a live entry.
func (e *Engine) Exists(key []byte) bool {
	if e.closed {
		return false
	}
	_, ok := e.find(key)
	return ok
}

// Delete tombstones the entry under key, or returns ErrNotFound.
// The filter is left untouched; it may keep answering "maybe" for key.
func (e *Engine) Delete(key []byte) error {
	if e.closed {
		return ErrClosedError
	}
	ref, ok := e.find(key)
	if !ok {
		return ErrNotFoundError
	}
	e.es.markDeleted(ref)
	e.count--
	return nil
}

// Range calls fn for every live entry with from <= key <= to in ascending
// order and returns how many were visited. fn must not modify the engine.
func (e *Engine) Range(from, to []byte, fn VisitFunc) int {
	if e.closed || Compare(from, to) > 0 {
		return 0
	}

	c := e.newCursor()
	n := 0
	for ok := c.Seek(from); ok; ok = c.Next() {
		k := c.Key()
		if Compare(k, to) > 0 {
			break
		}
		if fn != nil {
			fn(k, c.Value())
		}
		n++
	}
	return n
}

// ForEach calls fn for every live entry in ascending key order and returns
// how many were visited. fn must not modify the engine.
func (e *Engine) ForEach(fn VisitFunc) int {
	if e.closed {
		return 0
	}
	return e.forEachLive(fn)
}

// forEachLive walks the leaf chain from the first leaf, skipping tombstones.
func (e *Engine) forEachLive(fn VisitFunc) int {
	n := 0
	for leaf := e.tree.firstLeaf; leaf != nil; leaf = leaf.next {
		for i, ref := range leaf.entries {
			if e.es.deleted(ref) {
				continue
			}
			if fn != nil {
				fn(leaf.keys[i], e.es.value(ref))
			}
			n++
		}
	}
	return n
}

// Stats returns a snapshot of engine metrics. A closed engine reports zeros.
func (e *Engine) Stats() Stats {
	if e.closed {
		return Stats{}
	}
	return Stats{
		Count:          e.count,
		MemoryUsed:     e.arena.Used(),
		MemoryCap:      e.arena.Cap(),
		FilterBits:     e.filter.Bits(),
		FilterFillRate: e.filter.FillRatio() * 100,
		TreeHeight:     e.tree.height,
		NodeCount:      e.tree.nodes,
	}
}

// maybeGrowFilter quadruples the filter, up to the configured maximum, once
// it is at least FilterGrowThreshold full, and re-adds every live key.
func (e *Engine) maybeGrowFilter() {
	if e.filter.FillRatio() < e.opts.FilterGrowThreshold {
		return
	}

	bits := e.filter.Bits()
	if bits >= e.opts.FilterMaxBits {
		if !e.filterMaxed {
			e.filterMaxed = true
			e.log.Warn("membership filter at maximum size",
				zap.Uint64("bits", bits),
				zap.Float64("fill", e.filter.FillRatio()))
		}
		return
	}

	start := time.Now()
	newBits := min(bits*FilterGrowthFactor, e.opts.FilterMaxBits)
	if err := e.filter.Reset(newBits); err != nil {
		// A half-rebuilt filter would report false negatives.
		panic(fmt.Sprintf("bpkv: filter reset to %d bits: %v", newBits, err))
	}
	n := e.forEachLive(func(k, _ []byte) {
		e.filter.Add(k)
	})

	e.log.Debug("membership filter grown",
		zap.Uint64("from", bits),
		zap.Uint64("to", newBits),
		zap.Int("keys", n),
		zap.Duration("took", time.Since(start)))
}
