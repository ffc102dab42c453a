package bpkv

import (
	"errors"
	"os"
)

// procLock is an exclusive advisory lock on <path>.lock. It keeps a second
// process from opening the same store and clobbering its dump on close.
// The lock file itself is left in place after release.
type procLock struct {
	file *os.File
	path string
}

var errLockHeld = &lockError{"lock held by another process", nil}

type lockError struct {
	op  string
	err error
}

func (e *lockError) Error() string {
	if e.err != nil {
		return "lock: " + e.op + ": " + e.err.Error()
	}
	return "lock: " + e.op
}

func (e *lockError) Unwrap() error {
	return e.err
}

// acquireLock takes the store lock without blocking.
// It fails with ErrBusy when another holder exists.
func acquireLock(path string) (*procLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, WrapError(ErrIO, &lockError{"open", err})
	}

	ok, err := tryLockFile(f)
	if err != nil {
		f.Close()
		return nil, WrapError(ErrIO, err)
	}
	if !ok {
		f.Close()
		return nil, WrapError(ErrBusy, errLockHeld)
	}
	return &procLock{file: f, path: path}, nil
}

// release drops the lock. Safe to call more than once.
func (l *procLock) release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unlockFile(l.file)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return WrapError(ErrIO, err)
	}
	return nil
}
