//go:build windows

package bpkv

import (
	"os"

	"golang.org/x/sys/windows"
)

// tryLockFile attempts a non-blocking exclusive lock on the first byte.
func tryLockFile(f *os.File) (bool, error) {
	handle := windows.Handle(f.Fd())

	var overlapped windows.Overlapped
	err := windows.LockFileEx(handle, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, &overlapped)
	if err != nil {
		// ERROR_LOCK_VIOLATION means lock is held elsewhere
		if err == windows.ERROR_LOCK_VIOLATION {
			return false, nil
		}
		return false, &lockError{"try lock", err}
	}
	return true, nil
}

func unlockFile(f *os.File) error {
	handle := windows.Handle(f.Fd())

	var overlapped windows.Overlapped
	if err := windows.UnlockFileEx(handle, 0, 1, 0, &overlapped); err != nil {
		return &lockError{"release lock", err}
	}
	return nil
}
