package bpkv

import (
	"errors"
	"fmt"
)

// Error represents a bpkv error with an error code
type Error struct {
	Code    ErrorCode
	Message string
	Err     error // wrapped error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bpkv: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("bpkv: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so errors.Is works against
// the prebuilt values below even when the error wraps a cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// ErrorCode classifies bpkv errors
type ErrorCode int

// Error codes
const (
	// Success indicates the operation completed successfully
	Success ErrorCode = 0

	// ErrOutOfMemory indicates the arena cannot satisfy a write
	ErrOutOfMemory ErrorCode = -1

	// ErrNotFound indicates the key is absent or tombstoned
	ErrNotFound ErrorCode = -2

	// ErrIO indicates a file open, read, write or rename failure
	ErrIO ErrorCode = -3

	// ErrCorrupted indicates a dump file with a bad tag or truncated content
	ErrCorrupted ErrorCode = -4

	// ErrBadValSize indicates a key or value too large for the dump format
	ErrBadValSize ErrorCode = -5

	// ErrBusy indicates another process holds the store lock
	ErrBusy ErrorCode = -6

	// ErrClosed indicates the engine has been closed
	ErrClosed ErrorCode = -7

	// ErrInvalid indicates invalid options
	ErrInvalid ErrorCode = -8

	// ErrProblem indicates an unexpected internal error
	ErrProblem ErrorCode = -9
)

// Error descriptions
var errorMessages = map[ErrorCode]string{
	Success:        "success",
	ErrOutOfMemory: "arena exhausted",
	ErrNotFound:    "key not found",
	ErrIO:          "i/o failure",
	ErrCorrupted:   "dump file is corrupted",
	ErrBadValSize:  "invalid key or value size",
	ErrBusy:        "store is locked by another process",
	ErrClosed:      "engine is closed",
	ErrInvalid:     "invalid options",
	ErrProblem:     "unexpected internal error",
}

// NewError creates a new Error with the given code
func NewError(code ErrorCode) *Error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = fmt.Sprintf("unknown error code %d", code)
	}
	return &Error{Code: code, Message: msg}
}

// WrapError creates a new Error wrapping another error
func WrapError(code ErrorCode, err error) *Error {
	e := NewError(code)
	e.Err = err
	return e
}

// Common error variables for convenience
var (
	ErrOutOfMemoryError = NewError(ErrOutOfMemory)
	ErrNotFoundError    = NewError(ErrNotFound)
	ErrIOError          = NewError(ErrIO)
	ErrCorruptedError   = NewError(ErrCorrupted)
	ErrBadValSizeError  = NewError(ErrBadValSize)
	ErrBusyError        = NewError(ErrBusy)
	ErrClosedError      = NewError(ErrClosed)
	ErrInvalidError     = NewError(ErrInvalid)
)

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound)
}

// IsOutOfMemory returns true if the arena was exhausted
func IsOutOfMemory(err error) bool {
	return hasCode(err, ErrOutOfMemory)
}

// IsCorrupted returns true if a dump file failed validation
func IsCorrupted(err error) bool {
	return hasCode(err, ErrCorrupted)
}

// IsBusy returns true if the store lock is held elsewhere
func IsBusy(err error) bool {
	return hasCode(err, ErrBusy)
}

// Code returns the error code from an error, or ErrProblem if not a bpkv error
func Code(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrProblem
}
