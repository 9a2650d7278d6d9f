package status

import "fmt"

// Code classifies status failures.
type Code string

const (
	CodeAlreadyExists     Code = "already_exists"
	CodeNotFound          Code = "not_found"
	CodeOutOfRange        Code = "out_of_range"
	CodePersistenceFailed Code = "persistence_failed"
	CodeMultiBit          Code = "multi_bit"
)

// Rejected reports whether the code means no state changed.
func (c Code) Rejected() bool {
	switch c {
	case CodeAlreadyExists, CodeNotFound, CodeOutOfRange, CodeMultiBit:
		return true
	}
	return false
}

// Error is the status domain error. Rejected codes leave the registry
// untouched; CodePersistenceFailed is returned after the in-memory change
// was already committed.
type Error struct {
	Code   Code
	Status ID
	Cause  error
}

func newError(code Code, id ID, cause error) *Error {
	return &Error{Code: code, Status: id, Cause: cause}
}

// NewError creates a status error for the given code.
func NewError(code Code, id ID, cause error) *Error {
	return newError(code, id, cause)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("status %d: %s", e.Status, e.Code)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code so callers can use the sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrAlreadyExists     = &Error{Code: CodeAlreadyExists}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrOutOfRange        = &Error{Code: CodeOutOfRange}
	ErrPersistenceFailed = &Error{Code: CodePersistenceFailed}
	ErrMultiBit          = &Error{Code: CodeMultiBit}
)
