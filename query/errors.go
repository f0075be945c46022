package query

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes query errors.
type ErrorCode string

const (
	// ErrCodeBackend indicates the backend reported a failure.
	ErrCodeBackend ErrorCode = "BACKEND_ERROR"

	// ErrCodeUnexpected indicates the data source failed to resolve at all:
	// a transport error or a panic.
	ErrCodeUnexpected ErrorCode = "UNEXPECTED_ERROR"

	// ErrCodeNotFound indicates a Require* call found no row.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeDecode indicates a row could not be decoded into the result type.
	ErrCodeDecode ErrorCode = "DECODE_ERROR"
)

// ErrNotFound matches not-found errors with errors.Is.
var ErrNotFound = errors.New("not found")

// Error is returned by every terminal operation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the terminal operation: one, many, first, insert, update, ...
	Op string

	// Table is the table the operation targeted.
	Table string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s on %q: %s", e.Op, e.Table, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNotFound) true for not-found errors.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Code == ErrCodeNotFound
}

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsBackendError returns true if the backend reported err.
// Uses errors.As to handle wrapped errors.
func IsBackendError(err error) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == ErrCodeBackend
	}
	return false
}

// IsUnexpectedError returns true if err came from a transport failure or
// a panic in the data source.
func IsUnexpectedError(err error) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == ErrCodeUnexpected
	}
	return false
}

func newNotFound(op, table string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Op:      op,
		Table:   table,
		Message: fmt.Sprintf("no matching row in table %q", table),
	}
}
