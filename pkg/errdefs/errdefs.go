// Package errdefs defines the error kinds shared across the record
// register and helpers to join them with call-site detail.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals that the requested key or object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParameter signals that the input is malformed, such as an
	// identifier or key that does not match the expected grammar.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrConflict signals that the requested action contradicts existing
	// state. A change in state should be able to clear this error.
	ErrConflict = errors.New("conflict")

	// ErrAlreadyExists signals that the resource already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnavailable signals that the requested subsystem or remote is not
	// reachable right now. Retrying later may succeed.
	ErrUnavailable = errors.New("unavailable")

	// ErrForbidden signals that the action cannot be performed under any
	// circumstances, such as a write against a read-only role. Callers
	// should never retry.
	ErrForbidden = errors.New("forbidden")

	// ErrUnsupported signals that the action or format is not supported.
	ErrUnsupported = errors.New("unsupported")

	// ErrDataLoss signals lost or corrupted data, such as a checksum that
	// no longer matches the stored content.
	ErrDataLoss = errors.New("data loss")

	// ErrCanceled signals that the action was canceled.
	ErrCanceled = errors.New("canceled")

	// ErrSystem signals an internal error such as a failed filesystem
	// operation.
	ErrSystem = errors.New("system error")
)

// Newf wraps the base error and a formatted error created by fmt.Errorf,
// returns the error joined.
func Newf(base error, format string, args ...any) error {
	return errors.Join(base, fmt.Errorf(format, args...))
}

// NewE wraps the base error and the input error, returns the error joined.
func NewE(base error, err error) error {
	if err == nil || errors.Is(err, base) {
		return err
	}
	return errors.Join(base, err)
}
