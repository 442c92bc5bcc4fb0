// Package fxerr defines the error kinds shared by the particle engine.
//
// Callers test the kind with errors.Is; the returned errors carry context
// added with errors.Wrapf.
package fxerr

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument reports malformed configuration: bad gradients,
	// unknown effects, negative counts, unsatisfiable component sets.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIndexOutOfRange reports a quantized index outside its table
	// dimension. Always a programming error.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrResourceUnavailable reports a failing rendering or asset collaborator.
	ErrResourceUnavailable = errors.New("resource unavailable")
)

// Invalid wraps ErrInvalidArgument with a formatted message.
func Invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// OutOfRange wraps ErrIndexOutOfRange with a formatted message.
func OutOfRange(format string, args ...interface{}) error {
	return errors.Wrapf(ErrIndexOutOfRange, format, args...)
}

// Unavailable wraps ErrResourceUnavailable, keeping the cause in the message.
func Unavailable(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return errors.Wrapf(ErrResourceUnavailable, format, args...)
	}
	return errors.Wrapf(ErrResourceUnavailable, format+": %v", append(args, cause)...)
}
