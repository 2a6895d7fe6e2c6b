// Package errs defines the user-facing error type shared across scopa.
package errs

import "fmt"

// UserErrorf builds an error whose message is meant for the operator.
// It exists mostly so capitalized, sentence-style messages don't trip
// linters on plain fmt.Errorf calls.
func UserErrorf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}

// Error pairs an underlying error with a short, actionable reason.
//
// Reason is what the operator should read first; Err carries the technical
// details. When Err is nil, Error() falls back to Reason.
type Error struct {
	Err    error
	Reason string
}

// Wrap creates an Error with the given underlying error and reason.
func Wrap(err error, reason string) Error {
	return Error{Err: err, Reason: reason}
}

// Wrapf creates an Error with a formatted reason.
func Wrapf(err error, format string, a ...any) Error {
	return Error{Err: err, Reason: fmt.Sprintf(format, a...)}
}

func (e Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}

func (e Error) Unwrap() error {
	return e.Err
}

// ReasonText returns the user-facing reason.
func (e Error) ReasonText() string {
	return e.Reason
}
