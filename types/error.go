// error.go defines the error types returned across avscene.

package types

import (
	"fmt"
)

// ErrNotFound is returned when a referenced video (or other) file does not exist.
type ErrNotFound struct {
	Path string
	Err  error
}

func (e ErrNotFound) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("file '%s' not found: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("file '%s' not found", e.Path)
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrCorruptMedia is returned when the container metadata disagrees with
// the actually decodable content.
type ErrCorruptMedia struct {
	Path     string
	Reason   string
	Expected int64
	Actual   int64
}

func (e ErrCorruptMedia) Error() string {
	if e.Expected != e.Actual {
		return fmt.Sprintf("corrupt media '%s': %s (expected %d, actual %d)", e.Path, e.Reason, e.Expected, e.Actual)
	}
	return fmt.Sprintf("corrupt media '%s': %s", e.Path, e.Reason)
}

// ErrInvalidInput is returned when an input (for example a frame store
// passed to a detector) is empty or malformed.
type ErrInvalidInput struct {
	Reason string
}

func (e ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// ErrInsufficientBoundaries is returned when less than two boundaries were
// found, so not a single closed segment could be formed.
type ErrInsufficientBoundaries struct {
	Found int
}

func (e ErrInsufficientBoundaries) Error() string {
	return fmt.Sprintf("at least 2 boundaries are required to form a segment, but found %d", e.Found)
}

// ErrModelLoad is returned when an event model cannot be loaded (or is used
// before being loaded).
type ErrModelLoad struct {
	Path string
	Err  error
}

func (e ErrModelLoad) Error() string {
	return fmt.Sprintf("unable to load the model from '%s': %v", e.Path, e.Err)
}

func (e ErrModelLoad) Unwrap() error {
	return e.Err
}

// ErrDetector wraps a failure of a single boundary detector.
type ErrDetector struct {
	Name string
	Err  error
}

func (e ErrDetector) Error() string {
	return fmt.Sprintf("detector '%s' failed: %v", e.Name, e.Err)
}

func (e ErrDetector) Unwrap() error {
	return e.Err
}

type ErrNotImplemented struct {
	Err error
}

func (e ErrNotImplemented) Error() string {
	if e.Err == nil {
		return "not implemented"
	}
	return fmt.Sprintf("not implemented: %v", e.Err)
}

func (e ErrNotImplemented) Unwrap() error {
	return e.Err
}
