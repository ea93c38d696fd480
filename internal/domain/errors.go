package domain

import (
	"errors"
	"fmt"
)

// Expected failure conditions cross the service boundary as tagged errors,
// not panics, so the HTTP layer can render a specific message for each.
var (
	// ErrConflict: the proposed dates overlap an existing non-cancelled
	// reservation on the same cottage.
	ErrConflict = errors.New("dates unavailable")

	// ErrNotFound: the referenced cottage or reservation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable: the backing store could not be reached. Callers
	// may retry; the conflict checker must never translate this into
	// "no conflict".
	ErrStoreUnavailable = errors.New("store unavailable")
)

// StoreError wraps a backing-store failure so errors.Is(err,
// ErrStoreUnavailable) matches while the root cause stays inspectable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// ValidationError carries a caller-facing reason for rejected input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func Invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
