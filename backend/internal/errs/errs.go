// Package errs classifies service failures so handlers can tell a bad
// request from a missing record, a uniqueness conflict, and a store outage.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStore      = errors.New("store error")
)

// Validation marks input rejected before any store access.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// NotFound marks a lookup that matched no record for the given owner.
func NotFound(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}

// Conflict marks a uniqueness violation (duplicate tag name, duplicate email).
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// Store wraps an underlying persistence failure. The cause is preserved for
// logging but must not reach API responses.
func Store(cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStore, cause)
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsStore(err error) bool      { return errors.Is(err, ErrStore) }
