// Package apperr holds the error kinds shared by the ledger, the void tracker
// and the command surface. Callers wrap these with fmt.Errorf("...: %w") and
// classify with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation marks bad input: wrong channel, missing role, malformed
	// date, people_paid above total_claiming. Nothing was mutated.
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate record")
	// ErrPersistence means the write to disk failed and the operation was
	// rolled back in memory.
	ErrPersistence = errors.New("persistence failed")
	// ErrCancelled is a user-side cancellation, e.g. nobody picked a pay time
	// before the confirmation timed out.
	ErrCancelled = errors.New("cancelled")
)

// IsUserError reports whether err should be shown to the invoking user as-is
// rather than logged as a fault.
func IsUserError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrCancelled)
}
