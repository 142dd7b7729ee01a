package shared

import "errors"

var (
	// ErrNotFound indicates a referenced entity is missing.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input; never retried automatically.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates an invariant violation such as a duplicate active lease.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition indicates an illegal payment status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStoreUnavailable indicates a transient store fault; callers may retry
	// the whole operation, never a sub-step.
	ErrStoreUnavailable = errors.New("store unavailable")
)
