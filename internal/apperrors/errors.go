// Package apperrors defines the sentinel domain errors shared by the service.
//
// Wrap them with fmt.Errorf("...: %w", apperrors.ErrNotFound) and test with the
// IsXxx helpers or errors.Is.
package apperrors

import "errors"

var (
	// ErrNotFound indicates the requested record or session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input or a violated structural rule.
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates the request conflicts with current state.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState indicates the operation is not valid right now.
	ErrInvalidState = errors.New("invalid state")

	// ErrTimeout indicates a collaborator did not answer in time.
	ErrTimeout = errors.New("timeout")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict reports whether any error in err's chain is ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsTimeout reports whether any error in err's chain is ErrTimeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
