package quiz

import "errors"

// Error kinds shared across the workflows and stores. Callers wrap them with
// fmt.Errorf("%w") and the dispatcher boundary classifies with errors.Is.
var (
	// ErrNotFound reports a missing bank, student, assignment or result.
	ErrNotFound = errors.New("not found")
	// ErrMalformed reports an unreadable or structurally invalid bank or input.
	ErrMalformed = errors.New("malformed")
	// ErrUnauthorized reports a non-admin attempt to enter an admin workflow.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDuplicateName reports a bank create with an already taken name.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrIntegrityViolation reports a second registration for the same user id.
	ErrIntegrityViolation = errors.New("integrity violation")
	// ErrStateMismatch reports an action not accepted by the current session step.
	ErrStateMismatch = errors.New("state mismatch")
)
