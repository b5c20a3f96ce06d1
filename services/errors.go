// Package services holds the complaint lifecycle core: display-ID allocation,
// submission, status transitions, the ownership guard, and the notification
// contract. Handlers translate the sentinel errors below into HTTP statuses.
package services

import "errors"

var (
	// ErrValidation is returned when required input is missing or malformed.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound indicates that the referenced complaint does not exist.
	ErrNotFound = errors.New("complaint not found")

	// ErrForbidden is returned when the caller is neither the owner of the
	// complaint nor in a privileged role.
	ErrForbidden = errors.New("not allowed to modify this complaint")

	// ErrConflict is returned when a transactional write lost its
	// optimistic-concurrency race and the bounded retries were exhausted,
	// or when a unique constraint was violated.
	ErrConflict = errors.New("concurrent modification")

	// ErrDependency wraps document store failures that are not the caller's
	// fault.
	ErrDependency = errors.New("store unavailable")
)
