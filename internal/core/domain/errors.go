package domain

import "errors"

// Ledger error kinds. Every failed operation leaves stored state untouched;
// callers dispatch on these with errors.Is.
var (
	// ErrInvalidInput means a negative quantity or a non-positive amount.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means the referenced item id does not exist.
	ErrNotFound = errors.New("item not found")

	// ErrAlreadyExists means a create collided with an existing item id.
	ErrAlreadyExists = errors.New("item already exists")

	// ErrInsufficientStock means a decrement larger than the current
	// quantity was requested. Kept distinct from ErrNotFound so callers
	// can report "sold out" and "unknown item" differently.
	ErrInsufficientStock = errors.New("insufficient stock")
)
