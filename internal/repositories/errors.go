package repositories

import "errors"

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConstraintViolation is returned when a uniqueness or reference rule is broken.
	ErrConstraintViolation = errors.New("constraint violation")
)
