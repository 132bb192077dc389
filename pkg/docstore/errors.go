package docstore

import "errors"

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateKey is returned when a write violates a uniqueness
	// constraint on the collection.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidFilter is returned for filters with an unknown operator.
	ErrInvalidFilter = errors.New("invalid query filter")
)
