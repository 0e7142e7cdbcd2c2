package storage

import "errors"

// Errors shared by the token store and the sighting/score journals.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a journal already holds a row with the same key.
	// Journals are append-only; a repeated live event yields this error and is skipped.
	ErrDuplicateKey = errors.New("duplicate key: append-only journal does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
