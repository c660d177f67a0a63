package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrConcurrencyConflict means the row changed since it was loaded. The caller
	// should reload and re-apply its intent; it is not a business failure.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)
