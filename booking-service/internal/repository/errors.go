package repository

import "errors"

var (
	ErrNotFound            = errors.New("record not found")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrDuplicateActive is returned when the active-booking unique index rejects an insert.
	ErrDuplicateActive = errors.New("active booking already exists")
)
