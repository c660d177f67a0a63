package models

import "errors"

// Domain errors. Callers match them with errors.Is; they never mean "retry".
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidState      = errors.New("invalid ride state")
	ErrInsufficientSeats = errors.New("insufficient seats")
	ErrOverRelease       = errors.New("release exceeds total seats")
)
