package models

import "errors"

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidState     = errors.New("invalid booking state")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrAlreadyCompleted = errors.New("booking is already completed")
	ErrCurrencyMismatch = errors.New("currency mismatch")
)
