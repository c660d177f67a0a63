package service

import "errors"

var (
	ErrInvalidUser            = errors.New("passenger is not a valid user")
	ErrIdentityUnavailable    = errors.New("identity service unavailable")
	ErrRideNotFound           = errors.New("ride not found")
	ErrRideUnavailable        = errors.New("ride is not open for booking")
	ErrRideServiceUnavailable = errors.New("ride service unavailable")
	ErrInsufficientSeats      = errors.New("not enough seats available")
	ErrDuplicateBooking       = errors.New("passenger already has an active booking for this ride")
	ErrForbidden              = errors.New("not allowed to act on this booking")
	ErrBookingNotFound        = errors.New("booking not found")
	// ErrReservationFailed comes with the rejected booking.
	ErrReservationFailed = errors.New("seat reservation failed")
	// ErrBookingFailed hides an internal failure after the booking was stored.
	ErrBookingFailed = errors.New("booking could not be completed")
)
