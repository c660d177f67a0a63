// Package contracts holds the wire shapes shared between producing and consuming
// services: event type tags, event payloads and seat-management RPC bodies.
package contracts

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ServiceRide         = "ride-service"
	ServiceBooking      = "booking-service"
	ServiceNotification = "notification-service"
)

// Ride event type tags.
const (
	EventRideCreated   = "RideCreated"
	EventSeatsReserved = "SeatsReserved"
	EventSeatsReleased = "SeatsReleased"
	EventRideStarted   = "RideStarted"
	EventRideCompleted = "RideCompleted"
	EventRideCancelled = "RideCancelled"
)

// Booking event type tags. There is intentionally no BookingRejected tag.
const (
	EventBookingCreated   = "BookingCreated"
	EventBookingConfirmed = "BookingConfirmed"
	EventBookingCancelled = "BookingCancelled"
	EventBookingCompleted = "BookingCompleted"
)

// RoutingKey builds "<service>.<lower-cased event type>".
func RoutingKey(service, eventType string) string {
	return service + "." + strings.ToLower(eventType)
}

// BindingPattern matches every event produced by service.
func BindingPattern(service string) string {
	return service + ".#"
}

type RideCreatedPayload struct {
	RideID       string          `json:"ride_id"`
	DriverID     string          `json:"driver_id"`
	TotalSeats   int             `json:"total_seats"`
	PricePerSeat decimal.Decimal `json:"price_per_seat"`
	Currency     string          `json:"currency"`
	DepartureAt  time.Time       `json:"departure_at"`
}

type SeatsChangedPayload struct {
	RideID         string `json:"ride_id"`
	Count          int    `json:"count"`
	AvailableSeats int    `json:"available_seats"`
	Version        int64  `json:"version"`
}

type RideStatusPayload struct {
	RideID     string    `json:"ride_id"`
	DriverID   string    `json:"driver_id"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type BookingPayload struct {
	BookingID   string          `json:"booking_id"`
	RideID      string          `json:"ride_id"`
	PassengerID string          `json:"passenger_id"`
	DriverID    string          `json:"driver_id"`
	Seats       int             `json:"seats"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Reason      string          `json:"reason,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
