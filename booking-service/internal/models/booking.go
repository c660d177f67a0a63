package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/events"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusRejected  BookingStatus = "rejected"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// Active bookings hold (or are about to hold) seats on the ride.
func (s BookingStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Booking struct {
	ID          string        `gorm:"type:uuid;primaryKey" json:"id"`
	RideID      string        `gorm:"not null;index" json:"ride_id"`
	PassengerID string        `gorm:"not null;index" json:"passenger_id"`
	DriverID    string        `gorm:"not null" json:"driver_id"`
	Seats       int           `gorm:"not null" json:"seats"`
	TotalPrice  Money         `gorm:"embedded;embeddedPrefix:total_" json:"total_price"`
	Status      BookingStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	// SeatsReserved is set once the ride's ledger holds seats for this booking.
	SeatsReserved bool       `gorm:"not null;default:false" json:"seats_reserved"`
	Reason        string     `json:"reason,omitempty"`
	Version       int64      `gorm:"not null" json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	RejectedAt    *time.Time `json:"rejected_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	events.Recorder `gorm:"-" json:"-"`
}

func (Booking) TableName() string { return "bookings" }

// ActiveIndex keeps one Pending or Confirmed booking per passenger and ride.
const ActiveIndex = `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_active
	ON bookings (ride_id, passenger_id)
	WHERE status IN ('pending', 'confirmed')
`

// NewBooking starts a Pending booking priced at pricePerSeat × seats.
func NewBooking(rideID, passengerID, driverID string, seats int, pricePerSeat Money) (*Booking, error) {
	if rideID == "" || passengerID == "" || driverID == "" {
		return nil, fmt.Errorf("%w: ride, passenger and driver are required", ErrInvalidArgument)
	}
	if seats <= 0 {
		return nil, fmt.Errorf("%w: seats must be positive", ErrInvalidArgument)
	}

	now := time.Now().UTC()
	b := &Booking{
		ID:          uuid.NewString(),
		RideID:      rideID,
		PassengerID: passengerID,
		DriverID:    driverID,
		Seats:       seats,
		Status:      StatusPending,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := b.SetTotalPrice(pricePerSeat.Times(seats)); err != nil {
		return nil, err
	}
	b.record(contracts.EventBookingCreated, now)
	return b, nil
}

// SetTotalPrice refuses to change the currency once one is set.
func (b *Booking) SetTotalPrice(m Money) error {
	if !currencyPattern.MatchString(m.Currency) {
		return fmt.Errorf("%w: currency %q is not a three-letter code", ErrInvalidArgument, m.Currency)
	}
	if b.TotalPrice.Currency != "" && b.TotalPrice.Currency != m.Currency {
		return fmt.Errorf("%w: booking is priced in %s, got %s", ErrCurrencyMismatch, b.TotalPrice.Currency, m.Currency)
	}
	b.TotalPrice = m
	return nil
}

// MarkSeatsReserved records a successful ledger reservation. No event.
func (b *Booking) MarkSeatsReserved() {
	b.SeatsReserved = true
	b.touch()
}

func (b *Booking) Confirm() error {
	if b.Status != StatusPending {
		return fmt.Errorf("%w: cannot confirm a %s booking", ErrInvalidState, b.Status)
	}
	now := b.touch()
	b.Status = StatusConfirmed
	b.ConfirmedAt = &now
	b.record(contracts.EventBookingConfirmed, now)
	return nil
}

// Reject records no event, unlike every other transition.
// TODO: decide whether BookingRejected should be announced; notification-service would need a handler for it.
func (b *Booking) Reject(reason string) error {
	if b.Status != StatusPending {
		return fmt.Errorf("%w: cannot reject a %s booking", ErrInvalidState, b.Status)
	}
	now := b.touch()
	b.Status = StatusRejected
	b.Reason = reason
	b.RejectedAt = &now
	return nil
}

func (b *Booking) Complete() error {
	if b.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot complete a %s booking", ErrInvalidState, b.Status)
	}
	now := b.touch()
	b.Status = StatusCompleted
	b.CompletedAt = &now
	b.record(contracts.EventBookingCompleted, now)
	return nil
}

func (b *Booking) Cancel(reason string) error {
	switch b.Status {
	case StatusPending, StatusConfirmed:
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusCompleted:
		return ErrAlreadyCompleted
	default:
		return fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidState, b.Status)
	}
	now := b.touch()
	b.Status = StatusCancelled
	b.Reason = reason
	b.CancelledAt = &now
	b.record(contracts.EventBookingCancelled, now)
	return nil
}

// IsParticipant reports whether userID is the passenger or the driver.
func (b *Booking) IsParticipant(userID string) bool {
	return userID != "" && (userID == b.PassengerID || userID == b.DriverID)
}

func (b *Booking) touch() time.Time {
	now := time.Now().UTC()
	b.Version++
	b.UpdatedAt = now
	return now
}

func (b *Booking) record(eventType string, at time.Time) {
	b.Record(eventType, b.ID, contracts.BookingPayload{
		BookingID:   b.ID,
		RideID:      b.RideID,
		PassengerID: b.PassengerID,
		DriverID:    b.DriverID,
		Seats:       b.Seats,
		Amount:      b.TotalPrice.Amount,
		Currency:    b.TotalPrice.Currency,
		Status:      string(b.Status),
		Reason:      b.Reason,
		OccurredAt:  at,
	})
}
