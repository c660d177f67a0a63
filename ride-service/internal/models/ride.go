package models

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/events"
)

type RideStatus string

const (
	RideScheduled  RideStatus = "scheduled"
	RideInProgress RideStatus = "in_progress"
	RideCompleted  RideStatus = "completed"
	RideCancelled  RideStatus = "cancelled"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Ride is the seat ledger of one scheduled trip. AvailableSeats only moves
// through Reserve and Release, and Version grows by one on every mutation.
type Ride struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	DriverID       string          `gorm:"not null;index" json:"driver_id"`
	Origin         string          `gorm:"not null" json:"origin"`
	Destination    string          `gorm:"not null" json:"destination"`
	DepartureAt    time.Time       `gorm:"not null" json:"departure_at"`
	TotalSeats     int             `gorm:"not null" json:"total_seats"`
	AvailableSeats int             `gorm:"not null" json:"available_seats"`
	PricePerSeat   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_per_seat"`
	Currency       string          `gorm:"type:char(3);not null" json:"currency"`
	AutoConfirm    bool            `gorm:"not null;default:false" json:"auto_confirm"`
	Status         RideStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	CancelReason   string          `json:"cancel_reason,omitempty"`
	Version        int64           `gorm:"not null" json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`

	events.Recorder `gorm:"-" json:"-"`
}

type NewRideParams struct {
	DriverID     string
	Origin       string
	Destination  string
	DepartureAt  time.Time
	TotalSeats   int
	PricePerSeat decimal.Decimal
	Currency     string
	AutoConfirm  bool
}

func NewRide(p NewRideParams) (*Ride, error) {
	switch {
	case p.DriverID == "":
		return nil, fmt.Errorf("%w: driver is required", ErrInvalidArgument)
	case p.Origin == "" || p.Destination == "":
		return nil, fmt.Errorf("%w: origin and destination are required", ErrInvalidArgument)
	case p.DepartureAt.IsZero():
		return nil, fmt.Errorf("%w: departure time is required", ErrInvalidArgument)
	case p.TotalSeats <= 0:
		return nil, fmt.Errorf("%w: seats must be positive", ErrInvalidArgument)
	case p.PricePerSeat.IsNegative():
		return nil, fmt.Errorf("%w: price cannot be negative", ErrInvalidArgument)
	case !currencyPattern.MatchString(p.Currency):
		return nil, fmt.Errorf("%w: currency must be a three-letter code", ErrInvalidArgument)
	}

	now := time.Now().UTC()
	r := &Ride{
		ID:             uuid.NewString(),
		DriverID:       p.DriverID,
		Origin:         p.Origin,
		Destination:    p.Destination,
		DepartureAt:    p.DepartureAt.UTC(),
		TotalSeats:     p.TotalSeats,
		AvailableSeats: p.TotalSeats,
		PricePerSeat:   p.PricePerSeat,
		Currency:       p.Currency,
		AutoConfirm:    p.AutoConfirm,
		Status:         RideScheduled,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.Record(contracts.EventRideCreated, r.ID, contracts.RideCreatedPayload{
		RideID:       r.ID,
		DriverID:     r.DriverID,
		TotalSeats:   r.TotalSeats,
		PricePerSeat: r.PricePerSeat,
		Currency:     r.Currency,
		DepartureAt:  r.DepartureAt,
	})
	return r, nil
}

func (r *Ride) TableName() string { return "rides" }

// IsBookable reports whether the ride still sells seats at all.
func (r *Ride) IsBookable() bool {
	return r.Status == RideScheduled && r.AvailableSeats > 0
}

// CanSeat reports whether n more seats could be reserved right now.
func (r *Ride) CanSeat(n int) bool {
	return r.Status == RideScheduled && n > 0 && n <= r.AvailableSeats
}

func (r *Ride) Reserve(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: seat count must be positive, got %d", ErrInvalidArgument, n)
	}
	if r.Status != RideScheduled {
		return fmt.Errorf("%w: cannot reserve seats on a %s ride", ErrInvalidState, r.Status)
	}
	if n > r.AvailableSeats {
		return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientSeats, n, r.AvailableSeats)
	}

	r.AvailableSeats -= n
	r.bump()
	r.Record(contracts.EventSeatsReserved, r.ID, r.seatsPayload(n))
	return nil
}

// Release returns seats to the ledger. It is allowed in any status so that
// compensation still works after the ride has moved on.
func (r *Ride) Release(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: seat count must be positive, got %d", ErrInvalidArgument, n)
	}
	if r.AvailableSeats+n > r.TotalSeats {
		return fmt.Errorf("%w: %d available + %d released > %d total", ErrOverRelease, r.AvailableSeats, n, r.TotalSeats)
	}

	r.AvailableSeats += n
	r.bump()
	r.Record(contracts.EventSeatsReleased, r.ID, r.seatsPayload(n))
	return nil
}

func (r *Ride) Start() error {
	if r.Status != RideScheduled {
		return fmt.Errorf("%w: cannot start a %s ride", ErrInvalidState, r.Status)
	}
	now := r.bump()
	r.Status = RideInProgress
	r.StartedAt = &now
	r.Record(contracts.EventRideStarted, r.ID, r.statusPayload(now))
	return nil
}

func (r *Ride) Complete() error {
	if r.Status != RideInProgress {
		return fmt.Errorf("%w: cannot complete a %s ride", ErrInvalidState, r.Status)
	}
	now := r.bump()
	r.Status = RideCompleted
	r.CompletedAt = &now
	r.Record(contracts.EventRideCompleted, r.ID, r.statusPayload(now))
	return nil
}

func (r *Ride) Cancel(reason string) error {
	if r.Status != RideScheduled {
		return fmt.Errorf("%w: cannot cancel a %s ride", ErrInvalidState, r.Status)
	}
	now := r.bump()
	r.Status = RideCancelled
	r.CancelReason = reason
	r.CancelledAt = &now
	r.Record(contracts.EventRideCancelled, r.ID, r.statusPayload(now))
	return nil
}

func (r *Ride) bump() time.Time {
	now := time.Now().UTC()
	r.Version++
	r.UpdatedAt = now
	return now
}

func (r *Ride) seatsPayload(n int) contracts.SeatsChangedPayload {
	return contracts.SeatsChangedPayload{
		RideID:         r.ID,
		Count:          n,
		AvailableSeats: r.AvailableSeats,
		Version:        r.Version,
	}
}

func (r *Ride) statusPayload(at time.Time) contracts.RideStatusPayload {
	return contracts.RideStatusPayload{
		RideID:     r.ID,
		DriverID:   r.DriverID,
		Status:     string(r.Status),
		Reason:     r.CancelReason,
		OccurredAt: at,
	}
}
