package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/models"
)

type RideResponse struct {
	ID             string          `json:"id"`
	DriverID       string          `json:"driver_id"`
	Origin         string          `json:"origin"`
	Destination    string          `json:"destination"`
	DepartureAt    time.Time       `json:"departure_at"`
	TotalSeats     int             `json:"total_seats"`
	AvailableSeats int             `json:"available_seats"`
	PricePerSeat   decimal.Decimal `json:"price_per_seat"`
	Currency       string          `json:"currency"`
	AutoConfirm    bool            `json:"auto_confirm"`
	Status         string          `json:"status"`
	CancelReason   string          `json:"cancel_reason,omitempty"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
}

func ToRideResponse(r *models.Ride) RideResponse {
	return RideResponse{
		ID:             r.ID,
		DriverID:       r.DriverID,
		Origin:         r.Origin,
		Destination:    r.Destination,
		DepartureAt:    r.DepartureAt,
		TotalSeats:     r.TotalSeats,
		AvailableSeats: r.AvailableSeats,
		PricePerSeat:   r.PricePerSeat,
		Currency:       r.Currency,
		AutoConfirm:    r.AutoConfirm,
		Status:         string(r.Status),
		CancelReason:   r.CancelReason,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
	}
}
