package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateRideRequest struct {
	Origin       string          `json:"origin"`
	Destination  string          `json:"destination"`
	DepartureAt  time.Time       `json:"departure_at"`
	TotalSeats   int             `json:"total_seats"`
	PricePerSeat decimal.Decimal `json:"price_per_seat"`
	Currency     string          `json:"currency"`
	AutoConfirm  bool            `json:"auto_confirm"`
}

type CancelRideRequest struct {
	Reason string `json:"reason"`
}
