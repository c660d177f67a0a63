package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/models"
)

type BookingResponse struct {
	ID            string               `json:"id"`
	RideID        string               `json:"ride_id"`
	PassengerID   string               `json:"passenger_id"`
	DriverID      string               `json:"driver_id"`
	Seats         int                  `json:"seats"`
	TotalPrice    decimal.Decimal      `json:"total_price"`
	Currency      string               `json:"currency"`
	Status        models.BookingStatus `json:"status"`
	SeatsReserved bool                 `json:"seats_reserved"`
	Reason        string               `json:"reason,omitempty"`
	Version       int64                `json:"version"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		RideID:        b.RideID,
		PassengerID:   b.PassengerID,
		DriverID:      b.DriverID,
		Seats:         b.Seats,
		TotalPrice:    b.TotalPrice.Amount,
		Currency:      b.TotalPrice.Currency,
		Status:        b.Status,
		SeatsReserved: b.SeatsReserved,
		Reason:        b.Reason,
		Version:       b.Version,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func ToBookingResponses(bookings []models.Booking) []BookingResponse {
	resp := make([]BookingResponse, len(bookings))
	for i := range bookings {
		resp[i] = ToBookingResponse(&bookings[i])
	}
	return resp
}
