package contracts

import "github.com/shopspring/decimal"

// RideInfo answers GetRideInfo.
type RideInfo struct {
	RideID         string          `json:"ride_id"`
	DriverID       string          `json:"driver_id"`
	AvailableSeats int             `json:"available_seats"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	IsAvailable    bool            `json:"is_available"`
	AutoConfirm    bool            `json:"auto_confirm"`
}

type SeatRequest struct {
	Count int `json:"count"`
}

// SeatResult answers ReserveSeats and ReleaseSeats. Conflict is set when the
// ledger kept losing optimistic races and the caller should reload and retry.
type SeatResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Conflict bool   `json:"conflict,omitempty"`
}

type Availability struct {
	IsAvailable    bool `json:"is_available"`
	AvailableSeats int  `json:"available_seats"`
}

// UserInfo answers ValidateUser and GetUserInfo on the identity service.
type UserInfo struct {
	UserID    string `json:"user_id"`
	IsValid   bool   `json:"is_valid"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
