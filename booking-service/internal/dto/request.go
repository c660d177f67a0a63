package dto

type CreateBookingRequest struct {
	RideID string `json:"ride_id"`
	Seats  int    `json:"seats"`
}

// ReasonRequest is the optional body of cancel and reject.
type ReasonRequest struct {
	Reason string `json:"reason"`
}
