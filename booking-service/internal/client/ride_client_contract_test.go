package client_test

import (
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/client"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/service"
)

// the HTTP client is what main wires into the saga
var _ service.RideClient = (*client.RideClient)(nil)
