// Package consumer applies ride lifecycle events to local bookings.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/rabbitmq"
)

// RideBookings is the part of the booking service the consumer drives.
type RideBookings interface {
	CompleteRideBookings(ctx context.Context, rideID string) (int, error)
	CancelRideBookings(ctx context.Context, rideID, reason string) (int, error)
}

type RideConsumer struct {
	svc    RideBookings
	logger *slog.Logger
}

func NewRideConsumer(svc RideBookings, logger *slog.Logger) *RideConsumer {
	return &RideConsumer{svc: svc, logger: logger.With("component", "ride_consumer")}
}

// Router wires the ride events this consumer cares about. Anything else on
// the queue is acknowledged and ignored.
func (rc *RideConsumer) Router() *rabbitmq.Router {
	return rabbitmq.NewRouter(rc.logger).
		On(contracts.EventRideCompleted, rc.onRideCompleted).
		On(contracts.EventRideCancelled, rc.onRideCancelled)
}

func (rc *RideConsumer) onRideCompleted(ctx context.Context, body []byte) error {
	p, err := rabbitmq.Decode[contracts.RideStatusPayload](body)
	if err != nil {
		return err
	}
	if p.RideID == "" {
		return fmt.Errorf("%w: ride_id missing", rabbitmq.ErrMalformed)
	}

	n, err := rc.svc.CompleteRideBookings(ctx, p.RideID)
	if err != nil {
		return err
	}
	rc.logger.Info("ride completed, bookings completed", "ride_id", p.RideID, "bookings", n)
	return nil
}

func (rc *RideConsumer) onRideCancelled(ctx context.Context, body []byte) error {
	p, err := rabbitmq.Decode[contracts.RideStatusPayload](body)
	if err != nil {
		return err
	}
	if p.RideID == "" {
		return fmt.Errorf("%w: ride_id missing", rabbitmq.ErrMalformed)
	}

	n, err := rc.svc.CancelRideBookings(ctx, p.RideID, p.Reason)
	if err != nil {
		return err
	}
	rc.logger.Info("ride cancelled, bookings cancelled", "ride_id", p.RideID, "bookings", n)
	return nil
}
