// Package consumer turns booking events into notifications.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/rabbitmq"
)

type BookingNotifier interface {
	HandleBookingEvent(ctx context.Context, messageID, eventType string, p contracts.BookingPayload) error
}

type BookingConsumer struct {
	svc    BookingNotifier
	logger *slog.Logger
}

func NewBookingConsumer(svc BookingNotifier, logger *slog.Logger) *BookingConsumer {
	return &BookingConsumer{svc: svc, logger: logger.With("component", "booking_consumer")}
}

func (bc *BookingConsumer) Router() *rabbitmq.Router {
	r := rabbitmq.NewRouter(bc.logger)
	for _, eventType := range []string{
		contracts.EventBookingCreated,
		contracts.EventBookingConfirmed,
		contracts.EventBookingCancelled,
		contracts.EventBookingCompleted,
	} {
		r.On(eventType, bc.handle(eventType))
	}
	return r
}

func (bc *BookingConsumer) handle(eventType string) rabbitmq.TypeHandler {
	return func(ctx context.Context, body []byte) error {
		p, err := rabbitmq.Decode[contracts.BookingPayload](body)
		if err != nil {
			return err
		}
		if p.BookingID == "" {
			return fmt.Errorf("%w: booking_id missing", rabbitmq.ErrMalformed)
		}
		return bc.svc.HandleBookingEvent(ctx, rabbitmq.MessageID(ctx), eventType, p)
	}
}
