package consumer

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/logger"
	"github.com/marijaa010/RideBuddy-sub000/pkg/rabbitmq"
)

type call struct {
	messageID string
	eventType string
	bookingID string
}

type mockNotifier struct {
	calls []call
	err   error
}

func (m *mockNotifier) HandleBookingEvent(_ context.Context, messageID, eventType string, p contracts.BookingPayload) error {
	m.calls = append(m.calls, call{messageID, eventType, p.BookingID})
	return m.err
}

func TestBookingEventsAreForwarded(t *testing.T) {
	svc := &mockNotifier{}
	router := NewBookingConsumer(svc, logger.Discard()).Router()

	for _, eventType := range []string{
		contracts.EventBookingCreated,
		contracts.EventBookingConfirmed,
		contracts.EventBookingCancelled,
		contracts.EventBookingCompleted,
	} {
		err := router.Handle(context.Background(), amqp.Delivery{
			Type:      eventType,
			MessageId: "m-" + eventType,
			Body:      []byte(`{"booking_id":"b-1","passenger_id":"p-1","driver_id":"d-1"}`),
		})
		require.NoError(t, err)
	}

	require.Len(t, svc.calls, 4)
	assert.Equal(t, call{"m-BookingCancelled", contracts.EventBookingCancelled, "b-1"}, svc.calls[2])
}

func TestServiceErrorRequeues(t *testing.T) {
	boom := errors.New("identity down")
	router := NewBookingConsumer(&mockNotifier{err: boom}, logger.Discard()).Router()

	err := router.Handle(context.Background(), amqp.Delivery{
		Type: contracts.EventBookingCreated,
		Body: []byte(`{"booking_id":"b-1"}`),
	})

	assert.ErrorIs(t, err, boom)
}

func TestMalformedBookingEvent(t *testing.T) {
	svc := &mockNotifier{}
	router := NewBookingConsumer(svc, logger.Discard()).Router()

	err := router.Handle(context.Background(), amqp.Delivery{Type: contracts.EventBookingConfirmed, Body: []byte(`[]`)})
	assert.ErrorIs(t, err, rabbitmq.ErrMalformed)

	err = router.Handle(context.Background(), amqp.Delivery{Type: contracts.EventBookingConfirmed, Body: []byte(`{}`)})
	assert.ErrorIs(t, err, rabbitmq.ErrMalformed)
	assert.Empty(t, svc.calls)
}
