package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

// TypeHandler handles the body of one event type.
type TypeHandler func(ctx context.Context, body []byte) error

// Router dispatches deliveries by their type tag. Unknown tags are logged and
// acknowledged so newer producers do not wedge older consumers.
type Router struct {
	handlers map[string]TypeHandler
	logger   *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	return &Router{handlers: make(map[string]TypeHandler), logger: logger}
}

func (r *Router) On(eventType string, h TypeHandler) *Router {
	r.handlers[eventType] = h
	return r
}

// Handle satisfies Handler. The delivery's message id is available to the
// type handler through MessageID.
func (r *Router) Handle(ctx context.Context, d amqp.Delivery) error {
	h, ok := r.handlers[d.Type]
	if !ok {
		r.logger.Info("ignoring unrecognized event type", "type", d.Type, "routing_key", d.RoutingKey, "message_id", d.MessageId)
		return nil
	}
	return h(context.WithValue(ctx, messageIDKey{}, d.MessageId), d.Body)
}

type messageIDKey struct{}

// MessageID returns the broker message id of the delivery being handled, or "".
func MessageID(ctx context.Context) string {
	id, _ := ctx.Value(messageIDKey{}).(string)
	return id
}

// Decode unmarshals a payload into T, marking failures as malformed.
func Decode[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}
