package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrMalformed marks a delivery that can never be handled. It is dropped instead of requeued.
var ErrMalformed = errors.New("malformed message")

// Handler processes one delivery. A nil error acks it; any other error requeues it,
// unless it wraps ErrMalformed.
type Handler func(ctx context.Context, d amqp.Delivery) error

type ConsumerConfig struct {
	URL      string
	Queue    string
	Bindings []string // routing key patterns, e.g. "ride-service.#"
	Prefetch int

	HandlerTimeout time.Duration
	Reconnect      ReconnectConfig
}

type Consumer struct {
	cfg    ConsumerConfig
	logger *slog.Logger

	// connection opened by NewConsumer, handed to the first Consume session
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewConsumer fails when the first connection cannot be made. Consume
// reconnects on its own after that.
func NewConsumer(cfg ConsumerConfig, logger *slog.Logger) (*Consumer, error) {
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}

	c := &Consumer{cfg: cfg, logger: logger}
	conn, ch, err := c.open()
	if err != nil {
		return nil, err
	}
	c.conn, c.channel = conn, ch
	return c, nil
}

func (c *Consumer) open() (*amqp.Connection, *amqp.Channel, error) {
	conn, ch, err := dial(c.cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := declareQueue(ch, c.cfg); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// take returns the connection left by NewConsumer, or dials a new one.
func (c *Consumer) take() (*amqp.Connection, *amqp.Channel, error) {
	c.mu.Lock()
	conn, ch := c.conn, c.channel
	c.conn, c.channel = nil, nil
	c.mu.Unlock()

	if conn != nil && !conn.IsClosed() {
		return conn, ch, nil
	}
	conn, ch, err := c.open()
	if err != nil {
		return nil, nil, err
	}
	c.logger.Info("rabbitmq consumer reconnected", "queue", c.cfg.Queue)
	return conn, ch, nil
}

func declareQueue(ch *amqp.Channel, cfg ConsumerConfig) error {
	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	for _, pattern := range cfg.Bindings {
		if err := ch.QueueBind(q.Name, pattern, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("rabbitmq queue bind %s: %w", pattern, err)
		}
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("rabbitmq qos: %w", err)
	}
	return nil
}

// Consume blocks until ctx is cancelled. A lost connection is re-dialed, the
// queue and its bindings declared again and consumption resumed.
func (c *Consumer) Consume(ctx context.Context, handler Handler) {
	supervise(ctx, c.logger, c.cfg.Reconnect.backOff(), func(ctx context.Context, connected func()) error {
		return c.session(ctx, handler, connected)
	})
}

func (c *Consumer) session(ctx context.Context, handler Handler, connected func()) error {
	conn, ch, err := c.take()
	if err != nil {
		return err
	}
	defer conn.Close()

	msgs, err := ch.Consume(
		c.cfg.Queue,
		"",    // consumer tag
		false, // auto-ack = false, we ack manually after processing
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	connected()
	c.logger.Info("consuming", "queue", c.cfg.Queue, "bindings", c.cfg.Bindings)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.cfg.Queue)
			}
			c.handle(ctx, d, handler)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery, handler Handler) {
	hctx, cancel := context.WithTimeout(ctx, c.cfg.HandlerTimeout)
	defer cancel()

	err := handler(hctx, d)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("ack failed", "message_id", d.MessageId, "error", ackErr)
		}
	case errors.Is(err, ErrMalformed):
		c.logger.Error("dropping malformed message", "message_id", d.MessageId, "type", d.Type, "error", err)
		_ = d.Nack(false, false)
	default:
		c.logger.Error("handler failed, requeueing", "message_id", d.MessageId, "type", d.Type, "error", err)
		_ = d.Nack(false, true)
	}
}

// Close releases a connection Consume never took over. Sessions close their
// own connections when ctx ends.
func (c *Consumer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn, c.channel = nil, nil
	}
}
