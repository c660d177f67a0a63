package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConnected is returned by Publish while the publisher is between connections.
var ErrNotConnected = errors.New("rabbitmq: not connected")

const (
	defaultReconnectMin = time.Second
	defaultReconnectMax = 30 * time.Second
)

// ReconnectConfig bounds the delay between reconnect attempts.
type ReconnectConfig struct {
	MinInterval time.Duration
	MaxInterval time.Duration
}

func (rc ReconnectConfig) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rc.MinInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = defaultReconnectMin
	}
	b.MaxInterval = rc.MaxInterval
	if b.MaxInterval <= 0 {
		b.MaxInterval = defaultReconnectMax
	}
	b.Reset()
	return b
}

func dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	return conn, ch, nil
}

// session runs one connection's lifetime. It calls connected once the
// connection is usable and returns when the connection is lost or ctx ends.
type session func(ctx context.Context, connected func()) error

// supervise re-runs s until ctx is cancelled, waiting between attempts. The
// delay grows while attempts keep failing and resets once a session connects.
func supervise(ctx context.Context, logger *slog.Logger, b *backoff.ExponentialBackOff, s session) {
	for {
		err := s(ctx, b.Reset)
		if ctx.Err() != nil {
			return
		}

		wait := b.NextBackOff()
		logger.Warn("rabbitmq connection lost, reconnecting", "error", err, "retry_in", wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// waitClosed blocks until conn or ch is closed, or ctx ends.
func waitClosed(ctx context.Context, conn *amqp.Connection, ch *amqp.Channel) error {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-connClosed:
		return closedError("connection", err)
	case err := <-chClosed:
		return closedError("channel", err)
	}
}

func closedError(what string, err *amqp.Error) error {
	if err == nil {
		return fmt.Errorf("rabbitmq %s closed", what)
	}
	return fmt.Errorf("rabbitmq %s closed: %w", what, err)
}
