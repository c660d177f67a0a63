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

const (
	ExchangeName = "events"
	ExchangeKind = "topic"

	defaultConfirmTimeout = 5 * time.Second
)

// Message is one event on the bus. Type carries the event type tag and
// MessageID a unique id consumers may use for deduplication.
type Message struct {
	RoutingKey string
	MessageID  string
	Type       string
	Body       []byte
	Timestamp  time.Time
}

// Publisher keeps a confirm-mode channel open, re-dialing in the background
// whenever the connection drops.
type Publisher struct {
	url    string
	logger *slog.Logger

	mu      sync.RWMutex
	channel *amqp.Channel

	// confirms are matched to publishes in order, so one publish at a time
	pubMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPublisher fails when the first connection cannot be made; later losses
// are repaired in the background.
func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	p := &Publisher{url: url, logger: logger, done: make(chan struct{})}

	conn, ch, err := p.open()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx, conn, ch)
	return p, nil
}

func (p *Publisher) open() (*amqp.Connection, *amqp.Channel, error) {
	conn, ch, err := dial(p.url)
	if err != nil {
		return nil, nil, err
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq enable confirms: %w", err)
	}
	return conn, ch, nil
}

func (p *Publisher) run(ctx context.Context, conn *amqp.Connection, ch *amqp.Channel) {
	defer close(p.done)

	supervise(ctx, p.logger, ReconnectConfig{}.backOff(), func(ctx context.Context, connected func()) error {
		c, cch := conn, ch
		conn, ch = nil, nil
		if c == nil {
			var err error
			if c, cch, err = p.open(); err != nil {
				return err
			}
			p.logger.Info("rabbitmq publisher reconnected")
		}
		defer c.Close()

		p.setChannel(cch)
		defer p.setChannel(nil)
		connected()

		return waitClosed(ctx, c, cch)
	})
}

func (p *Publisher) setChannel(ch *amqp.Channel) {
	p.mu.Lock()
	p.channel = ch
	p.mu.Unlock()
}

func (p *Publisher) currentChannel() *amqp.Channel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.channel
}

// Publish sends m and waits for the broker confirm. A nack or a timeout is an error.
func (p *Publisher) Publish(ctx context.Context, m Message) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultConfirmTimeout)
		defer cancel()
	}

	p.pubMu.Lock()
	defer p.pubMu.Unlock()

	ch := p.currentChannel()
	if ch == nil || ch.IsClosed() {
		return ErrNotConnected
	}

	dc, err := ch.PublishWithDeferredConfirmWithContext(
		ctx,
		ExchangeName,
		m.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    m.MessageID,
			Type:         m.Type,
			Timestamp:    m.Timestamp,
			Body:         m.Body,
		},
	)
	if errors.Is(err, amqp.ErrClosed) {
		return ErrNotConnected
	}
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("publish %s not acknowledged by broker", m.MessageID)
	}

	p.logger.Debug("published message",
		"exchange", ExchangeName,
		"routing_key", m.RoutingKey,
		"message_id", m.MessageID,
		"type", m.Type,
	)
	return nil
}

// Close stops reconnecting and closes the current connection.
func (p *Publisher) Close() {
	p.cancel()
	<-p.done
}
