package outboxtest

import (
	"context"
	"errors"
	"sync"

	"github.com/marijaa010/RideBuddy-sub000/pkg/rabbitmq"
)

var ErrBrokerDown = errors.New("broker unavailable")

// Publisher records accepted messages. The first FailFirst calls fail, and
// every call fails while Down is set. While Disconnected is set calls return
// rabbitmq.ErrNotConnected, as the real publisher does between reconnects.
type Publisher struct {
	mu           sync.Mutex
	FailFirst    int
	Down         bool
	Disconnected bool
	attempts  int
	published []rabbitmq.Message
}

func (p *Publisher) Publish(_ context.Context, m rabbitmq.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.Disconnected {
		return rabbitmq.ErrNotConnected
	}
	if p.Down || p.attempts <= p.FailFirst {
		return ErrBrokerDown
	}
	p.published = append(p.published, m)
	return nil
}

func (p *Publisher) SetDown(down bool) {
	p.mu.Lock()
	p.Down = down
	p.mu.Unlock()
}

func (p *Publisher) SetDisconnected(disconnected bool) {
	p.mu.Lock()
	p.Disconnected = disconnected
	p.mu.Unlock()
}

func (p *Publisher) Published() []rabbitmq.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]rabbitmq.Message, len(p.published))
	copy(out, p.published)
	return out
}

func (p *Publisher) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}
