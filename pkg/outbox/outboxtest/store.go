// Package outboxtest has in-memory stand-ins for the outbox store and the broker.
package outboxtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/marijaa010/RideBuddy-sub000/pkg/outbox"
)

// MemoryStore keeps outbox rows in a map and ignores the tx handle.
type MemoryStore struct {
	mu   sync.Mutex
	seq  int64
	rows map[string]*outbox.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*outbox.Message)}
}

func (s *MemoryStore) Insert(_ context.Context, _ *gorm.DB, msgs []outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range msgs {
		s.seq++
		msgs[i].Seq = s.seq
		m := msgs[i]
		s.rows[m.ID] = &m
	}
	return nil
}

func (s *MemoryStore) FetchPending(_ context.Context, _ *gorm.DB, limit, maxRetries int) ([]outbox.Message, error) {
	return s.filter(limit, func(m *outbox.Message) bool {
		return m.ProcessedAt == nil && m.RetryCount < maxRetries
	}), nil
}

func (s *MemoryStore) MarkProcessed(_ context.Context, _ *gorm.DB, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.rows[id]; ok {
		m.ProcessedAt = &at
		m.Error = nil
	}
	return nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, _ *gorm.DB, id string, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.rows[id]; ok {
		m.RetryCount++
		m.Error = &errText
	}
	return nil
}

func (s *MemoryStore) ListFailed(_ context.Context, _ *gorm.DB, maxRetries, limit int) ([]outbox.Message, error) {
	return s.filter(limit, func(m *outbox.Message) bool {
		return m.ProcessedAt == nil && m.RetryCount >= maxRetries
	}), nil
}

// All returns every row in insertion order.
func (s *MemoryStore) All() []outbox.Message {
	return s.filter(0, func(*outbox.Message) bool { return true })
}

// Types returns the event types of every row in insertion order.
func (s *MemoryStore) Types() []string {
	var out []string
	for _, m := range s.All() {
		out = append(out, m.EventType)
	}
	return out
}

func (s *MemoryStore) filter(limit int, keep func(*outbox.Message) bool) []outbox.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []outbox.Message
	for _, m := range s.rows {
		if keep(m) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
