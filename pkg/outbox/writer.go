package outbox

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marijaa010/RideBuddy-sub000/pkg/events"
)

// Writer turns an aggregate's pending events into outbox rows.
type Writer struct {
	store Store
}

func NewWriter(store Store) *Writer {
	return &Writer{store: store}
}

// Write must be called inside the transaction that persists src. On success the
// aggregate's buffer is cleared and the inserted rows are returned for the fast path.
func (w *Writer) Write(ctx context.Context, tx *gorm.DB, src events.Source) ([]Message, error) {
	pending := src.PendingEvents()
	if len(pending) == 0 {
		return nil, nil
	}

	msgs := make([]Message, 0, len(pending))
	for _, ev := range pending {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", ev.Type, err)
		}
		msgs = append(msgs, Message{
			ID:          uuid.NewString(),
			AggregateID: ev.AggregateID,
			EventType:   ev.Type,
			Payload:     payload,
			CreatedAt:   ev.OccurredAt,
		})
	}

	if err := w.store.Insert(ctx, tx, msgs); err != nil {
		return nil, err
	}
	src.ClearEvents()
	return msgs, nil
}
