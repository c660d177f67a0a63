// Package outbox persists domain events next to the state change that produced
// them and relays them to the broker with at-least-once delivery.
package outbox

import (
	"time"

	"github.com/marijaa010/RideBuddy-sub000/pkg/database"
)

// Message is one row of the outbox table. ID doubles as the broker message id.
type Message struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	Seq         int64      `gorm:"autoIncrement" json:"seq"`
	AggregateID string     `gorm:"not null;index" json:"aggregate_id"`
	EventType   string     `gorm:"type:varchar(64);not null" json:"event_type"`
	Payload     []byte     `gorm:"type:jsonb;not null" json:"payload"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	RetryCount  int        `gorm:"not null;default:0" json:"retry_count"`
}

func (Message) TableName() string { return "outbox_messages" }

// Processed reports whether the broker accepted the message.
func (m Message) Processed() bool { return m.ProcessedAt != nil }

// PendingIndex serves the relay's "unprocessed, oldest first" scan.
const PendingIndex database.Migration = `
	CREATE INDEX IF NOT EXISTS idx_outbox_unprocessed
	ON outbox_messages (seq)
	WHERE processed_at IS NULL
`
