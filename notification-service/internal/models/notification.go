package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification records one message sent to one user for one broker delivery.
// (user_id, message_id) is unique, so a redelivered event is not sent twice.
type Notification struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_notification_delivery" json:"user_id"`
	MessageID string    `gorm:"not null;uniqueIndex:idx_notification_delivery" json:"message_id"`
	EventType string    `gorm:"type:varchar(64);not null" json:"event_type"`
	BookingID string    `gorm:"index" json:"booking_id"`
	Recipient string    `gorm:"not null" json:"recipient"`
	Subject   string    `gorm:"not null" json:"subject"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	SentAt    time.Time `gorm:"not null" json:"sent_at"`
}

func (Notification) TableName() string { return "notifications" }

func NewNotification(messageID, eventType, bookingID, userID, recipient, subject, body string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		MessageID: messageID,
		EventType: eventType,
		BookingID: bookingID,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		SentAt:    time.Now().UTC(),
	}
}
