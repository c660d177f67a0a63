package outbox

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists outbox rows. Every method runs on the transaction it is given.
type Store interface {
	Insert(ctx context.Context, tx *gorm.DB, msgs []Message) error
	// FetchPending locks and returns the oldest unprocessed rows still below maxRetries.
	FetchPending(ctx context.Context, tx *gorm.DB, limit, maxRetries int) ([]Message, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, id string, at time.Time) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id string, errText string) error
	// ListFailed returns unprocessed rows that reached maxRetries.
	ListFailed(ctx context.Context, tx *gorm.DB, maxRetries, limit int) ([]Message, error)
}

type gormStore struct{}

func NewGormStore() Store {
	return gormStore{}
}

func (gormStore) Insert(ctx context.Context, tx *gorm.DB, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := tx.WithContext(ctx).Create(&msgs).Error; err != nil {
		return fmt.Errorf("outbox insert: %w", err)
	}
	return nil
}

func (gormStore) FetchPending(ctx context.Context, tx *gorm.DB, limit, maxRetries int) ([]Message, error) {
	var msgs []Message
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("processed_at IS NULL AND retry_count < ?", maxRetries).
		Order("seq ASC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("outbox fetch pending: %w", err)
	}
	return msgs, nil
}

func (gormStore) MarkProcessed(ctx context.Context, tx *gorm.DB, id string, at time.Time) error {
	err := tx.WithContext(ctx).
		Model(&Message{}).
		Where("id = ?", id).
		Updates(map[string]any{"processed_at": at, "error": nil}).Error
	if err != nil {
		return fmt.Errorf("outbox mark processed: %w", err)
	}
	return nil
}

func (gormStore) MarkFailed(ctx context.Context, tx *gorm.DB, id string, errText string) error {
	err := tx.WithContext(ctx).
		Model(&Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count": gorm.Expr("retry_count + 1"),
			"error":       errText,
		}).Error
	if err != nil {
		return fmt.Errorf("outbox mark failed: %w", err)
	}
	return nil
}

func (gormStore) ListFailed(ctx context.Context, tx *gorm.DB, maxRetries, limit int) ([]Message, error) {
	var msgs []Message
	err := tx.WithContext(ctx).
		Where("processed_at IS NULL AND retry_count >= ?", maxRetries).
		Order("seq ASC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("outbox list failed: %w", err)
	}
	return msgs, nil
}
