package database

import (
	"context"

	"gorm.io/gorm"
)

// TxManager is the only mutation boundary of a service: every aggregate change
// and its outbox rows are written through one WithinTx call.
type TxManager interface {
	// WithinTx runs fn in a transaction. A returned error or a panic rolls it back.
	WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}
