// Package dbtest provides a transaction manager for tests that run without Postgres.
package dbtest

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// TxManager runs fn with a nil *gorm.DB. Repositories used alongside it must
// be fakes that ignore the handle.
type TxManager struct {
	mu sync.Mutex
	// CommitErr, when set, is returned after fn succeeds to simulate a failed commit.
	CommitErr error
	calls     int
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.mu.Lock()
	m.calls++
	commitErr := m.CommitErr
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(nil); err != nil {
		return err
	}
	return commitErr
}

// Calls reports how many transactions were opened.
func (m *TxManager) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
