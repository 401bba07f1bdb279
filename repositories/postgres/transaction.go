package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/upb/physics-tutor/repositories"
	"go.uber.org/zap"
)

// Executor runs statements against either the pool or an open transaction
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TransactionManager opens read-committed transactions on the lesson database
type TransactionManager struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionManager creates a transaction manager for db
func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TransactionManager{db: db, logger: logger}
}

// Begin opens a transaction. Bind repositories to it with WithTx.
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := tm.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	tm.logger.Debug("lesson transaction opened")
	return &Transaction{tx: sqlTx, logger: tm.logger, started: time.Now()}, nil
}

// Transaction wraps a *sql.Tx
type Transaction struct {
	tx      *sql.Tx
	logger  *zap.Logger
	started time.Time
}

// Commit makes the transaction's writes visible
func (t *Transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.logger.Debug("lesson transaction committed", zap.Duration("elapsed", time.Since(t.started)))
	return nil
}

// Rollback discards the transaction. A transaction that already finished is left alone.
func (t *Transaction) Rollback() error {
	err := t.tx.Rollback()
	switch {
	case errors.Is(err, sql.ErrTxDone):
		return nil
	case err != nil:
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.logger.Debug("lesson transaction rolled back", zap.Duration("elapsed", time.Since(t.started)))
	return nil
}
