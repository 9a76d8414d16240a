package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// TxManager runs fn inside a single transaction: committed when fn returns nil,
// rolled back on error or panic.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, exec SQLExecutor) error) error
}

type sqlTxManager struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTxManager(db *sql.DB, logger *slog.Logger) TxManager {
	return &sqlTxManager{db: db, logger: logger}
}

func (m *sqlTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context, exec SQLExecutor) error) (txErr error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				m.logger.ErrorContext(ctx, "rollback failed", slog.Any("error", rbErr), slog.Any("cause", txErr))
				txErr = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(ctx, tx)
}
