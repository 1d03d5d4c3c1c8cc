package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/shared"
)

// DefaultLockTimeout bounds row-lock waits inside ledger transactions.
const DefaultLockTimeout = 5 * time.Second

// PostgreSQL SQLSTATE codes treated as retryable contention.
const (
	sqlstateLockNotAvailable  = "55P03"
	sqlstateSerializationFail = "40001"
	sqlstateDeadlockDetected  = "40P01"
	sqlstateUniqueViolation   = "23505"
)

// WithTx executes fn inside a repeatable-read transaction with a bounded
// lock_timeout. Lock waits never hang; they surface as retryable conflicts.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return WithTxTimeout(ctx, pool, DefaultLockTimeout, fn)
}

// WithTxTimeout is WithTx with an explicit lock_timeout.
func WithTxTimeout(ctx context.Context, pool *pgxpool.Pool, lockTimeout time.Duration, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if lockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("platform/db: set lock_timeout: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		return ClassifyError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ClassifyError(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}

// ClassifyError maps PostgreSQL failure codes into the shared taxonomy.
// Domain errors pass through untouched.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateLockNotAvailable, sqlstateSerializationFail, sqlstateDeadlockDetected:
			return shared.NewConflict("row lock contention", err)
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlstateUniqueViolation
}
