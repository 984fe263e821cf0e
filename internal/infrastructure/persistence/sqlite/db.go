package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
)

type txKey struct{}

// Executor covers both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB is the unit-of-work manager for the claims store. Connections open
// with _txlock=immediate, so a transaction takes the write lock at BEGIN and
// lock contention surfaces there, before any statement has run.
type DB struct {
	*sql.DB
	logger       *zap.Logger
	beginRetries int
	retryBackoff time.Duration
}

// Option tunes transaction handling
type Option func(*DB)

// WithBeginRetries retries a BEGIN that failed with SQLITE_BUSY after the
// driver's own busy timeout ran out
func WithBeginRetries(n int, backoff time.Duration) Option {
	return func(db *DB) {
		db.beginRetries = n
		db.retryBackoff = backoff
	}
}

// NewDB creates the transaction manager over an open connection pool
func NewDB(sqlDB *sql.DB, logger *zap.Logger, opts ...Option) *DB {
	db := &DB{
		DB:           sqlDB,
		logger:       logger,
		beginRetries: 3,
		retryBackoff: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// WithTransaction runs fn inside a transaction. Nested calls join the
// outer transaction, so only the outermost call commits.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if extractTx(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.begin(ctx)
	if err != nil {
		return err
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			db.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (db *DB) begin(ctx context.Context) (*sql.Tx, error) {
	for attempt := 0; ; attempt++ {
		tx, err := db.BeginTx(ctx, nil)
		if err == nil {
			return tx, nil
		}
		if !IsBusy(err) || attempt >= db.beginRetries {
			db.logger.Error("Failed to begin transaction", zap.Int("attempt", attempt+1), zap.Error(err))
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}

		db.logger.Info("Database busy, retrying begin", zap.Int("attempt", attempt+1))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to begin transaction: %w", ctx.Err())
		case <-time.After(db.retryBackoff * time.Duration(attempt+1)):
		}
	}
}

func extractTx(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// InTransaction reports whether ctx carries an open transaction
func InTransaction(ctx context.Context) bool {
	return extractTx(ctx) != nil
}

// Conn returns the transaction bound to ctx, or db when there is none.
// Repositories must route every statement through it so that writes issued
// inside WithTransaction join the surrounding unit of work.
func Conn(ctx context.Context, db *sql.DB) Executor {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return db
}

// IsBusy reports whether err is SQLite lock contention
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY conflict
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

var _ port.TransactionManager = (*DB)(nil)
