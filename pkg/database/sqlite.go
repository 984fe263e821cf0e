package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	defaultBusyTimeout = 5 * time.Second
	memoryPath         = ":memory:"
)

// Config holds database configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// DB is the claims database handle
type DB struct {
	*sql.DB
	path   string
	logger *zap.Logger
}

// DSN builds the go-sqlite3 connection string. Writers take the lock on
// BEGIN and queue on the busy timeout.
func (c Config) DSN() string {
	busy := c.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}

	params := url.Values{}
	params.Set("_busy_timeout", strconv.FormatInt(busy.Milliseconds(), 10))
	params.Set("_foreign_keys", "on")
	params.Set("_txlock", "immediate")

	path := c.Path
	if path == memoryPath {
		// every pooled connection shares one in-memory database
		params.Set("cache", "shared")
	} else {
		params.Set("_journal_mode", "WAL")
	}
	return "file:" + path + "?" + params.Encode()
}

// Open connects to the database at cfg.Path, creating its directory first.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.Path != memoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	sqlDB, err := sql.Open("sqlite3", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var version string
	if err := sqlDB.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to read sqlite version: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("path", cfg.Path),
		zap.String("sqlite_version", version))

	return &DB{DB: sqlDB, path: cfg.Path, logger: logger}, nil
}

// Path returns the file the database was opened from
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection
func (db *DB) Close() error {
	stats := db.Stats()
	db.logger.Info("Closing database connection",
		zap.String("path", db.path),
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int64("wait_count", stats.WaitCount))
	return db.DB.Close()
}
