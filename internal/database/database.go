package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Config holds database configuration
type Config struct {
	DSN          string        `json:"dsn"`           // Data source name
	MaxOpenConns int           `json:"max_open_conns"`
	MaxIdleConns int           `json:"max_idle_conns"`
	QueryTimeout time.Duration `json:"query_timeout"`
}

// DefaultConfig returns default database configuration
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN: dsn,
		// SQLite doesn't handle write concurrency well
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		QueryTimeout: 30 * time.Second,
	}
}

// DB wraps sql.DB with enhanced error handling
type DB struct {
	*sql.DB
	config *Config
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

// New creates a new database connection
func New(config *Config) (*DB, error) {
	if config == nil {
		return nil, errors.New("database config is nil")
	}
	if config.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	db := &DB{
		config: config,
		logger: slog.Default().With("component", "database"),
	}

	if err := db.connect(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) connect() error {
	sqlDB, err := sql.Open("sqlite", db.config.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if db.config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(db.config.MaxOpenConns)
	}
	if db.config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(db.config.MaxIdleConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	db.DB = sqlDB
	db.logger.Debug("Database connection established", "dsn", db.config.DSN)
	return nil
}

// QueryTimeout returns the configured per-query timeout.
func (db *DB) QueryTimeout() time.Duration {
	if db.config.QueryTimeout > 0 {
		return db.config.QueryTimeout
	}
	return 30 * time.Second
}

// Close closes the database connection
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	if db.DB != nil {
		if err := db.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
