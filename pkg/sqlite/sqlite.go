// Package sqlite opens SQLite databases through the pure-Go modernc driver.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"

	defaultBusyTimeout  = 5 * time.Second
	defaultMaxOpenConns = 1
)

type Option func(*sqlx.DB)

// WithMaxOpenConns overrides the connection limit. SQLite serializes writers,
// so a single connection is the default.
func WithMaxOpenConns(n int) Option {
	return func(db *sqlx.DB) {
		db.SetMaxOpenConns(n)
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(db *sqlx.DB) {
		db.SetConnMaxLifetime(d)
	}
}

// DSN builds a modernc data source name for the database file at path.
func DSN(path string) string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)",
		path, defaultBusyTimeout.Milliseconds())
}

func New(ctx context.Context, path string, opts ...Option) (*sqlx.DB, error) {
	const op = "sqlite.New"

	db, err := sqlx.ConnectContext(ctx, driverName, DSN(path))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)

	for _, opt := range opts {
		opt(db)
	}

	return db, nil
}
