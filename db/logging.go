package db

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// Conn is the subset of *sql.DB used by stores.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// QueryHook receives query timing information.
type QueryHook func(ctx context.Context, query string, duration time.Duration, err error)

// LoggedDB wraps a database with query hooks.
type LoggedDB struct {
	DB   Conn
	Hook QueryHook
}

// WithQueryHook wraps a database with a query hook.
func WithQueryHook(db Conn, hook QueryHook) LoggedDB {
	return LoggedDB{DB: db, Hook: hook}
}

// ExecContext executes a statement and emits hook timing.
func (l LoggedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := l.DB.ExecContext(ctx, query, args...)
	if l.Hook != nil {
		l.Hook(ctx, query, time.Since(start), err)
	}
	return res, err
}

// QueryRowContext executes a row query and emits hook timing.
func (l LoggedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := l.DB.QueryRowContext(ctx, query, args...)
	if l.Hook != nil {
		l.Hook(ctx, query, time.Since(start), row.Err())
	}
	return row
}

// SlogHook logs statements at debug level. Arguments are never logged.
func SlogHook(logger *slog.Logger) QueryHook {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, query string, duration time.Duration, err error) {
		if err != nil {
			logger.WarnContext(ctx, "query failed", "query", query, "duration", duration, "error", err)
			return
		}
		logger.DebugContext(ctx, "query", "query", query, "duration", duration)
	}
}
