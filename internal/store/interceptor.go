package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// queryInterceptor wraps a *sql.DB to log every statement at debug level
// with its duration, without touching the adapter implementations.
type queryInterceptor struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

func newQueryInterceptor(db *sql.DB) *queryInterceptor {
	return &queryInterceptor{
		db:  db,
		log: zap.S().Named("store.sql"),
	}
}

func (q *queryInterceptor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := q.db.QueryContext(ctx, query, args...)
	q.log.Debugw("query", "sql", query, "duration", time.Since(start), "error", err)
	return rows, err
}

func (q *queryInterceptor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := q.db.QueryRowContext(ctx, query, args...)
	q.log.Debugw("query row", "sql", query, "duration", time.Since(start))
	return row
}

func (q *queryInterceptor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := q.db.ExecContext(ctx, query, args...)
	q.log.Debugw("exec", "sql", query, "duration", time.Since(start), "error", err)
	return res, err
}
