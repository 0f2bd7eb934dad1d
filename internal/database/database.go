// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql, which also works with MariaDB.
//
// OpenWithOptions is the entry point.  Start from DefaultOptions and
// override what config sets.  It pings the database, retrying with linear
// backoff, before returning so callers can fail fast during bootstrap.
// Callers should Close() the returned *sqlx.DB when no longer needed.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Options tunes the pool and the boot-time ping loop.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Retries         int           // extra ping attempts after the first
	RetryBackoff    time.Duration // wait before attempt n is n*RetryBackoff
}

// DefaultOptions matches the first deployment's pool: 5 open
// connections, idle ones released after 10 s.
var DefaultOptions = Options{
	MaxOpenConns:    5,
	MaxIdleConns:    2,
	ConnMaxLifetime: 30 * time.Minute,
	ConnMaxIdleTime: 10 * time.Second,
	Retries:         3,
	RetryBackoff:    time.Second,
}

// OpenWithOptions opens a MySQL pool and pings it until it answers or the
// retry budget is spent.
func OpenWithOptions(ctx context.Context, dsn string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	if err := pingWithRetry(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// pingWithRetry pings up to opts.Retries+1 times.
func pingWithRetry(ctx context.Context, db *sqlx.DB, opts Options) error {
	var err error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * opts.RetryBackoff
			zap.S().Warnw("database ping failed, retrying",
				"attempt", attempt, "wait", wait, "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
	}
	return fmt.Errorf("database unreachable after %d attempt(s): %w", opts.Retries+1, err)
}
