// internal/message/sql.go
//
// MySQL-backed Store (sqlx).
//
// Context
// -------
// Each call borrows one pooled connection through sqlx and returns it on
// every path, including errors.  Create is a single INSERT and FindAll a
// single SELECT, so no transactions are needed.  The id comes from
// AUTO_INCREMENT and is read back with LastInsertId.
//
// Notes
// -----
//   • The DSN must carry `parseTime=true`; config.Load sets it when it
//     builds the DSN from parts.
//   • Migrate only creates the table.  Column changes are out of scope for
//     the service and should go through a migration tool.

package message

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS messages (
    id          INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    name        VARCHAR(255) NOT NULL,
    email       VARCHAR(255) NOT NULL,
    subject     VARCHAR(255) NOT NULL,
    message     TEXT         NOT NULL,
    source      VARCHAR(255) NOT NULL DEFAULT 'davidadebanwo.com',
    created_at  DATETIME(6)  NOT NULL,
    updated_at  DATETIME(6)  NOT NULL,
    KEY idx_messages_source_created (source, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const insertSQL = `INSERT INTO messages
    (name, email, subject, message, source, created_at, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?)`

const selectSQL = `SELECT id, name, email, subject, message, source, created_at, updated_at
    FROM messages`

const orderSQL = ` ORDER BY created_at DESC, id DESC`

// SQLStore is a Store over a MySQL pool.
type SQLStore struct {
	db            *sqlx.DB
	defaultSource string
	now           func() time.Time
}

// NewSQLStore wraps db.  defaultSource fills Fields.Source when empty.
func NewSQLStore(db *sqlx.DB, defaultSource string) *SQLStore {
	return &SQLStore{db: db, defaultSource: defaultSource, now: time.Now}
}

// Migrate creates the messages table when it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return &PersistenceError{Op: "migrate", Err: err}
	}
	return nil
}

// Ping checks that the pool can reach the server.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &PersistenceError{Op: "ping", Err: err}
	}
	return nil
}

// Create validates f and inserts one row.
func (s *SQLStore) Create(ctx context.Context, f Fields) (*Message, error) {
	if f.Source == "" {
		f.Source = s.defaultSource
	}
	if errs := Validate(f); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	ts := stamp(s.now())
	res, err := s.db.ExecContext(ctx, insertSQL,
		f.Name, f.Email, f.Subject, f.Body, f.Source, ts, ts)
	if err != nil {
		return nil, &PersistenceError{Op: "create", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, &PersistenceError{Op: "create", Err: fmt.Errorf("last insert id: %w", err)}
	}

	return &Message{
		ID:        id,
		Name:      f.Name,
		Email:     f.Email,
		Subject:   f.Subject,
		Body:      f.Body,
		Source:    f.Source,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

// FindAll returns messages newest first, optionally for one source.
func (s *SQLStore) FindAll(ctx context.Context, flt Filter) ([]Message, error) {
	query := selectSQL
	var args []any
	if flt.Source != "" {
		query += ` WHERE source = ?`
		args = append(args, flt.Source)
	}
	query += orderSQL

	out := make([]Message, 0)
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, &PersistenceError{Op: "find", Err: err}
	}
	return out, nil
}
