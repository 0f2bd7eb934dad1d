// internal/message/model.go
//
// Message Store: data model.
//
// Context
// -------
// A Message is one contact-form submission.  Messages are written once and
// never updated, so UpdatedAt always equals CreatedAt.  Timestamps are UTC
// and truncated to microseconds, the precision of the DATETIME(6) columns,
// so the value returned by Create is the value a later FindAll reads back.
//
// The JSON field for the body is `message`, matching what the contact
// forms post and what the admin dashboard reads.

package message

import (
	"context"
	"time"
)

// Message is a stored submission.
type Message struct {
	ID        int64     `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Email     string    `db:"email"      json:"email"`
	Subject   string    `db:"subject"    json:"subject"`
	Body      string    `db:"message"    json:"message"`
	Source    string    `db:"source"     json:"source"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Fields is the caller-supplied part of a Message.  It doubles as the
// request body of POST /api/messages.
type Fields struct {
	Name    string `json:"name"    validate:"notblank,min=2,max=100"`
	Email   string `json:"email"   validate:"email,max=255"`
	Subject string `json:"subject" validate:"notblank,max=255"`
	Body    string `json:"message" validate:"notblank"`
	Source  string `json:"source"  validate:"notblank,max=255"`
}

// Filter narrows FindAll.  A zero Filter matches every message.
type Filter struct {
	Source string
}

// Store persists and retrieves messages.  Implementations are safe for
// concurrent use.
type Store interface {
	// Create validates f and inserts it.  An empty f.Source takes the
	// store's default source.
	Create(ctx context.Context, f Fields) (*Message, error)
	// FindAll returns matching messages, newest first.  The slice is
	// never nil.
	FindAll(ctx context.Context, flt Filter) ([]Message, error)
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// stamp returns the insertion timestamp for now.
func stamp(now time.Time) time.Time {
	return now.UTC().Truncate(time.Microsecond)
}
