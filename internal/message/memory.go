// internal/message/memory.go
//
// In-process Store used by tests and `database.driver: memory`.
//
// Notes
// -----
//   • IDs start at 1 and only grow.
//   • CreatedAt never moves backwards, even if the clock does.

package message

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps messages in process memory.  It backs the test suite
// and `database.driver: memory` for local work; everything is lost on
// restart.
type MemoryStore struct {
	mu            sync.RWMutex
	rows          []Message
	nextID        int64
	defaultSource string
	now           func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(defaultSource string) *MemoryStore {
	return &MemoryStore{defaultSource: defaultSource, nextID: 1, now: time.Now}
}

// Create validates f and appends it.
func (s *MemoryStore) Create(_ context.Context, f Fields) (*Message, error) {
	if f.Source == "" {
		f.Source = s.defaultSource
	}
	if errs := Validate(f); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := stamp(s.now())
	// Keep createdAt monotonic in id order even if the wall clock steps back.
	if n := len(s.rows); n > 0 && ts.Before(s.rows[n-1].CreatedAt) {
		ts = s.rows[n-1].CreatedAt
	}
	m := Message{
		ID:        s.nextID,
		Name:      f.Name,
		Email:     f.Email,
		Subject:   f.Subject,
		Body:      f.Body,
		Source:    f.Source,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	s.nextID++
	s.rows = append(s.rows, m)
	return &m, nil
}

// FindAll returns copies of matching messages, newest first.
func (s *MemoryStore) FindAll(_ context.Context, flt Filter) ([]Message, error) {
	s.mu.RLock()
	out := make([]Message, 0, len(s.rows))
	for _, m := range s.rows {
		if flt.Source == "" || m.Source == flt.Source {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Message) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }
