// internal/message/errors.go
//
// Typed errors returned by the stores.  Callers match them with errors.As.

package message

import (
	"fmt"
	"strings"
)

// ValidationError carries every field that failed Validate.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Messages returns the user-facing text of each failure, in order.
func (e *ValidationError) Messages() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.Message
	}
	return out
}

// PersistenceError wraps a backend failure.  Op is "create", "find",
// "migrate", or "ping".
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("message store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
