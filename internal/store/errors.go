package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist for the user.
var ErrNotFound = errors.New("record not found")

// PersistenceError wraps a failed database operation.
type PersistenceError struct {
	Op   string // "open", "migrate", "insert", "get", "list", "update", "delete"
	Kind string // "database", "file" or "dashboard"
	ID   string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("persistence error: %s %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("persistence error: %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
