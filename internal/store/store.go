package store

import (
	"context"
	"errors"
	"fmt"
)

// Collection names one JSON document holding a whole logical table.
type Collection string

const (
	Issues Collection = "issues"
	Users  Collection = "users"
	Files  Collection = "files"

	// Locales holds the translation dictionaries keyed by locale code.
	Locales Collection = "locales"
)

// ErrNoChange is returned by an Update mutation to skip the write.
var ErrNoChange = errors.New("no change")

// IOError reports a failure of the storage medium.
type IOError struct {
	Op         string
	Collection Collection
	Err        error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Store defines whole-document persistence for tracker collections.
//
// Documents are always read and written in full. Update is the only safe
// way to do read-modify-write: it holds the collection's writer lock across
// load, mutate and save.
type Store interface {
	// Load decodes the collection into v. A missing document leaves v untouched.
	Load(ctx context.Context, c Collection, v any) error

	// Save replaces the collection with v. Readers never observe a partial write.
	Save(ctx context.Context, c Collection, v any) error

	// Update loads c into v, calls mutate, and saves v if mutate returns nil.
	// If mutate returns ErrNoChange nothing is written and Update returns nil.
	// Any other mutate error is returned as-is and nothing is written.
	Update(ctx context.Context, c Collection, v any, mutate func() error) error

	// Exists reports whether the collection has ever been written.
	Exists(c Collection) (bool, error)
}
