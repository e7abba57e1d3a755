package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an issue id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalid is matched by every ValidationError.
	ErrInvalid = errors.New("invalid argument")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func issueNotFound(id int) error {
	return fmt.Errorf("issue %d: %w", id, ErrNotFound)
}
