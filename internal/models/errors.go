package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every ValidationError
	ErrValidation = errors.New("validation failed")
	// ErrItemNotFound is wrapped by every ItemNotFoundError
	ErrItemNotFound = errors.New("item not found")
)

// ValidationError reports a rejected input field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ItemNotFoundError is returned when an id does not refer to an active item
type ItemNotFoundError struct {
	ID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item not found: %s", e.ID)
}

func (e *ItemNotFoundError) Unwrap() error {
	return ErrItemNotFound
}
