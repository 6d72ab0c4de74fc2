package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that a required credential or session record is absent.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates that a record exists where none was expected.
	ErrAlreadyExists = errors.New("already exists")
	// ErrReservedField indicates an attempt to set a field the caller does not own.
	ErrReservedField = errors.New("reserved field")
	// ErrInvalidField indicates a malformed field value.
	ErrInvalidField = errors.New("invalid field")
	// ErrUnknownLevel indicates a permission level outside the defined range.
	ErrUnknownLevel = errors.New("unknown permission level")
)

// StorageError reports a failure reading, parsing or writing a backing document.
type StorageError struct {
	Op   string
	Name string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
