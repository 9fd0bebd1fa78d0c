package frame

import "errors"

// Common errors returned by the frame package.
var (
	// ErrColumnNotFound is returned when a column name is not in the frame.
	ErrColumnNotFound = errors.New("column not found")

	// ErrInvalidRow is returned when a row index is out of range.
	ErrInvalidRow = errors.New("invalid row index")

	// ErrTypeMismatch is returned when a value cannot be stored in a column.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrRowLength is returned when a record has the wrong number of values.
	ErrRowLength = errors.New("row length does not match columns")
)
