package model

import "errors"

var (
	// ErrInvalidEntity is returned when a type cannot be mapped to a table
	// (not a struct, an interface, or an anonymous struct).
	ErrInvalidEntity = errors.New("invalid entity type")
	// ErrNilEntity is returned when a nil entity pointer is read.
	ErrNilEntity = errors.New("nil entity")
)
