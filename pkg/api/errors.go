package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup matches nothing
	ErrNotFound = errors.New("not found")

	// ErrProjectNotFound is returned when a project slug or ID is unknown
	ErrProjectNotFound = fmt.Errorf("project %w", ErrNotFound)

	// ErrVersionNotFound is returned when a version slug or ID is unknown
	ErrVersionNotFound = fmt.Errorf("version %w", ErrNotFound)

	// ErrAlreadyExists is returned when a unique slug or username is taken
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidFilter is returned when a filter value has the wrong type
	ErrInvalidFilter = errors.New("Invalid resource lookup data provided (mismatched type)")
)
