package service

import "errors"

var (
	// ErrNotFound is returned when a required task, template, or progress
	// row is missing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned for illegal status changes.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)
