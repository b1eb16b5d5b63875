package models

import "errors"

// Error kinds shared by the planning, frame and codec packages. Callers match
// them with errors.Is; the wrapped message names the offending field.
var (
	// ErrInvalidArgument reports a precondition violated before any computation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidFormat reports an encoded spectrum envelope that failed validation.
	ErrInvalidFormat = errors.New("invalid format")
)
