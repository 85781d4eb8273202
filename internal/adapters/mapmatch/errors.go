package mapmatch

import "errors"

// Map provider errors.
var (
	ErrNotImplemented      = errors.New("map provider not implemented")
	ErrResultCountMismatch = errors.New("map match result count does not match input")
	ErrUnknownProvider     = errors.New("unknown map provider")
)
