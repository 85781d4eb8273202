package simulator

import "errors"

// Sentinel errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrInvalidConfig    = errors.New("invalid simulation config")
)
