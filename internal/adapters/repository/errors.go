package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrUnsupportedDriver = errors.New("unsupported storage driver")
	ErrInvalidLimit      = errors.New("invalid limit")
	ErrStatusConflict    = errors.New("trip is not in the expected status")
)
