package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrPersistence   = errors.New("persistence failed")
	ErrDependency    = errors.New("dependency unavailable")
	ErrRunInProgress = errors.New("finalize run already in progress")
	ErrNotStarted    = errors.New("service not started")
)
