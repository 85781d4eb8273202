package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrCollectorRunning = errors.New("runtime collector already running")
)
