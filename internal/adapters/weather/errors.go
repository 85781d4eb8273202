package weather

import "errors"

// Weather provider errors.
var (
	ErrNotImplemented  = errors.New("weather provider not implemented")
	ErrUnknownProvider = errors.New("unknown weather provider")
	ErrMissingAPIKey   = errors.New("weather provider API key not configured")
	ErrUpstream        = errors.New("weather provider returned an error")
)
