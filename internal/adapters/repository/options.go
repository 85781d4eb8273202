package repository

import (
	"time"

	"github.com/okian/drivescore/pkg/logger"
)

// Default pool settings.
const (
	defaultMaxOpenConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
)

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxOpenConns limits the connection pool. SQLite always uses a single
// connection.
func WithMaxOpenConns(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithConnMaxLifetime sets the maximum lifetime of pooled connections.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(s *SQLStore) {
		if d > 0 {
			s.connMaxLifetime = d
		}
	}
}

// WithClock overrides the time source used for bookkeeping columns.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) {
		if now != nil {
			s.now = now
		}
	}
}
