package service

import (
	"time"

	"github.com/okian/drivescore/internal/adapters/mapmatch"
	"github.com/okian/drivescore/internal/adapters/weather"
	"github.com/okian/drivescore/internal/domain/detect"
	"github.com/okian/drivescore/internal/domain/model"
	"github.com/okian/drivescore/internal/domain/quality"
	"github.com/okian/drivescore/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMapProvider sets the map matching provider.
func WithMapProvider(p mapmatch.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.mapProvider = p
		}
	}
}

// WithWeatherProvider sets the historical weather provider.
func WithWeatherProvider(p weather.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.weatherProvider = p
		}
	}
}

// WithGates sets the quality gate thresholds.
func WithGates(g quality.Gates) Option {
	return func(s *Service) {
		s.gates = g
	}
}

// WithThresholds sets the event detector thresholds.
func WithThresholds(th detect.Thresholds) Option {
	return func(s *Service) {
		s.thresholds = th
	}
}

// WithWeights sets the weight set used when the store has no active one.
func WithWeights(w model.ScoreWeights) Option {
	return func(s *Service) {
		if w.Version != "" {
			s.weights = w
		}
	}
}

// WithSmoothingWindow sets the accelerometer moving-average window.
func WithSmoothingWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.smoothingWindow = n
		}
	}
}

// WithProviderTimeout bounds every map and weather provider call.
func WithProviderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.providerTimeout = d
		}
	}
}

// WithTripIdle sets how long a trip must go without samples before it is
// finalized.
func WithTripIdle(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tripIdle = d
		}
	}
}

// WithFinalizingReclaim sets how long a trip may stay finalizing before a
// later run claims it again.
func WithFinalizingReclaim(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.finalizingReclaim = d
		}
	}
}

// WithBatchLimit caps the number of trips finalized per run.
func WithBatchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// WithMinTrip sets the distance and duration below which a trip is closed
// without a score.
func WithMinTrip(distanceKm float64, duration time.Duration) Option {
	return func(s *Service) {
		if distanceKm >= 0 {
			s.minDistanceKm = distanceKm
		}
		if duration >= 0 {
			s.minDuration = duration
		}
	}
}

// WithTrimMeters sets the distance cut from both trip ends before detection.
func WithTrimMeters(m float64) Option {
	return func(s *Service) {
		if m >= 0 {
			s.trimMeters = m
		}
	}
}

// WithGeometryEpsilon sets the path simplification tolerance in degrees.
func WithGeometryEpsilon(eps float64) Option {
	return func(s *Service) {
		if eps >= 0 {
			s.geometryEpsilon = eps
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides trip and event id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}
