// Package service wires the trip pipeline to storage and providers and
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/drivescore/internal/adapters/mapmatch"
	"github.com/okian/drivescore/internal/adapters/repository"
	"github.com/okian/drivescore/internal/adapters/weather"
	"github.com/okian/drivescore/internal/domain/detect"
	"github.com/okian/drivescore/internal/domain/model"
	"github.com/okian/drivescore/internal/domain/quality"
	"github.com/okian/drivescore/internal/domain/scoring"
	"github.com/okian/drivescore/internal/domain/signal"
	"github.com/okian/drivescore/pkg/logger"
	"github.com/okian/drivescore/pkg/metrics"
)

// Default pipeline settings.
const (
	DefaultProviderTimeout   = 3 * time.Second
	DefaultTripIdle          = 15 * time.Minute
	DefaultFinalizingReclaim = 30 * time.Minute
	DefaultBatchLimit        = 100
	DefaultMinDistanceKm     = 2.0
	DefaultMinDuration       = 5 * time.Minute
	DefaultTrimMeters        = 200.0
)

// Service implements the API dependencies for the scoring pipeline.
type Service struct {
	mu sync.RWMutex
	// runMu serializes finalize runs inside the process.
	runMu sync.Mutex

	// Core components
	store           repository.Store
	mapProvider     mapmatch.Provider
	weatherProvider weather.Provider
	detector        *detect.Detector

	// Pipeline configuration
	gates             quality.Gates
	thresholds        detect.Thresholds
	weights           model.ScoreWeights
	smoothingWindow   int
	providerTimeout   time.Duration
	tripIdle          time.Duration
	finalizingReclaim time.Duration
	batchLimit        int
	minDistanceKm     float64
	minDuration       time.Duration
	trimMeters        float64
	geometryEpsilon   float64

	now   func() time.Time
	newID func() string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a Service over store with default configuration.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:             store,
		mapProvider:       mapmatch.None{},
		weatherProvider:   weather.None{},
		gates:             quality.DefaultGates(),
		thresholds:        detect.DefaultThresholds(),
		weights:           scoring.DefaultWeights(),
		smoothingWindow:   signal.DefaultWindow,
		providerTimeout:   DefaultProviderTimeout,
		tripIdle:          DefaultTripIdle,
		finalizingReclaim: DefaultFinalizingReclaim,
		batchLimit:        DefaultBatchLimit,
		minDistanceKm:     DefaultMinDistanceKm,
		minDuration:       DefaultMinDuration,
		trimMeters:        DefaultTrimMeters,
		geometryEpsilon:   signal.DefaultSimplifyEpsilon,
		now:               time.Now,
		newID:             uuid.NewString,
		logger:            nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	s.detector = detect.NewDetector(
		detect.WithGates(s.gates),
		detect.WithThresholds(s.thresholds),
	)
	return s
}

// Start seeds the configured weight set and marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Discard()
	}
	if s.store == nil {
		return fmt.Errorf("start: %w: no store configured", ErrNotStarted)
	}

	s.logger.Info(ctx, "starting scoring service...")

	if err := s.ensureWeights(ctx); err != nil {
		return err
	}

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.String("weightsVersion", s.weights.Version),
		logger.Duration("tripIdle", s.tripIdle),
		logger.Duration("finalizingReclaim", s.finalizingReclaim),
		logger.Int("batchLimit", s.batchLimit),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping scoring service...")

	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "failed to close store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(context.Background(), "scoring service stopped")
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// ensureWeights stores the configured weight set as the active one when the
// store has none yet.
func (s *Service) ensureWeights(ctx context.Context) error {
	_, err := s.store.ActiveWeights(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		if err := s.store.SaveWeights(ctx, s.weights, true); err != nil {
			return fmt.Errorf("%w: seed weights: %w", ErrPersistence, err)
		}
		s.logger.Info(ctx, "seeded score weights", logger.String("version", s.weights.Version))
		return nil
	default:
		return fmt.Errorf("%w: load weights: %w", ErrPersistence, err)
	}
}

// activeWeights returns the stored active weight set, falling back to the
// configured one.
func (s *Service) activeWeights(ctx context.Context) model.ScoreWeights {
	w, err := s.store.ActiveWeights(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn(ctx, "failed to load active weights, using configured set",
				logger.String("version", s.weights.Version),
				logger.Error(err),
			)
		}
		return s.weights
	}
	return w
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return ErrNotStarted
	}
	return s.store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"weightsVersion": s.weights.Version,
		"batchLimit":     s.batchLimit,
	}

	if s.started {
		counts, err := s.store.CountTripsByStatus(ctx)
		if err != nil {
			s.logger.Warn(ctx, "failed to count trips", logger.Error(err))
			return stats
		}
		trips := make(map[string]int, len(counts))
		for status, n := range counts {
			trips[string(status)] = n
			metrics.UpdateTripsByStatus(string(status), n)
		}
		stats["trips"] = trips
	}

	return stats
}
