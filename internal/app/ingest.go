package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/drivescore/internal/adapters/repository"
	"github.com/okian/drivescore/internal/domain/model"
	"github.com/okian/drivescore/pkg/logger"
	"github.com/okian/drivescore/pkg/metrics"
)

// Ingest request outcomes.
const (
	ingestOK      = "ok"
	ingestInvalid = "invalid"
	ingestFailed  = "failed"
)

// IngestBatch is one upload of device samples.
type IngestBatch struct {
	UserID   string
	DeviceID string
	Samples  []model.TelemetrySample
}

// IngestResult reports where a batch was stored.
type IngestResult struct {
	TripID string
	// SamplesIngested counts newly stored samples; retried timestamps are
	// not counted.
	SamplesIngested int
}

// Ingest appends samples to the device's open trip, creating one when the
// device has none. Invalid batches are rejected before anything is stored.
//
// Find-or-create is not locked: two concurrent first uploads of one device
// can open two trips.
func (s *Service) Ingest(ctx context.Context, batch IngestBatch) (IngestResult, error) {
	if !s.isStarted() {
		return IngestResult{}, ErrNotStarted
	}
	if err := validateBatch(batch); err != nil {
		metrics.RecordIngestRequest(ingestInvalid)
		return IngestResult{}, err
	}

	trip, err := s.openTripFor(ctx, batch)
	if err != nil {
		metrics.RecordIngestRequest(ingestFailed)
		return IngestResult{}, err
	}

	n, err := s.store.InsertSamples(ctx, trip.ID, batch.Samples)
	if err != nil {
		metrics.RecordIngestRequest(ingestFailed)
		return IngestResult{}, fmt.Errorf("%w: insert samples: %w", ErrPersistence, err)
	}

	metrics.RecordIngestRequest(ingestOK)
	metrics.RecordSamplesIngested(n, len(batch.Samples)-n)
	s.logger.Debug(ctx, "samples ingested",
		logger.String("tripID", trip.ID),
		logger.String("deviceID", batch.DeviceID),
		logger.Int("stored", n),
		logger.Int("received", len(batch.Samples)),
	)
	return IngestResult{TripID: trip.ID, SamplesIngested: n}, nil
}

func (s *Service) openTripFor(ctx context.Context, batch IngestBatch) (model.Trip, error) {
	trip, err := s.store.FindOpenTrip(ctx, batch.DeviceID)
	if err == nil {
		return trip, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Trip{}, fmt.Errorf("%w: find open trip: %w", ErrPersistence, err)
	}

	trip = model.Trip{
		ID:        s.newID(),
		UserID:    batch.UserID,
		DeviceID:  batch.DeviceID,
		Status:    model.TripOpen,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return model.Trip{}, fmt.Errorf("%w: create trip: %w", ErrPersistence, err)
	}
	metrics.RecordTripCreated()
	s.logger.Info(ctx, "trip opened",
		logger.String("tripID", trip.ID),
		logger.String("userID", trip.UserID),
		logger.String("deviceID", trip.DeviceID),
	)
	return trip, nil
}

func validateBatch(batch IngestBatch) error {
	if batch.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if batch.DeviceID == "" {
		return fmt.Errorf("%w: deviceId is required", ErrValidation)
	}
	if len(batch.Samples) == 0 {
		return fmt.Errorf("%w: samples must not be empty", ErrValidation)
	}
	for i := range batch.Samples {
		if err := validateSample(&batch.Samples[i]); err != nil {
			return fmt.Errorf("%w: samples[%d]: %s", ErrValidation, i, err)
		}
	}
	return nil
}

func validateSample(smp *model.TelemetrySample) error {
	switch {
	case smp.TS.IsZero():
		return errors.New("ts is required")
	case !finite(smp.Lat) || smp.Lat < -90 || smp.Lat > 90:
		return errors.New("lat out of range")
	case !finite(smp.Lon) || smp.Lon < -180 || smp.Lon > 180:
		return errors.New("lon out of range")
	case !finite(smp.SpeedMPS) || smp.SpeedMPS < 0:
		return errors.New("speed_mps must be non-negative")
	case smp.HeadingDeg != nil && (!finite(*smp.HeadingDeg) || *smp.HeadingDeg < 0 || *smp.HeadingDeg > 360):
		return errors.New("heading_deg out of range")
	case smp.HDOP != nil && (!finite(*smp.HDOP) || *smp.HDOP < 0):
		return errors.New("hdop must be non-negative")
	case smp.Accel != nil && (!finite(smp.Accel.X) || !finite(smp.Accel.Y) || !finite(smp.Accel.Z)):
		return errors.New("accel must be finite")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
