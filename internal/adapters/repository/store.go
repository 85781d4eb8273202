// Package repository persists trips, samples, events, scores and driver
// scores in a SQL database.
package repository

import (
	"context"
	"time"

	"github.com/okian/drivescore/internal/domain/model"
)

// IngestStore is the storage used by telemetry ingest.
type IngestStore interface {
	// FindOpenTrip returns the most recent open trip of a device.
	// Returns ErrNotFound when the device has none.
	FindOpenTrip(ctx context.Context, deviceID string) (model.Trip, error)
	// CreateTrip inserts a new trip.
	CreateTrip(ctx context.Context, trip model.Trip) error
	// InsertSamples stores samples, ignoring timestamps the trip already has,
	// and refreshes the trip's time bounds. Returns the number of new rows.
	InsertSamples(ctx context.Context, tripID string, samples []model.TelemetrySample) (int, error)
}

// FinalizeStore is the storage used by the finalize orchestrator.
type FinalizeStore interface {
	// ListFinalizable returns open trips whose last sample is before idleBefore
	// and finalizing trips claimed before reclaimBefore, oldest first.
	ListFinalizable(ctx context.Context, idleBefore, reclaimBefore time.Time, limit int) ([]model.Trip, error)
	// MarkFinalizing moves an open or stale finalizing trip to finalizing.
	MarkFinalizing(ctx context.Context, tripID string, at time.Time) error
	// RevertToOpen moves a finalizing trip back to open.
	RevertToOpen(ctx context.Context, tripID string) error
	// LoadSamples returns a trip's samples ordered by timestamp.
	LoadSamples(ctx context.Context, tripID string) ([]model.TelemetrySample, error)
	// UpdateTripSummary writes the derived trip fields without changing status.
	UpdateTripSummary(ctx context.Context, trip model.Trip) error
	// CloseTrip marks a trip closed.
	CloseTrip(ctx context.Context, tripID string, at time.Time) error

	// ReplaceEvents deletes a trip's events and stores the given ones.
	ReplaceEvents(ctx context.Context, tripID string, events []model.DetectedEvent) error
	// UpsertFeatures stores a trip's feature vector.
	UpsertFeatures(ctx context.Context, f model.TripFeatures) error
	// UpsertScore stores a trip's score.
	UpsertScore(ctx context.Context, s model.TripScore) error

	// PreviousDailyScore returns the latest driver score strictly before day.
	// Returns ErrNotFound for drivers without history.
	PreviousDailyScore(ctx context.Context, userID, day string) (model.DriverScoreDaily, error)
	// DayScores returns every trip score of a driver for one day.
	DayScores(ctx context.Context, userID, day string) ([]model.TripScore, error)
	// UpsertDailyScore stores a driver's score for one day.
	UpsertDailyScore(ctx context.Context, d model.DriverScoreDaily) error

	// ActiveWeights returns the active weight set.
	// Returns ErrNotFound when none is stored.
	ActiveWeights(ctx context.Context) (model.ScoreWeights, error)
	// SaveWeights stores a weight set, optionally making it the active one.
	SaveWeights(ctx context.Context, w model.ScoreWeights, active bool) error
}

// ReadStore serves the read endpoints.
type ReadStore interface {
	// GetTrip returns a trip by id. Returns ErrNotFound if unknown.
	GetTrip(ctx context.Context, tripID string) (model.Trip, error)
	// GetScore returns a trip's score. Returns ErrNotFound if unscored.
	GetScore(ctx context.Context, tripID string) (model.TripScore, error)
	// GetFeatures returns a trip's features. Returns ErrNotFound if absent.
	GetFeatures(ctx context.Context, tripID string) (model.TripFeatures, error)
	// ListEvents returns a trip's events ordered by start time.
	ListEvents(ctx context.Context, tripID string) ([]model.DetectedEvent, error)
	// LatestDailyScore returns a driver's most recent daily score.
	LatestDailyScore(ctx context.Context, userID string) (model.DriverScoreDaily, error)
	// CountTripsByStatus returns the number of trips per status.
	CountTripsByStatus(ctx context.Context) (map[model.TripStatus]int, error)
}

// Store provides read/write access to all persisted aggregates.
type Store interface {
	IngestStore
	FinalizeStore
	ReadStore

	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the connection pool.
	Close() error
}
