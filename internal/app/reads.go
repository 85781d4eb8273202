package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/drivescore/internal/adapters/repository"
	"github.com/okian/drivescore/internal/domain/model"
)

// TripDetail is a trip with everything derived from it. Score and Features
// are nil until the trip has been scored.
type TripDetail struct {
	Trip     model.Trip
	Score    *model.TripScore
	Features *model.TripFeatures
	Events   []model.DetectedEvent
}

// GetTrip returns a trip with its score, features and events.
func (s *Service) GetTrip(ctx context.Context, tripID string) (TripDetail, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return TripDetail{}, readErr("trip", tripID, err)
	}
	detail := TripDetail{Trip: trip}

	score, err := s.store.GetScore(ctx, tripID)
	switch {
	case err == nil:
		detail.Score = &score
	case !errors.Is(err, repository.ErrNotFound):
		return TripDetail{}, readErr("score", tripID, err)
	}

	feats, err := s.store.GetFeatures(ctx, tripID)
	switch {
	case err == nil:
		detail.Features = &feats
	case !errors.Is(err, repository.ErrNotFound):
		return TripDetail{}, readErr("features", tripID, err)
	}

	events, err := s.store.ListEvents(ctx, tripID)
	if err != nil {
		return TripDetail{}, readErr("events", tripID, err)
	}
	if events == nil {
		events = []model.DetectedEvent{}
	}
	detail.Events = events
	return detail, nil
}

// DriverScore returns a driver's most recent daily score.
func (s *Service) DriverScore(ctx context.Context, userID string) (model.DriverScoreDaily, error) {
	d, err := s.store.LatestDailyScore(ctx, userID)
	if err != nil {
		return model.DriverScoreDaily{}, readErr("driver score", userID, err)
	}
	return d, nil
}

func readErr(what, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return fmt.Errorf("%w: read %s %s: %w", ErrPersistence, what, id, err)
}
