package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/drivescore/internal/adapters/mapmatch"
	"github.com/okian/drivescore/internal/adapters/repository"
	"github.com/okian/drivescore/internal/adapters/weather"
	"github.com/okian/drivescore/internal/domain/features"
	"github.com/okian/drivescore/internal/domain/model"
	"github.com/okian/drivescore/internal/domain/scoring"
	"github.com/okian/drivescore/internal/domain/signal"
	"github.com/okian/drivescore/pkg/logger"
	"github.com/okian/drivescore/pkg/metrics"
)

// Provider names used in metrics.
const (
	providerMapMatch = "mapmatch"
	providerWeather  = "weather"
)

// Finalize run results used in metrics.
const (
	runOK       = "ok"
	runPartial  = "partial"
	runAborted  = "aborted"
	runConflict = "conflict"
)

// FinalizeResult summarizes one finalize run.
type FinalizeResult struct {
	// Finalized counts trips that reached the closed state, scored or not.
	Finalized int `json:"finalized"`
	// Errors holds one message per trip that failed.
	Errors []string `json:"errors"`
}

// run carries the per-run inputs shared by every trip of a batch.
type run struct {
	weights model.ScoreWeights
	scorer  scoring.Scorer
}

// FinalizeEligible finalizes every trip that has gone idle, plus trips
// stuck in finalizing past the reclaim timeout. Trips are processed one at a
// time; a failing trip is reverted to open and does not stop the batch.
func (s *Service) FinalizeEligible(ctx context.Context) (FinalizeResult, error) {
	if !s.isStarted() {
		return FinalizeResult{}, ErrNotStarted
	}
	if !s.runMu.TryLock() {
		metrics.RecordFinalizeRun(runConflict, 0)
		return FinalizeResult{}, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	start := time.Now()
	now := s.now().UTC()

	trips, err := s.store.ListFinalizable(ctx, now.Add(-s.tripIdle), now.Add(-s.finalizingReclaim), s.batchLimit)
	if err != nil {
		metrics.RecordFinalizeRun(runAborted, msSince(start))
		return FinalizeResult{}, fmt.Errorf("%w: list finalizable trips: %w", ErrPersistence, err)
	}

	w := s.activeWeights(ctx)
	r := &run{
		weights: w,
		scorer:  scoring.NewWeightedScorer(scoring.WithWeights(w)),
	}

	s.logger.Info(ctx, "finalize run started",
		logger.Int("candidates", len(trips)),
		logger.String("weightsVersion", w.Version),
	)

	res := FinalizeResult{Errors: []string{}}
	for _, trip := range trips {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("run cancelled: %v", err))
			break
		}
		if err := s.finalizeOne(ctx, trip, r); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("trip %s: %v", trip.ID, err))
			continue
		}
		res.Finalized++
	}

	result := runOK
	if len(res.Errors) > 0 {
		result = runPartial
	}
	metrics.RecordFinalizeRun(result, msSince(start))
	s.logger.Info(ctx, "finalize run completed",
		logger.Int("finalized", res.Finalized),
		logger.Int("errors", len(res.Errors)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// finalizeOne claims a trip, runs the pipeline and releases the claim when
// processing fails.
func (s *Service) finalizeOne(ctx context.Context, trip model.Trip, r *run) error {
	start := time.Now()
	log := s.logger.Named("finalize")

	if err := s.store.MarkFinalizing(ctx, trip.ID, s.now().UTC()); err != nil {
		metrics.RecordTripFinalized(metrics.OutcomeFailed, msSince(start))
		return fmt.Errorf("%w: mark finalizing: %w", ErrPersistence, err)
	}
	trip.Status = model.TripFinalizing

	outcome, err := s.processTrip(ctx, trip, r)
	if err != nil {
		metrics.RecordTripFinalized(metrics.OutcomeFailed, msSince(start))
		metrics.RecordErrorByComponent("finalize", "persistence")
		log.Error(ctx, "trip finalize failed",
			logger.String("tripID", trip.ID),
			logger.Error(err),
		)
		// Use a fresh context so a cancelled run still releases its claim.
		revertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.providerTimeout)
		defer cancel()
		if rerr := s.store.RevertToOpen(revertCtx, trip.ID); rerr != nil {
			log.Warn(ctx, "failed to revert trip to open",
				logger.String("tripID", trip.ID),
				logger.Error(rerr),
			)
		}
		return err
	}

	metrics.RecordTripFinalized(outcome, msSince(start))
	log.Info(ctx, "trip finalized",
		logger.String("tripID", trip.ID),
		logger.String("outcome", outcome),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// processTrip runs the pipeline over a claimed trip and persists its
// results. It returns the finalize outcome.
func (s *Service) processTrip(ctx context.Context, trip model.Trip, r *run) (string, error) {
	raw, err := s.store.LoadSamples(ctx, trip.ID)
	if err != nil {
		return "", fmt.Errorf("%w: load samples: %w", ErrPersistence, err)
	}

	distanceKm := signal.TotalDistanceKm(raw)
	duration := signal.Duration(raw)
	trip.DistanceKm = distanceKm
	trip.DurationMin = duration.Minutes()
	trip.Quality.SampleCount = len(raw)
	if len(raw) > 0 {
		first, last := raw[0].TS, raw[len(raw)-1].TS
		trip.StartedAt = &first
		trip.EndedAt = &last
	}
	if len(raw) >= 2 {
		trip.Geometry = signal.BuildGeometry(raw, s.geometryEpsilon)
	}

	if distanceKm < s.minDistanceKm || duration < s.minDuration {
		trip.Quality.InsufficientData = true
		if err := s.persistInsufficient(ctx, trip); err != nil {
			return "", err
		}
		return metrics.OutcomeInsufficient, nil
	}

	processed := signal.Preprocess(raw, s.smoothingWindow)
	enriched := s.enrich(ctx, trip.ID, processed)

	trip.NightFraction = features.NightFraction(enriched)
	trip.RoadMix = features.RoadMix(enriched)
	trip.Quality.Ratio = features.QualityRatio(enriched, s.gates)
	trip.Quality.MapMatched = mapMatched(enriched)
	trip.Weather = s.tripWeather(ctx, trip.ID, raw, trip.DurationMin)

	trimmed := signal.TrimByDistance(enriched, s.trimMeters, s.trimMeters)
	events := s.detector.All(trimmed)
	for i := range events {
		events[i].ID = s.newID()
		events[i].TripID = trip.ID
	}

	feats := features.Extract(events, features.TripContext{
		TripID:            trip.ID,
		DistanceKm:        distanceKm,
		TripMinutes:       trip.DurationMin,
		NightFraction:     trip.NightFraction,
		WeatherPenaltyMin: trip.Weather.PenaltyMinutes,
	})

	scored, err := r.scorer.Score(ctx, scoring.Input{
		TripID:       trip.ID,
		Features:     feats,
		QualityRatio: trip.Quality.Ratio,
	})
	if err != nil {
		return "", fmt.Errorf("score: %w", err)
	}
	trip.Quality.Confidence = scored.Confidence

	score := model.TripScore{
		TripID:         trip.ID,
		UserID:         trip.UserID,
		Day:            trip.Day(),
		TSS:            scored.Breakdown.ClampedScore,
		Confidence:     scored.Confidence,
		DistanceKm:     distanceKm,
		WeightsVersion: scored.Breakdown.WeightsVersion,
		Breakdown:      scored.Breakdown,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.persistScored(ctx, trip, events, feats, score, r.weights.Alpha); err != nil {
		return "", err
	}

	for _, ev := range events {
		metrics.RecordEventDetected(string(ev.Type))
	}
	metrics.RecordTripScore(string(score.Confidence), score.TSS)
	return metrics.OutcomeScored, nil
}

// enrich attaches road data to samples. Provider failures degrade to the
// data matched so far.
func (s *Service) enrich(ctx context.Context, tripID string, samples []model.ProcessedSample) []model.ProcessedSample {
	start := time.Now()
	enriched, err := mapmatch.Enrich(ctx, s.mapProvider, samples, s.providerTimeout)
	metrics.RecordProviderCall(providerMapMatch, msSince(start), err != nil)
	if err != nil {
		s.logDependency(ctx, providerMapMatch, tripID, err)
	}
	return enriched
}

// tripWeather looks up the weather at the trip's midpoint over the trip
// window. Provider failures yield no penalty.
func (s *Service) tripWeather(ctx context.Context, tripID string, raw []model.TelemetrySample, tripMinutes float64) model.TripWeather {
	mid := raw[len(raw)/2]
	q := weather.Query{
		Lat:   mid.Lat,
		Lon:   mid.Lon,
		Start: raw[0].TS,
		End:   raw[len(raw)-1].TS,
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	conditions, err := s.weatherProvider.HistoricalWeather(callCtx, q)
	metrics.RecordProviderCall(providerWeather, msSince(start), err != nil)
	if err != nil {
		s.logDependency(ctx, providerWeather, tripID, err)
		return model.TripWeather{}
	}
	return model.TripWeather{
		Conditions:     conditions,
		PenaltyMinutes: weather.PenaltyMinutes(conditions, tripMinutes),
		Available:      true,
	}
}

func (s *Service) logDependency(ctx context.Context, provider, tripID string, err error) {
	metrics.RecordErrorByComponent(provider, "dependency")
	err = fmt.Errorf("%w: %s: %w", ErrDependency, provider, err)
	// Unconfigured providers are expected and not worth a warning.
	if errors.Is(err, mapmatch.ErrNotImplemented) || errors.Is(err, weather.ErrNotImplemented) {
		s.logger.Debug(ctx, "provider not configured",
			logger.String("provider", provider),
			logger.String("tripID", tripID),
		)
		return
	}
	s.logger.Warn(ctx, "provider call failed, continuing without enrichment",
		logger.String("provider", provider),
		logger.String("tripID", tripID),
		logger.Error(err),
	)
}

func (s *Service) persistInsufficient(ctx context.Context, trip model.Trip) error {
	if err := s.store.UpdateTripSummary(ctx, trip); err != nil {
		return fmt.Errorf("%w: update trip: %w", ErrPersistence, err)
	}
	if err := s.store.CloseTrip(ctx, trip.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("%w: close trip: %w", ErrPersistence, err)
	}
	return nil
}

// persistScored writes a scored trip: summary, events, features, score,
// the driver's daily score and finally the closed status.
func (s *Service) persistScored(
	ctx context.Context,
	trip model.Trip,
	events []model.DetectedEvent,
	feats model.TripFeatures,
	score model.TripScore,
	alpha float64,
) error {
	if err := s.store.UpdateTripSummary(ctx, trip); err != nil {
		return fmt.Errorf("%w: update trip: %w", ErrPersistence, err)
	}
	if err := s.store.ReplaceEvents(ctx, trip.ID, events); err != nil {
		return fmt.Errorf("%w: replace events: %w", ErrPersistence, err)
	}
	if err := s.store.UpsertFeatures(ctx, feats); err != nil {
		return fmt.Errorf("%w: upsert features: %w", ErrPersistence, err)
	}
	if err := s.store.UpsertScore(ctx, score); err != nil {
		return fmt.Errorf("%w: upsert score: %w", ErrPersistence, err)
	}
	if err := s.updateDailyScore(ctx, score.UserID, score.Day, alpha); err != nil {
		return err
	}
	if err := s.store.CloseTrip(ctx, trip.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("%w: close trip: %w", ErrPersistence, err)
	}
	return nil
}

// updateDailyScore recomputes a driver's score for one day from the
// previous day's score and every trip scored that day.
func (s *Service) updateDailyScore(ctx context.Context, userID, day string, alpha float64) error {
	var prev *float64
	p, err := s.store.PreviousDailyScore(ctx, userID, day)
	switch {
	case err == nil:
		v := float64(p.RDS)
		prev = &v
	case errors.Is(err, repository.ErrNotFound):
	default:
		return fmt.Errorf("%w: previous daily score: %w", ErrPersistence, err)
	}

	dayScores, err := s.store.DayScores(ctx, userID, day)
	if err != nil {
		return fmt.Errorf("%w: day scores: %w", ErrPersistence, err)
	}

	scores := make([]float64, len(dayScores))
	distances := make([]float64, len(dayScores))
	var total float64
	for i, sc := range dayScores {
		scores[i] = float64(sc.TSS)
		distances[i] = sc.DistanceKm
		total += sc.DistanceKm
	}

	rds := scoring.UpdateDailyRDS(prev, scores, distances, alpha)
	if err := s.store.UpsertDailyScore(ctx, model.DriverScoreDaily{
		UserID:          userID,
		Day:             day,
		RDS:             rds,
		TripsCount:      len(dayScores),
		TotalDistanceKm: total,
		UpdatedAt:       s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("%w: upsert daily score: %w", ErrPersistence, err)
	}
	metrics.RecordDriverScore(rds)
	return nil
}

func mapMatched(samples []model.ProcessedSample) bool {
	for i := range samples {
		if samples[i].RoadClass != "" {
			return true
		}
	}
	return false
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
