package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/drivescore/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "drivescore.db")

	s, err := Open(ctx, DriverSQLite, path, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.MigrateUp(ctx))
	return s
}

func openTrip(t *testing.T, s *SQLStore, id, user, device string, created time.Time) {
	t.Helper()
	require.NoError(t, s.CreateTrip(context.Background(), model.Trip{
		ID:        id,
		UserID:    user,
		DeviceID:  device,
		Status:    model.TripOpen,
		CreatedAt: created,
	}))
}

func samplesAt(start time.Time, n int) []model.TelemetrySample {
	out := make([]model.TelemetrySample, n)
	for i := range out {
		out[i] = model.TelemetrySample{
			TS:       start.Add(time.Duration(i) * time.Second),
			Lat:      52 + float64(i)*0.001,
			Lon:      4,
			SpeedMPS: 12,
		}
	}
	return out
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT $1, $2 FROM x WHERE y = '?' AND z = $3",
		rebind("SELECT ?, ? FROM x WHERE y = '?' AND z = ?"))
	assert.Equal(t, "SELECT 1", rebind("SELECT 1"))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestMigrations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	version, dirty, err := s.MigrateVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, s.MigrateUp(ctx))

	require.NoError(t, s.MigrateDown(ctx))
	version, _, err = s.MigrateVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestIngestFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.FindOpenTrip(ctx, "dev-1")
	assert.ErrorIs(t, err, ErrNotFound)

	openTrip(t, s, "trip-1", "user-1", "dev-1", testNow)

	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	batch := samplesAt(start, 3)
	batch[0].HDOP = model.Float64Ptr(0.9)
	batch[1].Accel = &model.Accel{X: 1, Y: -2, Z: 9.8}
	batch[2].ScreenOn = model.BoolPtr(true)

	n, err := s.InsertSamples(ctx, "trip-1", batch)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Overlapping batch only stores new timestamps.
	n, err = s.InsertSamples(ctx, "trip-1", samplesAt(start.Add(2*time.Second), 3))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	trip, err := s.FindOpenTrip(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "trip-1", trip.ID)
	require.NotNil(t, trip.StartedAt)
	require.NotNil(t, trip.LastSampleAt)
	assert.Equal(t, start, *trip.StartedAt)
	assert.Equal(t, start.Add(4*time.Second), *trip.LastSampleAt)

	loaded, err := s.LoadSamples(ctx, "trip-1")
	require.NoError(t, err)
	require.Len(t, loaded, 5)
	assert.Equal(t, 0.9, *loaded[0].HDOP)
	assert.Nil(t, loaded[0].Accel)
	assert.Equal(t, &model.Accel{X: 1, Y: -2, Z: 9.8}, loaded[1].Accel)
	assert.True(t, *loaded[2].ScreenOn)
	assert.Nil(t, loaded[3].ScreenOn)
}

func TestFinalizeLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	openTrip(t, s, "idle", "user-1", "dev-1", testNow.Add(-2*time.Hour))
	openTrip(t, s, "active", "user-2", "dev-2", testNow)
	_, err := s.InsertSamples(ctx, "idle", samplesAt(testNow.Add(-time.Hour), 2))
	require.NoError(t, err)
	_, err = s.InsertSamples(ctx, "active", samplesAt(testNow.Add(-time.Minute), 2))
	require.NoError(t, err)

	idleBefore := testNow.Add(-15 * time.Minute)
	reclaimBefore := testNow.Add(-30 * time.Minute)

	trips, err := s.ListFinalizable(ctx, idleBefore, reclaimBefore, 10)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "idle", trips[0].ID)

	_, err = s.ListFinalizable(ctx, idleBefore, reclaimBefore, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	require.NoError(t, s.MarkFinalizing(ctx, "idle", testNow))

	// A fresh claim is not reclaimable yet.
	trips, err = s.ListFinalizable(ctx, idleBefore, reclaimBefore, 10)
	require.NoError(t, err)
	assert.Empty(t, trips)

	// A stale claim is.
	trips, err = s.ListFinalizable(ctx, idleBefore, testNow.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, model.TripFinalizing, trips[0].Status)

	require.NoError(t, s.RevertToOpen(ctx, "idle"))
	trip, err := s.GetTrip(ctx, "idle")
	require.NoError(t, err)
	assert.Equal(t, model.TripOpen, trip.Status)
	assert.Nil(t, trip.FinalizingAt)

	// Closing requires the finalizing state.
	assert.ErrorIs(t, s.CloseTrip(ctx, "idle", testNow), ErrStatusConflict)

	require.NoError(t, s.MarkFinalizing(ctx, "idle", testNow))
	ended := testNow.Add(-59 * time.Minute)
	trip.EndedAt = &ended
	trip.DistanceKm = 12.5
	trip.DurationMin = 18
	trip.NightFraction = 0.25
	trip.RoadMix = map[string]float64{"primary": 0.75, "unknown": 0.25}
	trip.Quality = model.TripQuality{Ratio: 0.9, Confidence: model.ConfidenceHigh, SampleCount: 2}
	trip.Weather = model.TripWeather{Available: true, PenaltyMinutes: 9, Conditions: []model.WeatherCondition{{Condition: "rain"}}}
	trip.Geometry = model.LineString{Type: "LineString", Coordinates: [][2]float64{{4, 52}, {4, 52.001}}}
	require.NoError(t, s.UpdateTripSummary(ctx, trip))
	require.NoError(t, s.CloseTrip(ctx, "idle", testNow))

	got, err := s.GetTrip(ctx, "idle")
	require.NoError(t, err)
	assert.Equal(t, model.TripClosed, got.Status)
	assert.Equal(t, 12.5, got.DistanceKm)
	assert.Equal(t, trip.RoadMix, got.RoadMix)
	assert.Equal(t, trip.Quality, got.Quality)
	assert.Equal(t, trip.Geometry, got.Geometry)
	assert.True(t, got.Weather.Available)
	require.NotNil(t, got.ClosedAt)

	_, err = s.GetTrip(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	counts, err := s.CountTripsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.TripOpen])
	assert.Equal(t, 1, counts[model.TripClosed])
	assert.Equal(t, 0, counts[model.TripFinalizing])
}

func TestEventsAndScores(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	openTrip(t, s, "trip-1", "user-1", "dev-1", testNow)

	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(400 * time.Millisecond)
	events := []model.DetectedEvent{
		{ID: "e2", Type: model.EventDistraction, TSStart: start.Add(time.Minute), Severity: 0.1},
		{ID: "e1", Type: model.EventHarshBrake, TSStart: start, TSEnd: &end, Severity: 0.5,
			Lat: 52, Lon: 4, Metadata: map[string]any{"peak_accel_mps2": -5.0}},
	}
	require.NoError(t, s.ReplaceEvents(ctx, "trip-1", events))
	require.NoError(t, s.ReplaceEvents(ctx, "trip-1", events))

	got, err := s.ListEvents(ctx, "trip-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "trip-1", got[0].TripID)
	assert.Equal(t, end, *got[0].TSEnd)
	assert.Equal(t, -5.0, got[0].Metadata["peak_accel_mps2"])
	assert.Nil(t, got[1].TSEnd)

	f := model.TripFeatures{TripID: "trip-1", HarshBrakePer100Km: 8, TripMinutes: 20, DistanceKm: 12.5}
	require.NoError(t, s.UpsertFeatures(ctx, f))
	f.HarshBrakePer100Km = 4
	require.NoError(t, s.UpsertFeatures(ctx, f))
	gotF, err := s.GetFeatures(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, f, gotF)

	score := model.TripScore{
		TripID: "trip-1", UserID: "user-1", Day: "2024-05-01", TSS: 936,
		Confidence: model.ConfidenceHigh, DistanceKm: 12.5, WeightsVersion: "v1",
		Breakdown: model.ScoreBreakdown{Base: 1000, TotalDeduction: 64, RawScore: 936, ClampedScore: 936,
			Confidence: model.ConfidenceHigh, WeightsVersion: "v1",
			Terms: []model.TermBreakdown{{Term: "brake", Feature: 8, Weight: 8, Raw: 64, Capped: 64}}},
	}
	require.NoError(t, s.UpsertScore(ctx, score))
	require.NoError(t, s.UpsertScore(ctx, score))

	gotS, err := s.GetScore(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, score.Breakdown, gotS.Breakdown)
	assert.Equal(t, testNow, gotS.CreatedAt)

	day, err := s.DayScores(ctx, "user-1", "2024-05-01")
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, 936, day[0].TSS)

	_, err = s.GetScore(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevertToOpen_ClearsDerivedRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	openTrip(t, s, "trip-1", "user-1", "dev-1", testNow)
	_, err := s.InsertSamples(ctx, "trip-1", samplesAt(testNow.Add(-time.Hour), 2))
	require.NoError(t, err)
	require.NoError(t, s.MarkFinalizing(ctx, "trip-1", testNow))

	trip, err := s.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	trip.DistanceKm = 7
	trip.RoadMix = map[string]float64{"primary": 1}
	trip.Quality = model.TripQuality{Ratio: 1, Confidence: model.ConfidenceHigh, SampleCount: 2}
	require.NoError(t, s.UpdateTripSummary(ctx, trip))
	require.NoError(t, s.ReplaceEvents(ctx, "trip-1", []model.DetectedEvent{
		{ID: "e1", Type: model.EventHarshBrake, TSStart: testNow.Add(-time.Hour), Severity: 0.5},
	}))
	require.NoError(t, s.UpsertFeatures(ctx, model.TripFeatures{TripID: "trip-1", DistanceKm: 7}))
	require.NoError(t, s.UpsertScore(ctx, model.TripScore{
		TripID: "trip-1", UserID: "user-1", Day: "2024-05-01", TSS: 950,
		Confidence: model.ConfidenceHigh, WeightsVersion: "v1",
	}))

	require.NoError(t, s.RevertToOpen(ctx, "trip-1"))

	got, err := s.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, model.TripOpen, got.Status)
	assert.Zero(t, got.DistanceKm)
	assert.Empty(t, got.RoadMix)
	assert.Equal(t, model.TripQuality{}, got.Quality)
	assert.Equal(t, trip.StartedAt, got.StartedAt)

	events, err := s.ListEvents(ctx, "trip-1")
	require.NoError(t, err)
	assert.Empty(t, events)
	_, err = s.GetFeatures(ctx, "trip-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetScore(ctx, "trip-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Only finalizing trips can be reverted.
	assert.ErrorIs(t, s.RevertToOpen(ctx, "trip-1"), ErrStatusConflict)
}

func TestDailyScores(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LatestDailyScore(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, d := range []model.DriverScoreDaily{
		{UserID: "user-1", Day: "2024-04-29", RDS: 780, TripsCount: 1, TotalDistanceKm: 5},
		{UserID: "user-1", Day: "2024-04-30", RDS: 790, TripsCount: 2, TotalDistanceKm: 9},
		{UserID: "user-1", Day: "2024-05-01", RDS: 800, TripsCount: 1, TotalDistanceKm: 3},
	} {
		require.NoError(t, s.UpsertDailyScore(ctx, d))
	}
	require.NoError(t, s.UpsertDailyScore(ctx, model.DriverScoreDaily{
		UserID: "user-1", Day: "2024-05-01", RDS: 805, TripsCount: 2, TotalDistanceKm: 8,
	}))

	prev, err := s.PreviousDailyScore(ctx, "user-1", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 790, prev.RDS)

	_, err = s.PreviousDailyScore(ctx, "user-1", "2024-04-29")
	assert.ErrorIs(t, err, ErrNotFound)

	latest, err := s.LatestDailyScore(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 805, latest.RDS)
	assert.Equal(t, 2, latest.TripsCount)
}

func TestWeights(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ActiveWeights(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	v1 := model.ScoreWeights{Version: "v1", WA: 8, Alpha: 0.15, Caps: map[string]float64{"brake": 200}}
	v2 := model.ScoreWeights{Version: "v2", WA: 6, Alpha: 0.2}
	require.NoError(t, s.SaveWeights(ctx, v1, true))
	require.NoError(t, s.SaveWeights(ctx, v2, false))

	active, err := s.ActiveWeights(ctx)
	require.NoError(t, err)
	assert.Equal(t, v1, active)

	require.NoError(t, s.SaveWeights(ctx, v2, true))
	active, err = s.ActiveWeights(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", active.Version)
}
