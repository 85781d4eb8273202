package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/drivescore/internal/domain/model"
)

// ReplaceEvents deletes a trip's events and stores the given ones in one
// transaction.
func (s *SQLStore) ReplaceEvents(ctx context.Context, tripID string, events []model.DetectedEvent) error {
	defer s.observe("replace_events", time.Now())

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM trip_events WHERE trip_id = ?`), tripID); err != nil {
			return fmt.Errorf("delete events of %s: %w", tripID, err)
		}
		if len(events) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO trip_events
			(id, trip_id, type, ts_start, ts_end, severity, lat, lon, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("prepare event insert: %w", err)
		}
		defer stmt.Close()

		for _, ev := range events {
			meta, err := json.Marshal(ev.Metadata)
			if err != nil {
				return fmt.Errorf("encode event metadata: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, ev.ID, tripID, string(ev.Type), toMillis(ev.TSStart),
				nullMillis(ev.TSEnd), ev.Severity, ev.Lat, ev.Lon, string(meta)); err != nil {
				return fmt.Errorf("insert event %s: %w", ev.ID, err)
			}
		}
		return nil
	})
}

// ListEvents returns a trip's events ordered by start time.
func (s *SQLStore) ListEvents(ctx context.Context, tripID string) ([]model.DetectedEvent, error) {
	defer s.observe("list_events", time.Now())

	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, trip_id, type, ts_start, ts_end, severity,
		lat, lon, metadata FROM trip_events WHERE trip_id = ? ORDER BY ts_start ASC, id ASC`), tripID)
	if err != nil {
		return nil, fmt.Errorf("query events of %s: %w", tripID, err)
	}
	defer rows.Close()

	var out []model.DetectedEvent
	for rows.Next() {
		var (
			ev        model.DetectedEvent
			eventType string
			start     int64
			end       sql.NullInt64
			meta      string
		)
		if err := rows.Scan(&ev.ID, &ev.TripID, &eventType, &start, &end, &ev.Severity,
			&ev.Lat, &ev.Lon, &meta); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = model.EventType(eventType)
		ev.TSStart = fromMillis(start)
		ev.TSEnd = timePtr(end)
		if err := json.Unmarshal([]byte(meta), &ev.Metadata); err != nil {
			return nil, fmt.Errorf("decode event metadata: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// UpsertFeatures stores a trip's feature vector.
func (s *SQLStore) UpsertFeatures(ctx context.Context, f model.TripFeatures) error {
	defer s.observe("upsert_features", time.Now())

	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO trip_features
		(trip_id, harsh_brake_per_100km, harsh_accel_per_100km, harsh_corner_per_100km,
		 speeding_5_min, speeding_10_min, speeding_20_min, distraction_min, night_fraction,
		 trip_minutes, distance_km, weather_penalty_min, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (trip_id) DO UPDATE SET
		 harsh_brake_per_100km = excluded.harsh_brake_per_100km,
		 harsh_accel_per_100km = excluded.harsh_accel_per_100km,
		 harsh_corner_per_100km = excluded.harsh_corner_per_100km,
		 speeding_5_min = excluded.speeding_5_min,
		 speeding_10_min = excluded.speeding_10_min,
		 speeding_20_min = excluded.speeding_20_min,
		 distraction_min = excluded.distraction_min,
		 night_fraction = excluded.night_fraction,
		 trip_minutes = excluded.trip_minutes,
		 distance_km = excluded.distance_km,
		 weather_penalty_min = excluded.weather_penalty_min,
		 updated_at = excluded.updated_at`),
		f.TripID, f.HarshBrakePer100Km, f.HarshAccelPer100Km, f.HarshCornerPer100Km,
		f.Speeding5Min, f.Speeding10Min, f.Speeding20Min, f.DistractionMin, f.NightFraction,
		f.TripMinutes, f.DistanceKm, f.WeatherPenaltyMin, toMillis(s.now()))
	if err != nil {
		return fmt.Errorf("upsert features of %s: %w", f.TripID, err)
	}
	return nil
}

// GetFeatures returns a trip's feature vector.
func (s *SQLStore) GetFeatures(ctx context.Context, tripID string) (model.TripFeatures, error) {
	defer s.observe("get_features", time.Now())

	var f model.TripFeatures
	err := s.db.QueryRowContext(ctx, s.q(`SELECT trip_id, harsh_brake_per_100km, harsh_accel_per_100km,
		harsh_corner_per_100km, speeding_5_min, speeding_10_min, speeding_20_min, distraction_min,
		night_fraction, trip_minutes, distance_km, weather_penalty_min
		FROM trip_features WHERE trip_id = ?`), tripID).Scan(
		&f.TripID, &f.HarshBrakePer100Km, &f.HarshAccelPer100Km, &f.HarshCornerPer100Km,
		&f.Speeding5Min, &f.Speeding10Min, &f.Speeding20Min, &f.DistractionMin,
		&f.NightFraction, &f.TripMinutes, &f.DistanceKm, &f.WeatherPenaltyMin)
	if err != nil {
		return model.TripFeatures{}, notFound(err)
	}
	return f, nil
}

// UpsertScore stores a trip's score and breakdown.
func (s *SQLStore) UpsertScore(ctx context.Context, sc model.TripScore) error {
	defer s.observe("upsert_score", time.Now())

	breakdown, err := json.Marshal(sc.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown of %s: %w", sc.TripID, err)
	}
	created := sc.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO trip_scores
		(trip_id, user_id, day, tss, confidence, distance_km, weights_version, breakdown, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (trip_id) DO UPDATE SET
		 user_id = excluded.user_id,
		 day = excluded.day,
		 tss = excluded.tss,
		 confidence = excluded.confidence,
		 distance_km = excluded.distance_km,
		 weights_version = excluded.weights_version,
		 breakdown = excluded.breakdown,
		 created_at = excluded.created_at`),
		sc.TripID, sc.UserID, sc.Day, sc.TSS, string(sc.Confidence), sc.DistanceKm,
		sc.WeightsVersion, string(breakdown), toMillis(created))
	if err != nil {
		return fmt.Errorf("upsert score of %s: %w", sc.TripID, err)
	}
	return nil
}

const scoreColumns = `trip_id, user_id, day, tss, confidence, distance_km, weights_version, breakdown, created_at`

func scanScore(row rowScanner) (model.TripScore, error) {
	var (
		sc         model.TripScore
		confidence string
		breakdown  string
		created    int64
	)
	if err := row.Scan(&sc.TripID, &sc.UserID, &sc.Day, &sc.TSS, &confidence, &sc.DistanceKm,
		&sc.WeightsVersion, &breakdown, &created); err != nil {
		return model.TripScore{}, err
	}
	sc.Confidence = model.Confidence(confidence)
	sc.CreatedAt = fromMillis(created)
	if err := json.Unmarshal([]byte(breakdown), &sc.Breakdown); err != nil {
		return model.TripScore{}, fmt.Errorf("decode breakdown: %w", err)
	}
	return sc, nil
}

// GetScore returns a trip's score.
func (s *SQLStore) GetScore(ctx context.Context, tripID string) (model.TripScore, error) {
	defer s.observe("get_score", time.Now())

	sc, err := scanScore(s.db.QueryRowContext(ctx, s.q(`SELECT `+scoreColumns+` FROM trip_scores WHERE trip_id = ?`), tripID))
	if err != nil {
		return model.TripScore{}, notFound(err)
	}
	return sc, nil
}

// DayScores returns every trip score of a driver for one day, ordered by
// trip id so repeated reads are stable.
func (s *SQLStore) DayScores(ctx context.Context, userID, day string) ([]model.TripScore, error) {
	defer s.observe("day_scores", time.Now())

	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+scoreColumns+` FROM trip_scores
		WHERE user_id = ? AND day = ? ORDER BY trip_id ASC`), userID, day)
	if err != nil {
		return nil, fmt.Errorf("query day scores: %w", err)
	}
	defer rows.Close()

	var out []model.TripScore
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

const dailyColumns = `user_id, day, rds, trips_count, total_distance_km, updated_at`

func scanDaily(row rowScanner) (model.DriverScoreDaily, error) {
	var (
		d       model.DriverScoreDaily
		updated int64
	)
	if err := row.Scan(&d.UserID, &d.Day, &d.RDS, &d.TripsCount, &d.TotalDistanceKm, &updated); err != nil {
		return model.DriverScoreDaily{}, err
	}
	d.UpdatedAt = fromMillis(updated)
	return d, nil
}

// PreviousDailyScore returns the latest driver score strictly before day.
func (s *SQLStore) PreviousDailyScore(ctx context.Context, userID, day string) (model.DriverScoreDaily, error) {
	defer s.observe("previous_daily_score", time.Now())

	d, err := scanDaily(s.db.QueryRowContext(ctx, s.q(`SELECT `+dailyColumns+` FROM driver_score_daily
		WHERE user_id = ? AND day < ? ORDER BY day DESC LIMIT 1`), userID, day))
	if err != nil {
		return model.DriverScoreDaily{}, notFound(err)
	}
	return d, nil
}

// LatestDailyScore returns a driver's most recent daily score.
func (s *SQLStore) LatestDailyScore(ctx context.Context, userID string) (model.DriverScoreDaily, error) {
	defer s.observe("latest_daily_score", time.Now())

	d, err := scanDaily(s.db.QueryRowContext(ctx, s.q(`SELECT `+dailyColumns+` FROM driver_score_daily
		WHERE user_id = ? ORDER BY day DESC LIMIT 1`), userID))
	if err != nil {
		return model.DriverScoreDaily{}, notFound(err)
	}
	return d, nil
}

// UpsertDailyScore stores a driver's score for one day.
func (s *SQLStore) UpsertDailyScore(ctx context.Context, d model.DriverScoreDaily) error {
	defer s.observe("upsert_daily_score", time.Now())

	updated := d.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO driver_score_daily
		(user_id, day, rds, trips_count, total_distance_km, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, day) DO UPDATE SET
		 rds = excluded.rds,
		 trips_count = excluded.trips_count,
		 total_distance_km = excluded.total_distance_km,
		 updated_at = excluded.updated_at`),
		d.UserID, d.Day, d.RDS, d.TripsCount, d.TotalDistanceKm, toMillis(updated))
	if err != nil {
		return fmt.Errorf("upsert daily score of %s on %s: %w", d.UserID, d.Day, err)
	}
	return nil
}

// ActiveWeights returns the active weight set.
func (s *SQLStore) ActiveWeights(ctx context.Context) (model.ScoreWeights, error) {
	defer s.observe("active_weights", time.Now())

	var raw string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT weights FROM score_weights
		WHERE active = ? ORDER BY created_at DESC LIMIT 1`), 1).Scan(&raw)
	if err != nil {
		return model.ScoreWeights{}, notFound(err)
	}
	var w model.ScoreWeights
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return model.ScoreWeights{}, fmt.Errorf("decode weights: %w", err)
	}
	return w, nil
}

// SaveWeights stores a weight set. Activating it deactivates every other
// version.
func (s *SQLStore) SaveWeights(ctx context.Context, w model.ScoreWeights, active bool) error {
	defer s.observe("save_weights", time.Now())

	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode weights %s: %w", w.Version, err)
	}
	flag := 0
	if active {
		flag = 1
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if active {
			if _, err := tx.ExecContext(ctx, s.q(`UPDATE score_weights SET active = ? WHERE version <> ?`), 0, w.Version); err != nil {
				return fmt.Errorf("deactivate weights: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx, s.q(`INSERT INTO score_weights (version, active, weights, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (version) DO UPDATE SET active = excluded.active, weights = excluded.weights`),
			w.Version, flag, string(raw), toMillis(s.now()))
		if err != nil {
			return fmt.Errorf("save weights %s: %w", w.Version, err)
		}
		return nil
	})
}
