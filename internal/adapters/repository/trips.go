package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/drivescore/internal/domain/model"
)

const tripColumns = `id, user_id, device_id, status, started_at, ended_at, last_sample_at,
	created_at, finalizing_at, closed_at, distance_km, duration_min, night_fraction,
	weather, road_mix, quality, geometry`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (model.Trip, error) {
	var (
		t                                 model.Trip
		status                            string
		started, ended, lastSample        sql.NullInt64
		finalizing, closed                sql.NullInt64
		created                           int64
		weather, roadMix, quality, geomJS string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.DeviceID, &status, &started, &ended, &lastSample,
		&created, &finalizing, &closed, &t.DistanceKm, &t.DurationMin, &t.NightFraction,
		&weather, &roadMix, &quality, &geomJS)
	if err != nil {
		return model.Trip{}, err
	}
	t.Status = model.TripStatus(status)
	t.StartedAt = timePtr(started)
	t.EndedAt = timePtr(ended)
	t.LastSampleAt = timePtr(lastSample)
	t.CreatedAt = fromMillis(created)
	t.FinalizingAt = timePtr(finalizing)
	t.ClosedAt = timePtr(closed)

	for _, f := range []struct {
		name string
		raw  string
		dst  any
	}{
		{"weather", weather, &t.Weather},
		{"road_mix", roadMix, &t.RoadMix},
		{"quality", quality, &t.Quality},
		{"geometry", geomJS, &t.Geometry},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return model.Trip{}, fmt.Errorf("decode trip %s: %w", f.name, err)
		}
	}
	return t, nil
}

// FindOpenTrip returns the most recent open trip of a device.
func (s *SQLStore) FindOpenTrip(ctx context.Context, deviceID string) (model.Trip, error) {
	defer s.observe("find_open_trip", time.Now())

	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+tripColumns+` FROM trips
		WHERE device_id = ? AND status = ?
		ORDER BY created_at DESC LIMIT 1`), deviceID, string(model.TripOpen))
	t, err := scanTrip(row)
	if err != nil {
		return model.Trip{}, notFound(err)
	}
	return t, nil
}

// CreateTrip inserts a new trip.
func (s *SQLStore) CreateTrip(ctx context.Context, t model.Trip) error {
	defer s.observe("create_trip", time.Now())

	created := t.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO trips
		(id, user_id, device_id, status, started_at, last_sample_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.UserID, t.DeviceID, string(t.Status),
		nullMillis(t.StartedAt), nullMillis(t.LastSampleAt), toMillis(created))
	if err != nil {
		return fmt.Errorf("insert trip %s: %w", t.ID, err)
	}
	return nil
}

// InsertSamples stores samples idempotently on (trip_id, ts) and refreshes
// the trip's started_at and last_sample_at.
func (s *SQLStore) InsertSamples(ctx context.Context, tripID string, samples []model.TelemetrySample) (int, error) {
	defer s.observe("insert_samples", time.Now())

	inserted := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO trip_samples
			(trip_id, ts, lat, lon, speed_mps, heading_deg, hdop, ax, ay, az, screen_on)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (trip_id, ts) DO NOTHING`))
		if err != nil {
			return fmt.Errorf("prepare sample insert: %w", err)
		}
		defer stmt.Close()

		for i := range samples {
			smp := &samples[i]
			var ax, ay, az sql.NullFloat64
			if smp.Accel != nil {
				ax = sql.NullFloat64{Float64: smp.Accel.X, Valid: true}
				ay = sql.NullFloat64{Float64: smp.Accel.Y, Valid: true}
				az = sql.NullFloat64{Float64: smp.Accel.Z, Valid: true}
			}
			res, err := stmt.ExecContext(ctx, tripID, toMillis(smp.TS), smp.Lat, smp.Lon, smp.SpeedMPS,
				nullFloat(smp.HeadingDeg), nullFloat(smp.HDOP), ax, ay, az, nullBool(smp.ScreenOn))
			if err != nil {
				return fmt.Errorf("insert sample: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			inserted += int(n)
		}

		_, err = tx.ExecContext(ctx, s.q(`UPDATE trips SET
			started_at = (SELECT MIN(ts) FROM trip_samples WHERE trip_id = ?),
			last_sample_at = (SELECT MAX(ts) FROM trip_samples WHERE trip_id = ?)
			WHERE id = ?`), tripID, tripID, tripID)
		if err != nil {
			return fmt.Errorf("refresh trip bounds: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListFinalizable returns idle open trips and stale finalizing trips.
func (s *SQLStore) ListFinalizable(ctx context.Context, idleBefore, reclaimBefore time.Time, limit int) ([]model.Trip, error) {
	defer s.observe("list_finalizable", time.Now())

	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+tripColumns+` FROM trips
		WHERE (status = ? AND COALESCE(last_sample_at, created_at) < ?)
		   OR (status = ? AND finalizing_at < ?)
		ORDER BY COALESCE(last_sample_at, created_at) ASC, id ASC
		LIMIT ?`),
		string(model.TripOpen), toMillis(idleBefore),
		string(model.TripFinalizing), toMillis(reclaimBefore),
		limit)
	if err != nil {
		return nil, fmt.Errorf("query finalizable trips: %w", err)
	}
	defer rows.Close()

	var out []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkFinalizing claims a trip for finalization.
func (s *SQLStore) MarkFinalizing(ctx context.Context, tripID string, at time.Time) error {
	defer s.observe("mark_finalizing", time.Now())

	res, err := s.db.ExecContext(ctx, s.q(`UPDATE trips SET status = ?, finalizing_at = ?
		WHERE id = ? AND status IN (?, ?)`),
		string(model.TripFinalizing), toMillis(at), tripID,
		string(model.TripOpen), string(model.TripFinalizing))
	if err != nil {
		return fmt.Errorf("mark trip %s finalizing: %w", tripID, err)
	}
	return expectOne(res, tripID)
}

// RevertToOpen releases a finalizing trip and discards whatever a failed
// finalize wrote for it: summary fields, events, features and score.
func (s *SQLStore) RevertToOpen(ctx context.Context, tripID string) error {
	defer s.observe("revert_to_open", time.Now())

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`UPDATE trips SET status = ?, finalizing_at = NULL,
			ended_at = NULL, distance_km = 0, duration_min = 0, night_fraction = 0,
			weather = '{}', road_mix = '{}', quality = '{}', geometry = '{}'
			WHERE id = ? AND status = ?`),
			string(model.TripOpen), tripID, string(model.TripFinalizing))
		if err != nil {
			return fmt.Errorf("revert trip %s: %w", tripID, err)
		}
		if err := expectOne(res, tripID); err != nil {
			return err
		}
		for _, table := range []string{"trip_events", "trip_features", "trip_scores"} {
			if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM `+table+` WHERE trip_id = ?`), tripID); err != nil {
				return fmt.Errorf("clear %s of %s: %w", table, tripID, err)
			}
		}
		return nil
	})
}

// CloseTrip marks a trip closed.
func (s *SQLStore) CloseTrip(ctx context.Context, tripID string, at time.Time) error {
	defer s.observe("close_trip", time.Now())

	res, err := s.db.ExecContext(ctx, s.q(`UPDATE trips SET status = ?, closed_at = ?
		WHERE id = ? AND status = ?`),
		string(model.TripClosed), toMillis(at), tripID, string(model.TripFinalizing))
	if err != nil {
		return fmt.Errorf("close trip %s: %w", tripID, err)
	}
	return expectOne(res, tripID)
}

// UpdateTripSummary writes the derived trip fields.
func (s *SQLStore) UpdateTripSummary(ctx context.Context, t model.Trip) error {
	defer s.observe("update_trip_summary", time.Now())

	encoded := make([]string, 0, 4)
	for _, v := range []any{t.Weather, t.RoadMix, t.Quality, t.Geometry} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode trip %s: %w", t.ID, err)
		}
		encoded = append(encoded, string(b))
	}

	res, err := s.db.ExecContext(ctx, s.q(`UPDATE trips SET
		started_at = ?, ended_at = ?, distance_km = ?, duration_min = ?, night_fraction = ?,
		weather = ?, road_mix = ?, quality = ?, geometry = ?
		WHERE id = ?`),
		nullMillis(t.StartedAt), nullMillis(t.EndedAt), t.DistanceKm, t.DurationMin, t.NightFraction,
		encoded[0], encoded[1], encoded[2], encoded[3], t.ID)
	if err != nil {
		return fmt.Errorf("update trip %s: %w", t.ID, err)
	}
	return expectOne(res, t.ID)
}

// LoadSamples returns a trip's samples in timestamp order.
func (s *SQLStore) LoadSamples(ctx context.Context, tripID string) ([]model.TelemetrySample, error) {
	defer s.observe("load_samples", time.Now())

	rows, err := s.db.QueryContext(ctx, s.q(`SELECT ts, lat, lon, speed_mps, heading_deg, hdop,
		ax, ay, az, screen_on FROM trip_samples WHERE trip_id = ? ORDER BY ts ASC`), tripID)
	if err != nil {
		return nil, fmt.Errorf("query samples of %s: %w", tripID, err)
	}
	defer rows.Close()

	var out []model.TelemetrySample
	for rows.Next() {
		var (
			smp           model.TelemetrySample
			ts            int64
			heading, hdop sql.NullFloat64
			ax, ay, az    sql.NullFloat64
			screenOn      sql.NullInt64
		)
		if err := rows.Scan(&ts, &smp.Lat, &smp.Lon, &smp.SpeedMPS, &heading, &hdop,
			&ax, &ay, &az, &screenOn); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		smp.TS = fromMillis(ts)
		smp.HeadingDeg = floatPtr(heading)
		smp.HDOP = floatPtr(hdop)
		if ax.Valid || ay.Valid || az.Valid {
			smp.Accel = &model.Accel{X: ax.Float64, Y: ay.Float64, Z: az.Float64}
		}
		smp.ScreenOn = boolPtr(screenOn)
		out = append(out, smp)
	}
	return out, rows.Err()
}

// GetTrip returns a trip by id.
func (s *SQLStore) GetTrip(ctx context.Context, tripID string) (model.Trip, error) {
	defer s.observe("get_trip", time.Now())

	t, err := scanTrip(s.db.QueryRowContext(ctx, s.q(`SELECT `+tripColumns+` FROM trips WHERE id = ?`), tripID))
	if err != nil {
		return model.Trip{}, notFound(err)
	}
	return t, nil
}

// CountTripsByStatus returns the number of trips per status.
func (s *SQLStore) CountTripsByStatus(ctx context.Context) (map[model.TripStatus]int, error) {
	defer s.observe("count_trips", time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM trips GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count trips: %w", err)
	}
	defer rows.Close()

	out := map[model.TripStatus]int{
		model.TripOpen:       0,
		model.TripFinalizing: 0,
		model.TripClosed:     0,
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan trip count: %w", err)
		}
		out[model.TripStatus(status)] = n
	}
	return out, rows.Err()
}

// expectOne maps an update that touched no row to ErrStatusConflict.
func expectOne(res sql.Result, tripID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrStatusConflict, tripID)
	}
	return nil
}
