package mapmatch

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/drivescore/internal/domain/model"
)

// Enrich returns a copy of samples with road class, match confidence and
// speed limits filled in. Limits returned with the match are used as is;
// the others are looked up with SpeedLimit at the matched position. Each
// provider call gets its own timeout. After the first failed lookup no
// further lookups are made, and the error is returned with the samples
// enriched so far, so callers can continue with partial data.
func Enrich(ctx context.Context, p Provider, samples []model.ProcessedSample, timeout time.Duration) ([]model.ProcessedSample, error) {
	out := make([]model.ProcessedSample, len(samples))
	copy(out, samples)
	if len(out) == 0 {
		return out, nil
	}

	points := make([]Point, len(out))
	for i := range out {
		points[i] = Point{Lat: out[i].Lat, Lon: out[i].Lon, TS: out[i].TS}
	}

	results, err := call(ctx, timeout, func(ctx context.Context) ([]MatchResult, error) {
		return p.MatchToRoads(ctx, points)
	})
	if err != nil {
		return out, fmt.Errorf("match to roads: %w", err)
	}
	if len(results) != len(out) {
		return out, fmt.Errorf("%w: got %d for %d points", ErrResultCountMismatch, len(results), len(out))
	}

	var lookupErr error
	for i, r := range results {
		if !r.Matched {
			continue
		}
		conf := r.Confidence
		out[i].RoadClass = r.RoadClass
		out[i].MapMatchConf = &conf

		if r.SpeedLimitMPS != nil {
			limit := *r.SpeedLimitMPS
			out[i].SpeedLimitMPS = &limit
			continue
		}
		if lookupErr != nil {
			continue
		}
		limit, err := call(ctx, timeout, func(ctx context.Context) (*float64, error) {
			return p.SpeedLimit(ctx, r.Lat, r.Lon)
		})
		if err != nil {
			lookupErr = fmt.Errorf("speed limit: %w", err)
			continue
		}
		out[i].SpeedLimitMPS = limit
	}
	return out, lookupErr
}

func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}
