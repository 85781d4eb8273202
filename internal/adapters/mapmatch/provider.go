// Package mapmatch defines the map provider contract used to attach road
// class, match confidence and speed limits to trip samples.
package mapmatch

import (
	"context"
	"fmt"
	"time"
)

// Provider names accepted by New.
const (
	ProviderNone   = "none"
	ProviderStatic = "static"
)

// Point is one position submitted for matching.
type Point struct {
	Lat float64
	Lon float64
	TS  time.Time
}

// MatchResult is the match of a single point. Results are positional: the
// i-th result belongs to the i-th point. Lat and Lon are the matched
// position. SpeedLimitMPS is set when the provider knows the limit without
// a separate lookup.
type MatchResult struct {
	Matched       bool
	Lat           float64
	Lon           float64
	RoadClass     string
	Confidence    float64
	SpeedLimitMPS *float64
}

// Provider resolves positions against a road network.
type Provider interface {
	// MatchToRoads matches points to roads.
	MatchToRoads(ctx context.Context, points []Point) ([]MatchResult, error)
	// SpeedLimit returns the posted limit in m/s at a position, or nil when
	// unknown.
	SpeedLimit(ctx context.Context, lat, lon float64) (*float64, error)
}

// None is the provider used when no road data is configured.
type None struct{}

// MatchToRoads always fails with ErrNotImplemented.
func (None) MatchToRoads(context.Context, []Point) ([]MatchResult, error) {
	return nil, ErrNotImplemented
}

// SpeedLimit always fails with ErrNotImplemented.
func (None) SpeedLimit(context.Context, float64, float64) (*float64, error) {
	return nil, ErrNotImplemented
}

// Static matches every point to one road class and speed limit.
type Static struct {
	RoadClass     string
	SpeedLimitMPS float64
	Confidence    float64
}

// MatchToRoads matches every point in place to the configured road class
// and limit.
func (s Static) MatchToRoads(ctx context.Context, points []Point) ([]MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("static match: %w", err)
	}
	out := make([]MatchResult, len(points))
	for i, pt := range points {
		out[i] = MatchResult{
			Matched:    true,
			Lat:        pt.Lat,
			Lon:        pt.Lon,
			RoadClass:  s.RoadClass,
			Confidence: s.Confidence,
		}
		if s.SpeedLimitMPS > 0 {
			out[i].SpeedLimitMPS = &s.SpeedLimitMPS
		}
	}
	return out, nil
}

// SpeedLimit returns the configured limit, or nil when it is not positive.
func (s Static) SpeedLimit(ctx context.Context, _, _ float64) (*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("static speed limit: %w", err)
	}
	if s.SpeedLimitMPS <= 0 {
		return nil, nil
	}
	v := s.SpeedLimitMPS
	return &v, nil
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider      string
	RoadClass     string
	SpeedLimitMPS float64
	CacheTTL      time.Duration
}

// New builds the provider named by cfg. A positive CacheTTL wraps it in a
// speed limit cache.
func New(cfg Config) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case "", ProviderNone:
		return None{}, nil
	case ProviderStatic:
		p = Static{RoadClass: cfg.RoadClass, SpeedLimitMPS: cfg.SpeedLimitMPS, Confidence: 1}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if cfg.CacheTTL > 0 {
		p = NewCached(p, cfg.CacheTTL)
	}
	return p, nil
}
