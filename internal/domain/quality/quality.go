// Package quality decides whether a sample is trustworthy enough to be used
// for event detection.
package quality

import "github.com/okian/drivescore/internal/domain/model"

// Default gate thresholds.
const (
	DefaultMinMapMatchConf = 0.6
	DefaultMaxHDOP         = 1.5
	DefaultMinSpeedKmh     = 10

	mpsToKmh = 3.6
)

// Gates configures the per-sample trust filter.
type Gates struct {
	MinMapMatchConf float64 `koanf:"min_map_match_conf"`
	MaxHDOP         float64 `koanf:"max_hdop"`
	MinSpeedKmh     float64 `koanf:"min_speed_kmh"`
}

// DefaultGates returns the production gate thresholds.
func DefaultGates() Gates {
	return Gates{
		MinMapMatchConf: DefaultMinMapMatchConf,
		MaxHDOP:         DefaultMaxHDOP,
		MinSpeedKmh:     DefaultMinSpeedKmh,
	}
}

// Passes reports whether s may be used for detection. Optional fields that
// are absent never fail the gate.
func Passes(s *model.ProcessedSample, g Gates) bool {
	if s.SpeedMPS*mpsToKmh < g.MinSpeedKmh {
		return false
	}
	return PositionTrusted(s, g)
}

// PositionTrusted is the positional part of the gate: HDOP and map-match
// confidence only, without the motion check.
func PositionTrusted(s *model.ProcessedSample, g Gates) bool {
	if s.HDOP != nil && *s.HDOP > g.MaxHDOP {
		return false
	}
	if s.MapMatchConf != nil && *s.MapMatchConf < g.MinMapMatchConf {
		return false
	}
	return true
}

// Ratio returns the fraction of samples whose position is trusted.
func Ratio(samples []model.ProcessedSample, g Gates) float64 {
	if len(samples) == 0 {
		return 0
	}
	passed := 0
	for i := range samples {
		if PositionTrusted(&samples[i], g) {
			passed++
		}
	}
	return float64(passed) / float64(len(samples))
}
