package detect

import "time"

// Detection thresholds.
const (
	HarshBrakeMPS2        = -3.5
	HarshAccelMPS2        = 3.0
	HarshCornerG          = 0.35
	HarshCornerMotorwayG  = 0.40
	accelSeverityRange    = 3.0
	distractionFullSecond = 60.0

	HarshBrakeMinDuration  = 300 * time.Millisecond
	HarshAccelMinDuration  = 300 * time.Millisecond
	HarshCornerMinDuration = 400 * time.Millisecond
	SpeedingMinDuration    = 10 * time.Second
	DebounceGap            = 500 * time.Millisecond

	roadClassMotorway = "motorway"
)

// SpeedingBucketsMph are the speeding tiers, in mph over the limit.
var SpeedingBucketsMph = []float64{5, 10, 20}

// Thresholds configures a Detector.
type Thresholds struct {
	HarshBrakeMPS2       float64
	HarshAccelMPS2       float64
	HarshCornerG         float64
	HarshCornerMotorwayG float64
	SpeedingBucketsMph   []float64

	HarshBrakeMinDuration  time.Duration
	HarshAccelMinDuration  time.Duration
	HarshCornerMinDuration time.Duration
	SpeedingMinDuration    time.Duration
	DebounceGap            time.Duration
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HarshBrakeMPS2:         HarshBrakeMPS2,
		HarshAccelMPS2:         HarshAccelMPS2,
		HarshCornerG:           HarshCornerG,
		HarshCornerMotorwayG:   HarshCornerMotorwayG,
		SpeedingBucketsMph:     append([]float64(nil), SpeedingBucketsMph...),
		HarshBrakeMinDuration:  HarshBrakeMinDuration,
		HarshAccelMinDuration:  HarshAccelMinDuration,
		HarshCornerMinDuration: HarshCornerMinDuration,
		SpeedingMinDuration:    SpeedingMinDuration,
		DebounceGap:            DebounceGap,
	}
}
