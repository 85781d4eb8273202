package model

import "time"

// Confidence grades the positional quality of a trip.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// TripFeatures is the normalized per-trip feature vector.
type TripFeatures struct {
	TripID              string  `json:"trip_id"`
	HarshBrakePer100Km  float64 `json:"harsh_brake_per_100km"`
	HarshAccelPer100Km  float64 `json:"harsh_accel_per_100km"`
	HarshCornerPer100Km float64 `json:"harsh_corner_per_100km"`
	Speeding5Min        float64 `json:"speeding_5_min"`
	Speeding10Min       float64 `json:"speeding_10_min"`
	Speeding20Min       float64 `json:"speeding_20_min"`
	DistractionMin      float64 `json:"distraction_min"`
	NightFraction       float64 `json:"night_fraction"`
	TripMinutes         float64 `json:"trip_minutes"`
	DistanceKm          float64 `json:"distance_km"`
	WeatherPenaltyMin   float64 `json:"weather_penalty_min"`
}

// ScoreWeights is a versioned scoring configuration. A loaded value is
// never mutated; every score records the version that produced it.
type ScoreWeights struct {
	Version string             `koanf:"version" json:"version"`
	WA      float64            `koanf:"w_a" json:"w_a"` // harsh brake per 100 km
	WB      float64            `koanf:"w_b" json:"w_b"` // harsh accel per 100 km
	WC      float64            `koanf:"w_c" json:"w_c"` // harsh corner per 100 km
	WD      float64            `koanf:"w_d" json:"w_d"` // speeding_5 minutes
	WE      float64            `koanf:"w_e" json:"w_e"` // speeding_10 minutes
	WF      float64            `koanf:"w_f" json:"w_f"` // speeding_20 minutes
	WG      float64            `koanf:"w_g" json:"w_g"` // distraction minutes
	WN      float64            `koanf:"w_n" json:"w_n"` // night minutes
	WW      float64            `koanf:"w_w" json:"w_w"` // weather penalty minutes
	Alpha   float64            `koanf:"alpha" json:"alpha"`
	Caps    map[string]float64 `koanf:"caps" json:"caps,omitempty"`
}

// TermBreakdown is the deduction detail of one scoring term.
type TermBreakdown struct {
	Term    string   `json:"term"`
	Feature float64  `json:"feature"`
	Weight  float64  `json:"weight"`
	Raw     float64  `json:"raw"`
	Cap     *float64 `json:"cap,omitempty"`
	Capped  float64  `json:"capped"`
}

// ScoreBreakdown is the full audit trail of a TSS computation.
type ScoreBreakdown struct {
	Base           float64         `json:"base"`
	Terms          []TermBreakdown `json:"terms"`
	TotalDeduction float64         `json:"total_deduction"`
	RawScore       float64         `json:"raw_score"`
	ClampedScore   int             `json:"clamped_score"`
	Confidence     Confidence      `json:"confidence"`
	WeightsVersion string          `json:"weights_version"`
}

// TripScore is the persisted score of one trip.
type TripScore struct {
	TripID         string
	UserID         string
	Day            string
	TSS            int
	Confidence     Confidence
	DistanceKm     float64
	WeightsVersion string
	Breakdown      ScoreBreakdown
	CreatedAt      time.Time
}

// DriverScoreDaily is a user's rolling driver score for one calendar day.
type DriverScoreDaily struct {
	UserID          string    `json:"user_id"`
	Day             string    `json:"day"`
	RDS             int       `json:"rds"`
	TripsCount      int       `json:"trips_count"`
	TotalDistanceKm float64   `json:"total_distance_km"`
	UpdatedAt       time.Time `json:"updated_at"`
}
