package model

import "time"

// TripStatus is a state of the trip lifecycle.
type TripStatus string

// Trip lifecycle: open -> finalizing -> closed.
const (
	TripOpen       TripStatus = "open"
	TripFinalizing TripStatus = "finalizing"
	TripClosed     TripStatus = "closed"
)

// Trip is the aggregate root for one drive of one device.
type Trip struct {
	ID           string
	UserID       string
	DeviceID     string
	Status       TripStatus
	StartedAt    *time.Time
	EndedAt      *time.Time
	LastSampleAt *time.Time
	CreatedAt    time.Time
	FinalizingAt *time.Time
	ClosedAt     *time.Time

	DistanceKm    float64
	DurationMin   float64
	NightFraction float64
	Weather       TripWeather
	RoadMix       map[string]float64
	Quality       TripQuality
	Geometry      LineString
}

// Day returns the UTC calendar day the trip is attributed to.
func (t Trip) Day() string {
	switch {
	case t.StartedAt != nil:
		return t.StartedAt.UTC().Format(DayLayout)
	case t.LastSampleAt != nil:
		return t.LastSampleAt.UTC().Format(DayLayout)
	default:
		return t.CreatedAt.UTC().Format(DayLayout)
	}
}

// DayLayout formats calendar days.
const DayLayout = "2006-01-02"

// TripWeather records the weather lookup for the trip window.
type TripWeather struct {
	Conditions     []WeatherCondition `json:"conditions,omitempty"`
	PenaltyMinutes float64            `json:"penalty_minutes"`
	Available      bool               `json:"available"`
}

// WeatherCondition is one condition reported by a weather provider.
type WeatherCondition struct {
	Condition   string    `json:"condition"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// TripQuality summarises how trustworthy the trip's samples were.
type TripQuality struct {
	InsufficientData bool       `json:"insufficient_data"`
	Ratio            float64    `json:"ratio"`
	Confidence       Confidence `json:"confidence,omitempty"`
	SampleCount      int        `json:"sample_count"`
	MapMatched       bool       `json:"map_matched"`
}

// LineString is a GeoJSON LineString geometry.
type LineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}
