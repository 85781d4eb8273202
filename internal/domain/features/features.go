// Package features turns detected events and trip context into the
// normalized feature vector consumed by the scorer.
package features

import (
	"time"

	"github.com/okian/drivescore/internal/domain/model"
	"github.com/okian/drivescore/internal/domain/quality"
)

// UnknownRoadClass labels samples the map provider could not match.
const UnknownRoadClass = "unknown"

const (
	nightStartHour = 22
	nightEndHour   = 5
)

// TripContext carries the trip-level inputs of feature extraction.
type TripContext struct {
	TripID            string
	DistanceKm        float64
	TripMinutes       float64
	NightFraction     float64
	WeatherPenaltyMin float64
}

// Per100Km normalizes an event count by distance. Non-positive distances
// yield 0.
func Per100Km(count int, distanceKm float64) float64 {
	if distanceKm <= 0 {
		return 0
	}
	return float64(count) / distanceKm * 100
}

// DurationMinutes sums the durations of events of type t, in minutes.
// Events without an end time contribute nothing.
func DurationMinutes(events []model.DetectedEvent, t model.EventType) float64 {
	var total time.Duration
	for _, ev := range events {
		if ev.Type != t {
			continue
		}
		if d, ok := ev.Duration(); ok {
			total += d
		}
	}
	return total.Minutes()
}

// Extract builds the feature vector of a trip.
func Extract(events []model.DetectedEvent, ctx TripContext) model.TripFeatures {
	counts := make(map[model.EventType]int, len(model.EventTypes))
	for _, ev := range events {
		counts[ev.Type]++
	}
	return model.TripFeatures{
		TripID:              ctx.TripID,
		HarshBrakePer100Km:  Per100Km(counts[model.EventHarshBrake], ctx.DistanceKm),
		HarshAccelPer100Km:  Per100Km(counts[model.EventHarshAccel], ctx.DistanceKm),
		HarshCornerPer100Km: Per100Km(counts[model.EventHarshCorner], ctx.DistanceKm),
		Speeding5Min:        DurationMinutes(events, model.EventSpeeding5),
		Speeding10Min:       DurationMinutes(events, model.EventSpeeding10),
		Speeding20Min:       DurationMinutes(events, model.EventSpeeding20),
		DistractionMin:      DurationMinutes(events, model.EventDistraction),
		NightFraction:       ctx.NightFraction,
		TripMinutes:         ctx.TripMinutes,
		DistanceKm:          ctx.DistanceKm,
		WeatherPenaltyMin:   ctx.WeatherPenaltyMin,
	}
}

// NightFraction returns the share of driving time spent at night. Time is
// accumulated per consecutive sample pair and a pair counts as night when
// its earlier sample falls in [22:00, 05:00) UTC.
func NightFraction(samples []model.ProcessedSample) float64 {
	var total, night time.Duration
	for i := 1; i < len(samples); i++ {
		dt := samples[i].TS.Sub(samples[i-1].TS)
		if dt <= 0 {
			continue
		}
		total += dt
		if isNight(samples[i-1].TS) {
			night += dt
		}
	}
	if total == 0 {
		return 0
	}
	return night.Minutes() / total.Minutes()
}

func isNight(ts time.Time) bool {
	h := ts.UTC().Hour()
	return h >= nightStartHour || h < nightEndHour
}

// RoadMix returns the proportion of samples on each road class.
func RoadMix(samples []model.ProcessedSample) map[string]float64 {
	mix := make(map[string]float64)
	if len(samples) == 0 {
		return mix
	}
	for i := range samples {
		class := samples[i].RoadClass
		if class == "" {
			class = UnknownRoadClass
		}
		mix[class]++
	}
	n := float64(len(samples))
	for class, c := range mix {
		mix[class] = c / n
	}
	return mix
}

// QualityRatio is the positional quality ratio of a trip.
func QualityRatio(samples []model.ProcessedSample, g quality.Gates) float64 {
	return quality.Ratio(samples, g)
}
