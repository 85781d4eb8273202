// Package scoring computes trip safety scores and the rolling driver score.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/drivescore/internal/domain/model"
)

// Score bounds and defaults.
const (
	BaseScore            = 1000.0
	MinScore             = 300.0
	MaxScore             = 1000.0
	ColdStartRDS         = 760.0
	HighConfidenceRatio  = 0.7
	LowConfidenceDamping = 0.5
	DefaultAlpha         = 0.15
	DefaultWeightVersion = "v1"
)

// Term names, in breakdown order.
const (
	TermBrake       = "brake"
	TermAccel       = "accel"
	TermCorner      = "corner"
	TermSpeeding5   = "speeding_5"
	TermSpeeding10  = "speeding_10"
	TermSpeeding20  = "speeding_20"
	TermDistraction = "distraction"
	TermNight       = "night"
	TermWeather     = "weather"
)

// Terms lists every scoring term in breakdown order.
var Terms = []string{
	TermBrake, TermAccel, TermCorner,
	TermSpeeding5, TermSpeeding10, TermSpeeding20,
	TermDistraction, TermNight, TermWeather,
}

// DefaultWeights returns the built-in weight set.
func DefaultWeights() model.ScoreWeights {
	return model.ScoreWeights{
		Version: DefaultWeightVersion,
		WA:      8,
		WB:      5,
		WC:      6,
		WD:      2,
		WE:      4,
		WF:      8,
		WG:      10,
		WN:      0.5,
		WW:      0.5,
		Alpha:   DefaultAlpha,
		Caps: map[string]float64{
			TermBrake:       200,
			TermAccel:       150,
			TermCorner:      150,
			TermDistraction: 250,
			TermNight:       60,
			TermWeather:     60,
		},
	}
}

// DetermineConfidence grades a quality ratio.
func DetermineConfidence(qualityRatio float64) model.Confidence {
	if qualityRatio >= HighConfidenceRatio {
		return model.ConfidenceHigh
	}
	return model.ConfidenceLow
}

// CalculateTSS computes the trip safety score and its breakdown. Low
// confidence halves every weight before caps apply.
func CalculateTSS(f model.TripFeatures, w model.ScoreWeights, c model.Confidence) model.ScoreBreakdown {
	multiplier := 1.0
	if c == model.ConfidenceLow {
		multiplier = LowConfidenceDamping
	}

	// The float64 conversions around products force rounding and stop the
	// compiler from fusing multiply-add, so scores match on every platform.
	inputs := []struct {
		term    string
		feature float64
		weight  float64
	}{
		{TermBrake, f.HarshBrakePer100Km, w.WA},
		{TermAccel, f.HarshAccelPer100Km, w.WB},
		{TermCorner, f.HarshCornerPer100Km, w.WC},
		{TermSpeeding5, f.Speeding5Min, w.WD},
		{TermSpeeding10, f.Speeding10Min, w.WE},
		{TermSpeeding20, f.Speeding20Min, w.WF},
		{TermDistraction, f.DistractionMin, w.WG},
		{TermNight, float64(f.NightFraction * f.TripMinutes), w.WN},
		{TermWeather, f.WeatherPenaltyMin, w.WW},
	}

	b := model.ScoreBreakdown{
		Base:           BaseScore,
		Terms:          make([]model.TermBreakdown, 0, len(inputs)),
		Confidence:     c,
		WeightsVersion: w.Version,
	}
	for _, in := range inputs {
		weight := float64(in.weight * multiplier)
		raw := float64(in.feature * weight)
		tb := model.TermBreakdown{
			Term:    in.term,
			Feature: in.feature,
			Weight:  weight,
			Raw:     raw,
			Capped:  raw,
		}
		if limit, ok := w.Caps[in.term]; ok {
			tb.Cap = &limit
			tb.Capped = math.Min(raw, limit)
		}
		b.TotalDeduction += tb.Capped
		b.Terms = append(b.Terms, tb)
	}
	b.RawScore = BaseScore - b.TotalDeduction
	b.ClampedScore = clampRound(b.RawScore)
	return b
}

// UpdateDailyRDS blends the day's trip scores into the previous rolling
// score. Trips are weighted by distance, falling back to a plain mean when
// no distance was recorded. A nil prev starts from ColdStartRDS.
func UpdateDailyRDS(prev *float64, scores, distances []float64, alpha float64) int {
	start := ColdStartRDS
	if prev != nil {
		start = *prev
	}
	if len(scores) == 0 {
		return clampRound(start)
	}

	// Products are wrapped in float64 for the same reason as in CalculateTSS.
	var sum, weighted, total float64
	for i, s := range scores {
		sum += s
		if i < len(distances) && distances[i] > 0 {
			weighted += float64(s * distances[i])
			total += distances[i]
		}
	}
	mean := sum / float64(len(scores))
	if total > 0 {
		mean = weighted / total
	}

	blended := float64(alpha*mean) + float64((1-alpha)*start)
	return clampRound(blended)
}

// UpdateRDSWithSingleTrip applies one trip to the rolling score.
func UpdateRDSWithSingleTrip(prev *float64, score, distanceKm, alpha float64) int {
	return UpdateDailyRDS(prev, []float64{score}, []float64{distanceKm}, alpha)
}

func clampRound(v float64) int {
	return int(math.Round(math.Max(MinScore, math.Min(MaxScore, v))))
}

// Input is everything a Scorer needs for one trip.
type Input struct {
	TripID       string
	Features     model.TripFeatures
	QualityRatio float64
}

// Result is a scored trip.
type Result struct {
	TripID     string
	Confidence model.Confidence
	Breakdown  model.ScoreBreakdown
}

// Scorer computes a trip score from its features.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// WeightedScorer implements Scorer with the weighted deduction model.
type WeightedScorer struct {
	weights model.ScoreWeights
}

// NewWeightedScorer creates a scorer with the default weights.
func NewWeightedScorer(opts ...Option) *WeightedScorer {
	s := &WeightedScorer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the weight set in use.
func (s *WeightedScorer) Weights() model.ScoreWeights {
	return s.weights
}

// Score computes the trip score for the given input.
func (s *WeightedScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	c := DetermineConfidence(in.QualityRatio)
	return Result{
		TripID:     in.TripID,
		Confidence: c,
		Breakdown:  CalculateTSS(in.Features, s.weights, c),
	}, nil
}
