// Package weather defines the historical weather contract and the penalty
// applied to trips driven in bad conditions.
package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/drivescore/internal/domain/model"
)

// Provider names accepted by New.
const (
	ProviderNone        = "none"
	ProviderStatic      = "static"
	ProviderOpenWeather = "openweather"
)

// Normalized condition names.
const (
	ConditionRain = "rain"
	ConditionSnow = "snow"
	ConditionIce  = "ice"
	ConditionFog  = "fog"
)

// Penalty factors per trip minute.
var penaltyFactors = map[string]float64{
	ConditionRain: 0.5,
	ConditionSnow: 1.0,
	ConditionIce:  1.0,
	ConditionFog:  0.3,
}

// Query asks for the weather at a place over a time range.
type Query struct {
	Lat   float64
	Lon   float64
	Start time.Time
	End   time.Time
}

// Provider returns the adverse conditions observed during a query window.
type Provider interface {
	HistoricalWeather(ctx context.Context, q Query) ([]model.WeatherCondition, error)
}

// PenaltyMinutes weights the trip duration by every returned condition and
// sums the results. A trip with both rain and fog is penalized for both.
func PenaltyMinutes(conditions []model.WeatherCondition, tripMinutes float64) float64 {
	var total float64
	for _, c := range conditions {
		total += penaltyFactors[c.Condition] * tripMinutes
	}
	return total
}

// None is the provider used when no weather source is configured.
type None struct{}

// HistoricalWeather always fails with ErrNotImplemented.
func (None) HistoricalWeather(context.Context, Query) ([]model.WeatherCondition, error) {
	return nil, ErrNotImplemented
}

// Static reports one fixed condition for every query. An empty condition
// reports clear weather.
type Static struct {
	Condition string
}

// HistoricalWeather returns the configured condition over the whole window.
func (s Static) HistoricalWeather(ctx context.Context, q Query) ([]model.WeatherCondition, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("static weather: %w", err)
	}
	if s.Condition == "" {
		return nil, nil
	}
	return []model.WeatherCondition{{
		Condition:   s.Condition,
		Description: s.Condition,
		Start:       q.Start,
		End:         q.End,
	}}, nil
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider        string
	StaticCondition string
	APIKey          string
	Endpoint        string
	Timeout         time.Duration
}

// New builds the provider named by cfg.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", ProviderNone:
		return None{}, nil
	case ProviderStatic:
		return Static{Condition: cfg.StaticCondition}, nil
	case ProviderOpenWeather:
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		opts := []OpenWeatherOption{WithAPIKey(cfg.APIKey)}
		if cfg.Endpoint != "" {
			opts = append(opts, WithEndpoint(cfg.Endpoint))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithRequestTimeout(cfg.Timeout))
		}
		return NewOpenWeather(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
