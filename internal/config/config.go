// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Durations are plain integers with the unit in the key name.
//   - Nested keys map to env vars with a double underscore,
//     e.g. DRIVESCORE_QUALITY__MAX_HDOP.
package config

import (
	"time"

	"github.com/okian/drivescore/internal/adapters/repository"
	"github.com/okian/drivescore/internal/domain/model"
	"github.com/okian/drivescore/internal/domain/quality"
	"github.com/okian/drivescore/internal/domain/scoring"
	"github.com/okian/drivescore/internal/domain/signal"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the text or json log handler.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StorageDriver is sqlite or postgres; StorageDSN is passed to it as is.
	StorageDriver string `koanf:"storage_driver"`
	StorageDSN    string `koanf:"storage_dsn"`

	// AutoMigrate applies pending migrations on serve.
	AutoMigrate bool `koanf:"auto_migrate"`

	Quality         quality.Gates `koanf:"quality"`
	SmoothingWindow int           `koanf:"smoothing_window"`

	// MapProvider is none or static.
	MapProvider         string  `koanf:"map_provider"`
	StaticRoadClass     string  `koanf:"static_road_class"`
	StaticSpeedLimitMPS float64 `koanf:"static_speed_limit_mps"`
	SpeedLimitCacheTTLS int     `koanf:"speed_limit_cache_ttl_s"`

	// WeatherProvider is none, static or openweather.
	WeatherProvider        string `koanf:"weather_provider"`
	StaticWeatherCondition string `koanf:"static_weather_condition"`
	OpenWeatherAPIKey      string `koanf:"openweather_api_key"`
	OpenWeatherEndpoint    string `koanf:"openweather_endpoint"`

	// ProviderTimeoutMS bounds each map and weather call.
	ProviderTimeoutMS int `koanf:"provider_timeout_ms"`

	TripIdleMinutes          int     `koanf:"trip_idle_minutes"`
	FinalizingReclaimMinutes int     `koanf:"finalizing_reclaim_minutes"`
	FinalizeBatchLimit       int     `koanf:"finalize_batch_limit"`
	MinTripDistanceKm        float64 `koanf:"min_trip_distance_km"`
	MinTripDurationMin       float64 `koanf:"min_trip_duration_min"`
	TrimMeters               float64 `koanf:"trim_meters"`
	GeometryEpsilonDeg       float64 `koanf:"geometry_epsilon_deg"`

	// Weights seeds the active weight set when the store has none.
	Weights model.ScoreWeights `koanf:"weights"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":8080",
		StorageDriver:            repository.DriverSQLite,
		StorageDSN:               "drivescore.db",
		AutoMigrate:              true,
		Quality:                  quality.DefaultGates(),
		SmoothingWindow:          signal.DefaultWindow,
		MapProvider:              "none",
		StaticRoadClass:          "primary",
		SpeedLimitCacheTTLS:      3600,
		WeatherProvider:          "none",
		ProviderTimeoutMS:        3000,
		TripIdleMinutes:          15,
		FinalizingReclaimMinutes: 30,
		FinalizeBatchLimit:       100,
		MinTripDistanceKm:        2,
		MinTripDurationMin:       5,
		TrimMeters:               200,
		GeometryEpsilonDeg:       signal.DefaultSimplifyEpsilon,
		Weights:                  scoring.DefaultWeights(),
	}
}

// ProviderTimeout returns ProviderTimeoutMS as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutMS) * time.Millisecond
}

// SpeedLimitCacheTTL returns SpeedLimitCacheTTLS as a duration.
func (c *Config) SpeedLimitCacheTTL() time.Duration {
	return time.Duration(c.SpeedLimitCacheTTLS) * time.Second
}

// TripIdle returns TripIdleMinutes as a duration.
func (c *Config) TripIdle() time.Duration {
	return time.Duration(c.TripIdleMinutes) * time.Minute
}

// FinalizingReclaim returns FinalizingReclaimMinutes as a duration.
func (c *Config) FinalizingReclaim() time.Duration {
	return time.Duration(c.FinalizingReclaimMinutes) * time.Minute
}

// MinTripDuration returns MinTripDurationMin as a duration.
func (c *Config) MinTripDuration() time.Duration {
	return time.Duration(c.MinTripDurationMin * float64(time.Minute))
}
