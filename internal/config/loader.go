package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/drivescore/internal/adapters/repository"
)

const (
	envPrefix  = "DRIVESCORE_"
	envConfig  = envPrefix + "CONFIG"
	envNesting = "__"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if DRIVESCORE_CONFIG is set
//  3. env (prefix DRIVESCORE_)
func Load(_ context.Context) (*Config, error) {
	cfg := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// DRIVESCORE_TRIP_IDLE_MINUTES -> trip_idle_minutes,
	// DRIVESCORE_WEIGHTS__W_A -> weights.w_a
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, envNesting, ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The file path itself is not a setting.
	k.Delete("config")

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr", "must not be empty")
	case c.StorageDriver != repository.DriverSQLite && c.StorageDriver != repository.DriverPostgres:
		return invalid("storage_driver", "must be sqlite or postgres")
	case c.StorageDSN == "":
		return invalid("storage_dsn", "must not be empty")
	case !slices.Contains([]string{"none", "static"}, c.MapProvider):
		return invalid("map_provider", "must be none or static")
	case !slices.Contains([]string{"none", "static", "openweather"}, c.WeatherProvider):
		return invalid("weather_provider", "must be none, static or openweather")
	case c.WeatherProvider == "openweather" && c.OpenWeatherAPIKey == "":
		return invalid("openweather_api_key", "required by the openweather provider")
	case c.SmoothingWindow < 1:
		return invalid("smoothing_window", "must be at least 1")
	case c.ProviderTimeoutMS <= 0:
		return invalid("provider_timeout_ms", "must be positive")
	case c.TripIdleMinutes <= 0:
		return invalid("trip_idle_minutes", "must be positive")
	case c.FinalizingReclaimMinutes <= 0:
		return invalid("finalizing_reclaim_minutes", "must be positive")
	case c.FinalizeBatchLimit <= 0:
		return invalid("finalize_batch_limit", "must be positive")
	case c.MinTripDistanceKm < 0:
		return invalid("min_trip_distance_km", "must not be negative")
	case c.MinTripDurationMin < 0:
		return invalid("min_trip_duration_min", "must not be negative")
	case c.TrimMeters < 0:
		return invalid("trim_meters", "must not be negative")
	case c.Quality.MaxHDOP <= 0:
		return invalid("quality.max_hdop", "must be positive")
	case c.Quality.MinMapMatchConf < 0 || c.Quality.MinMapMatchConf > 1:
		return invalid("quality.min_map_match_conf", "must be within [0,1]")
	case c.Weights.Version == "":
		return invalid("weights.version", "must not be empty")
	case c.Weights.Alpha <= 0 || c.Weights.Alpha > 1:
		return invalid("weights.alpha", "must be within (0,1]")
	}
	for term, limit := range c.Weights.Caps {
		if limit < 0 {
			return invalid("weights.caps."+term, "must not be negative")
		}
	}
	return nil
}

func invalid(key, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, key, msg)
}
