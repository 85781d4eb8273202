package main

import (
	"context"
	"fmt"

	"github.com/okian/drivescore/internal/adapters/mapmatch"
	"github.com/okian/drivescore/internal/adapters/repository"
	"github.com/okian/drivescore/internal/adapters/weather"
	service "github.com/okian/drivescore/internal/app"
	"github.com/okian/drivescore/internal/config"
	"github.com/okian/drivescore/pkg/logger"
)

// openStore opens the configured database.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (*repository.SQLStore, error) {
	store, err := repository.Open(ctx, cfg.StorageDriver, cfg.StorageDSN,
		repository.WithLogger(log.Named("repository")),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageDriver, err)
	}
	return store, nil
}

// newProviders builds the enrichment providers selected by cfg. Selection
// happens here only; the service never inspects configuration.
func newProviders(cfg *config.Config) (mapmatch.Provider, weather.Provider, error) {
	mp, err := mapmatch.New(mapmatch.Config{
		Provider:      cfg.MapProvider,
		RoadClass:     cfg.StaticRoadClass,
		SpeedLimitMPS: cfg.StaticSpeedLimitMPS,
		CacheTTL:      cfg.SpeedLimitCacheTTL(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("map provider: %w", err)
	}
	wp, err := weather.New(weather.Config{
		Provider:        cfg.WeatherProvider,
		StaticCondition: cfg.StaticWeatherCondition,
		APIKey:          cfg.OpenWeatherAPIKey,
		Endpoint:        cfg.OpenWeatherEndpoint,
		Timeout:         cfg.ProviderTimeout(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("weather provider: %w", err)
	}
	return mp, wp, nil
}

// serviceOptions translates cfg into service options.
func serviceOptions(cfg *config.Config, log logger.Logger, mp mapmatch.Provider, wp weather.Provider) []service.Option {
	return []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithMapProvider(mp),
		service.WithWeatherProvider(wp),
		service.WithGates(cfg.Quality),
		service.WithWeights(cfg.Weights),
		service.WithSmoothingWindow(cfg.SmoothingWindow),
		service.WithProviderTimeout(cfg.ProviderTimeout()),
		service.WithTripIdle(cfg.TripIdle()),
		service.WithFinalizingReclaim(cfg.FinalizingReclaim()),
		service.WithBatchLimit(cfg.FinalizeBatchLimit),
		service.WithMinTrip(cfg.MinTripDistanceKm, cfg.MinTripDuration()),
		service.WithTrimMeters(cfg.TrimMeters),
		service.WithGeometryEpsilon(cfg.GeometryEpsilonDeg),
	}
}

// startService opens storage, optionally migrates it and starts the
// service. The caller must Stop the returned service, which also closes the
// store.
func startService(ctx context.Context, cfg *config.Config, log logger.Logger, migrate bool) (*service.Service, error) {
	mp, wp, err := newProviders(cfg)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := store.MigrateUp(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	svc := service.New(store, serviceOptions(cfg, log, mp, wp)...)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("start service: %w", err)
	}
	return svc, nil
}
