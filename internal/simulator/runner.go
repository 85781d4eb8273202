package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/drivescore/pkg/logger"
	"gonum.org/v1/gonum/stat"
)

// Defaults applied by Run.
const (
	DefaultBatchSize = 120
	roundGap         = time.Hour
	maxFinalizeRuns  = 1000
)

type driver struct {
	index    int
	userID   string
	deviceID string
	profile  Profile
}

// Run generates trips for every driver, uploads them round by round with a
// finalize pass after each round, and collects the drivers' scores.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	log := cfg.Logger
	stats := &Stats{
		StartTime:      time.Now(),
		Scores:         map[string]DriverScore{},
		DriverProfiles: map[string]Profile{},
	}

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("drivers", cfg.Drivers),
		logger.Int("tripsPerDriver", cfg.TripsPerDriver),
		logger.Int("tripMinutes", cfg.TripMinutes),
		logger.Int("workers", cfg.Workers),
		logger.Time("start", cfg.Start),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	drivers := make([]driver, cfg.Drivers)
	for i := range drivers {
		drivers[i] = driver{
			index:    i,
			userID:   "sim-" + uuid.NewString(),
			deviceID: "dev-" + uuid.NewString(),
			profile:  Profiles[i%len(Profiles)],
		}
		stats.DriverProfiles[drivers[i].userID] = drivers[i].profile
	}

	span := time.Duration(cfg.TripMinutes)*time.Minute + roundGap
	for round := range cfg.TripsPerDriver {
		start := cfg.Start.Add(time.Duration(round) * span)
		if err := uploadRound(ctx, client, cfg, drivers, round, start, stats); err != nil {
			return nil, err
		}
		if err := finalizeAll(ctx, client, stats); err != nil {
			return nil, err
		}
		log.Info(ctx, "round completed",
			logger.Int("round", round),
			logger.Int("finalized", stats.Finalized),
			logger.Int("ingestFailures", stats.IngestFailures),
		)
	}

	for _, d := range drivers {
		score, err := client.DriverScore(ctx, d.userID)
		switch {
		case errors.Is(err, ErrUnexpectedStatus):
			// Drivers whose trips were all too short have no score.
			log.Warn(ctx, "no driver score", logger.String("userID", d.userID), logger.Error(err))
		case err != nil:
			return nil, fmt.Errorf("read score of %s: %w", d.userID, err)
		default:
			stats.Scores[d.userID] = score
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logSummary(ctx, log, drivers, stats)
	return stats, nil
}

func normalize(cfg *Config) error {
	switch {
	case cfg.BaseURL == "":
		return fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	case cfg.Drivers <= 0:
		return fmt.Errorf("%w: drivers must be positive", ErrInvalidConfig)
	case cfg.TripsPerDriver <= 0:
		return fmt.Errorf("%w: trips per driver must be positive", ErrInvalidConfig)
	case cfg.TripMinutes <= 0:
		return fmt.Errorf("%w: trip minutes must be positive", ErrInvalidConfig)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Start.IsZero() {
		// Every trip ends well before now, so it is idle on arrival.
		span := time.Duration(cfg.TripMinutes)*time.Minute + roundGap
		cfg.Start = time.Now().UTC().Add(-time.Duration(cfg.TripsPerDriver)*span - roundGap).Truncate(time.Second)
	}
	return nil
}

// uploadRound uploads one trip per driver using a worker pool.
func uploadRound(ctx context.Context, client *Client, cfg Config, drivers []driver, round int, start time.Time, stats *Stats) error {
	var (
		generated int64
		stored    int64
		failed    int64
	)

	driverCh := make(chan driver, cfg.Workers*2)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range driverCh {
				rng := rand.New(rand.NewPCG(cfg.Seed, uint64(d.index)<<20|uint64(round)))
				trip := GenerateTrip(rng, d.profile, start, cfg.TripMinutes)
				atomic.AddInt64(&generated, int64(len(trip.Samples)))

				n, err := uploadTrip(ctx, client, d, trip, cfg.BatchSize)
				atomic.AddInt64(&stored, int64(n))
				if err != nil {
					atomic.AddInt64(&failed, 1)
					cfg.Logger.Warn(ctx, "trip upload failed",
						logger.String("userID", d.userID),
						logger.Error(err),
					)
					continue
				}
				if cfg.Verbose {
					cfg.Logger.Info(ctx, "trip uploaded",
						logger.String("userID", d.userID),
						logger.String("profile", string(d.profile)),
						logger.Int("samples", len(trip.Samples)),
					)
				}
			}
		}()
	}

	go func() {
		defer close(driverCh)
		for _, d := range drivers {
			select {
			case <-ctx.Done():
				return
			case driverCh <- d:
			}
		}
	}()
	wg.Wait()

	stats.TripsGenerated += len(drivers)
	stats.SamplesGenerated += int(generated)
	stats.SamplesStored += int(stored)
	stats.IngestFailures += int(failed)
	return ctx.Err()
}

// uploadTrip sends a trip in order, batch by batch. It returns the number of
// samples the service stored.
func uploadTrip(ctx context.Context, client *Client, d driver, trip Trip, batchSize int) (int, error) {
	stored := 0
	for _, batch := range Batches(trip.Samples, batchSize) {
		res, err := client.Ingest(ctx, IngestRequest{UserID: d.userID, DeviceID: d.deviceID, Samples: batch})
		if err != nil {
			return stored, err
		}
		stored += res.SamplesIngested
	}
	return stored, nil
}

// finalizeAll runs finalize until a run closes nothing.
func finalizeAll(ctx context.Context, client *Client, stats *Stats) error {
	for range maxFinalizeRuns {
		res, err := client.Finalize(ctx)
		if err != nil {
			return fmt.Errorf("finalize: %w", err)
		}
		stats.Finalized += res.Finalized
		stats.FinalizeErrors += len(res.Errors)
		if res.Finalized == 0 {
			return nil
		}
	}
	return nil
}

func logSummary(ctx context.Context, log logger.Logger, drivers []driver, stats *Stats) {
	byProfile := map[Profile][]float64{}
	for _, d := range drivers {
		if s, ok := stats.Scores[d.userID]; ok {
			byProfile[d.profile] = append(byProfile[d.profile], float64(s.RDS))
		}
	}
	for _, p := range Profiles {
		rds := byProfile[p]
		if len(rds) == 0 {
			continue
		}
		mean, std := stat.MeanStdDev(rds, nil)
		log.Info(ctx, "profile scores",
			logger.String("profile", string(p)),
			logger.Int("drivers", len(rds)),
			logger.Float64("meanRDS", mean),
			logger.Float64("stdDevRDS", std),
		)
	}
	log.Info(ctx, "final statistics",
		logger.Int("tripsGenerated", stats.TripsGenerated),
		logger.Int("samplesGenerated", stats.SamplesGenerated),
		logger.Int("samplesStored", stats.SamplesStored),
		logger.Int("ingestFailures", stats.IngestFailures),
		logger.Int("finalized", stats.Finalized),
		logger.Int("finalizeErrors", stats.FinalizeErrors),
		logger.Int("scoredDrivers", len(stats.Scores)),
		logger.Duration("duration", stats.Duration),
	)
}
