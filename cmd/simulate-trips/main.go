package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/drivescore/internal/simulator"
	"github.com/okian/drivescore/pkg/logger"
)

// Default configuration constants.
const (
	defaultDrivers        = 30
	defaultTripsPerDriver = 3
	defaultTripMinutes    = 15
	defaultTimeout        = 30 * time.Second
	defaultRunTimeout     = 30 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8080", "Base URL of the service")
		drivers     = flag.Int("drivers", defaultDrivers, "Number of simulated drivers")
		trips       = flag.Int("trips", defaultTripsPerDriver, "Trips per driver")
		tripMinutes = flag.Int("minutes", defaultTripMinutes, "Length of each trip in minutes")
		batchSize   = flag.Int("batch", simulator.DefaultBatchSize, "Samples per ingest request")
		workers     = flag.Int("workers", runtime.NumCPU(), "Number of concurrent uploaders")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed        = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Trip generation seed")
		verbose     = flag.Bool("verbose", false, "Log every uploaded trip")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	_, err := simulator.Run(ctx, simulator.Config{
		BaseURL:        *baseURL,
		Drivers:        *drivers,
		TripsPerDriver: *trips,
		TripMinutes:    *tripMinutes,
		BatchSize:      *batchSize,
		Workers:        *workers,
		Timeout:        *timeout,
		Seed:           *seed,
		Verbose:        *verbose,
		Logger:         logger.Named("simulator"),
	})
	if err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}
