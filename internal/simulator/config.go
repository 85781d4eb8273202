// Package simulator generates synthetic trips and drives them through the
// HTTP API: ingest, finalize, then driver score reads.
package simulator

import (
	"time"

	"github.com/okian/drivescore/pkg/logger"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Drivers        int           // Number of simulated drivers
	TripsPerDriver int           // Trips per driver; one finalize pass runs per round
	TripMinutes    int           // Length of each trip
	BatchSize      int           // Samples per ingest request
	Workers        int           // Number of concurrent uploaders
	Timeout        time.Duration // HTTP request timeout
	Start          time.Time     // Start of the first round; trips must be idle to finalize
	Seed           uint64        // Seed for trip generation
	Verbose        bool          // Log every trip
	Logger         logger.Logger // Run log; nil discards it
}

// Stats holds run statistics.
type Stats struct {
	TripsGenerated   int
	SamplesGenerated int
	SamplesStored    int
	IngestFailures   int
	Finalized        int
	FinalizeErrors   int
	Scores           map[string]DriverScore
	DriverProfiles   map[string]Profile
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
