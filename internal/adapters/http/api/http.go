// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	service "github.com/okian/drivescore/internal/app"
	"github.com/okian/drivescore/internal/domain/model"
	"github.com/okian/drivescore/pkg/logger"
	"github.com/okian/drivescore/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	IngestDependencies
	FinalizeDependencies
	TripDependencies
	DriverDependencies
	HealthChecker
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	ingestHandler   *IngestHandler
	finalizeHandler *FinalizeHandler
	tripHandler     *TripHandler
	driverHandler   *DriverHandler
	logger          logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger for failed requests. Defaults to a discarding
// logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(deps),
		ingestHandler:   NewIngestHandler(deps),
		finalizeHandler: NewFinalizeHandler(deps),
		tripHandler:     NewTripHandler(deps),
		driverHandler:   NewDriverHandler(deps),
		logger:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz", s.logger))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats", s.logger))
	mux.HandleFunc("/ingest", MetricsMiddleware(s.ingestHandler.HandleIngest, "ingest", s.logger))
	mux.HandleFunc("/finalize", MetricsMiddleware(s.finalizeHandler.HandleFinalize, "finalize", s.logger))
	mux.HandleFunc("/trips/", MetricsMiddleware(s.tripHandler.HandleGetTrip, "trips", s.logger))
	mux.HandleFunc("/drivers/", MetricsMiddleware(s.driverHandler.HandleGetScore, "drivers", s.logger))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates a service error into a response.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrRunInProgress):
		writeError(w, http.StatusConflict, "conflict", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
	}
}

// tripResponse is the read shape of GET /trips/{id}.
type tripResponse struct {
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	DeviceID      string                `json:"device_id"`
	Status        model.TripStatus      `json:"status"`
	StartedAt     *time.Time            `json:"started_at"`
	EndedAt       *time.Time            `json:"ended_at"`
	ClosedAt      *time.Time            `json:"closed_at"`
	DistanceKm    float64               `json:"distance_km"`
	DurationMin   float64               `json:"duration_min"`
	NightFraction float64               `json:"night_fraction"`
	Weather       model.TripWeather     `json:"weather"`
	RoadMix       map[string]float64    `json:"road_mix"`
	Quality       model.TripQuality     `json:"quality"`
	Geometry      *model.LineString     `json:"geometry,omitempty"`
	Score         *scoreResponse        `json:"score"`
	Features      *model.TripFeatures   `json:"features"`
	Events        []model.DetectedEvent `json:"events"`
}

type scoreResponse struct {
	TSS            int                  `json:"tss"`
	Confidence     model.Confidence     `json:"confidence"`
	Day            string               `json:"day"`
	WeightsVersion string               `json:"weights_version"`
	Breakdown      model.ScoreBreakdown `json:"breakdown"`
}

func newTripResponse(d service.TripDetail) tripResponse {
	t := d.Trip
	resp := tripResponse{
		ID:            t.ID,
		UserID:        t.UserID,
		DeviceID:      t.DeviceID,
		Status:        t.Status,
		StartedAt:     t.StartedAt,
		EndedAt:       t.EndedAt,
		ClosedAt:      t.ClosedAt,
		DistanceKm:    t.DistanceKm,
		DurationMin:   t.DurationMin,
		NightFraction: t.NightFraction,
		Weather:       t.Weather,
		RoadMix:       t.RoadMix,
		Quality:       t.Quality,
		Features:      d.Features,
		Events:        d.Events,
	}
	if len(t.Geometry.Coordinates) > 0 {
		g := t.Geometry
		resp.Geometry = &g
	}
	if d.Score != nil {
		resp.Score = &scoreResponse{
			TSS:            d.Score.TSS,
			Confidence:     d.Score.Confidence,
			Day:            d.Score.Day,
			WeightsVersion: d.Score.WeightsVersion,
			Breakdown:      d.Score.Breakdown,
		}
	}
	if resp.Events == nil {
		resp.Events = []model.DetectedEvent{}
	}
	return resp
}
