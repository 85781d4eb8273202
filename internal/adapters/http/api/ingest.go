package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/drivescore/internal/app"
	"github.com/okian/drivescore/internal/domain/model"
)

// IngestDependencies defines the interface for telemetry ingest.
type IngestDependencies interface {
	Ingest(ctx context.Context, batch service.IngestBatch) (service.IngestResult, error)
}

// IngestHandler handles telemetry uploads.
type IngestHandler struct {
	deps IngestDependencies
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps IngestDependencies) *IngestHandler {
	return &IngestHandler{deps: deps}
}

// ingestRequest mirrors the OpenAPI schema for POST /ingest.
type ingestRequest struct {
	UserID   string          `json:"userId"`
	DeviceID string          `json:"deviceId"`
	Samples  []sampleRequest `json:"samples"`
}

type sampleRequest struct {
	TS         string        `json:"ts"`
	Lat        *float64      `json:"lat"`
	Lon        *float64      `json:"lon"`
	SpeedMPS   *float64      `json:"speed_mps"`
	HeadingDeg *float64      `json:"heading_deg"`
	HDOP       *float64      `json:"hdop"`
	Accel      *accelRequest `json:"accel"`
	ScreenOn   *bool         `json:"screen_on"`
}

type accelRequest struct {
	AX float64 `json:"ax"`
	AY float64 `json:"ay"`
	AZ float64 `json:"az"`
}

type ingestResponse struct {
	TripID          string `json:"tripId"`
	SamplesIngested int    `json:"samplesIngested"`
}

// toBatch checks the wire-level shape and converts the request. Range
// checks are left to the service.
func (req ingestRequest) toBatch() (service.IngestBatch, error) {
	batch := service.IngestBatch{
		UserID:   strings.TrimSpace(req.UserID),
		DeviceID: strings.TrimSpace(req.DeviceID),
		Samples:  make([]model.TelemetrySample, 0, len(req.Samples)),
	}
	for i, s := range req.Samples {
		switch {
		case strings.TrimSpace(s.TS) == "":
			return service.IngestBatch{}, fmt.Errorf("samples[%d]: missing ts", i)
		case s.Lat == nil:
			return service.IngestBatch{}, fmt.Errorf("samples[%d]: missing lat", i)
		case s.Lon == nil:
			return service.IngestBatch{}, fmt.Errorf("samples[%d]: missing lon", i)
		case s.SpeedMPS == nil:
			return service.IngestBatch{}, fmt.Errorf("samples[%d]: missing speed_mps", i)
		}
		ts, err := time.Parse(time.RFC3339, s.TS)
		if err != nil {
			return service.IngestBatch{}, fmt.Errorf("samples[%d]: invalid ts; must be RFC3339", i)
		}
		smp := model.TelemetrySample{
			TS:         ts.UTC(),
			Lat:        *s.Lat,
			Lon:        *s.Lon,
			SpeedMPS:   *s.SpeedMPS,
			HeadingDeg: s.HeadingDeg,
			HDOP:       s.HDOP,
			ScreenOn:   s.ScreenOn,
		}
		if s.Accel != nil {
			smp.Accel = &model.Accel{X: s.Accel.AX, Y: s.Accel.AY, Z: s.Accel.AZ}
		}
		batch.Samples = append(batch.Samples, smp)
	}
	return batch, nil
}

// HandleIngest handles POST /ingest requests.
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	batch, err := req.toBatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Ingest(r.Context(), batch)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{TripID: res.TripID, SamplesIngested: res.SamplesIngested})
}
