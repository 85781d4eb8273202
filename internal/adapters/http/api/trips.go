package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/drivescore/internal/app"
)

// TripDependencies defines the interface for trip reads.
type TripDependencies interface {
	GetTrip(ctx context.Context, tripID string) (service.TripDetail, error)
}

// TripHandler handles trip reads.
type TripHandler struct {
	deps TripDependencies
}

// NewTripHandler creates a new trip handler.
func NewTripHandler(deps TripDependencies) *TripHandler {
	return &TripHandler{deps: deps}
}

// HandleGetTrip handles GET /trips/{id} requests.
func (h *TripHandler) HandleGetTrip(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_trip"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /trips/
	id := strings.TrimPrefix(r.URL.Path, "/trips/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	detail, err := h.deps.GetTrip(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newTripResponse(detail))
}
