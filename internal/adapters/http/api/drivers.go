package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/drivescore/internal/domain/model"
)

// DriverDependencies defines the interface for driver score reads.
type DriverDependencies interface {
	DriverScore(ctx context.Context, userID string) (model.DriverScoreDaily, error)
}

// DriverHandler handles driver score reads.
type DriverHandler struct {
	deps DriverDependencies
}

// NewDriverHandler creates a new driver handler.
func NewDriverHandler(deps DriverDependencies) *DriverHandler {
	return &DriverHandler{deps: deps}
}

// HandleGetScore handles GET /drivers/{userId}/score requests.
func (h *DriverHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_driver_score"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/drivers/")
	userID, ok := strings.CutSuffix(rest, "/score")
	if !ok || userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	d, err := h.deps.DriverScore(r.Context(), userID)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
