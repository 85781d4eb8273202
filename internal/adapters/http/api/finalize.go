package api

import (
	"context"
	"net/http"

	service "github.com/okian/drivescore/internal/app"
)

// FinalizeDependencies defines the interface for triggering a finalize run.
type FinalizeDependencies interface {
	FinalizeEligible(ctx context.Context) (service.FinalizeResult, error)
}

// FinalizeHandler handles finalize triggers.
type FinalizeHandler struct {
	deps FinalizeDependencies
}

// NewFinalizeHandler creates a new finalize handler.
func NewFinalizeHandler(deps FinalizeDependencies) *FinalizeHandler {
	return &FinalizeHandler{deps: deps}
}

type finalizeResponse struct {
	Finalized int      `json:"finalized"`
	Errors    []string `json:"errors"`
}

// HandleFinalize handles POST /finalize requests. The body is ignored.
func (h *FinalizeHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	const op = "api.finalize"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.FinalizeEligible(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	errs := res.Errors
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, http.StatusOK, finalizeResponse{Finalized: res.Finalized, Errors: errs})
}
