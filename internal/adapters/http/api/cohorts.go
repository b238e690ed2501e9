package api

import (
	"net/http"

	"github.com/okian/ghostslot/internal/domain/types"
)

// CohortsHandler handles the /cohorts routes.
type CohortsHandler struct {
	deps CohortDependencies
}

// NewCohortsHandler creates a new cohorts handler.
func NewCohortsHandler(deps CohortDependencies) *CohortsHandler {
	return &CohortsHandler{deps: deps}
}

// HandleList handles GET /cohorts.
func (h *CohortsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_cohorts"
	cohorts, err := h.deps.Cohorts(r.Context())
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	if cohorts == nil {
		cohorts = []types.CohortSummary{}
	}
	writeJSON(w, http.StatusOK, cohorts)
}

// HandleCreate handles POST /cohorts. A missing totalGhostSlots uses the
// service default.
func (h *CohortsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_cohort"
	var req types.CreateCohortRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	state, err := h.deps.CreateCohort(r.Context(), req.Cohort, req.TotalGhostSlots)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}
