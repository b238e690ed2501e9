package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/ghostslot/internal/domain/types"
)

// ReservationHandler handles the /reservation routes.
type ReservationHandler struct {
	deps ReservationDependencies
}

// NewReservationHandler creates a new reservation handler.
func NewReservationHandler(deps ReservationDependencies) *ReservationHandler {
	return &ReservationHandler{deps: deps}
}

// HandleQuery handles GET /reservation/{cohort}. An identified caller also
// gets userSlot filled in.
func (h *ReservationHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	const op = "api.query"
	cohort, err := cohortParam(r)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	state, err := h.deps.Query(r.Context(), cohort, RequesterFrom(r.Context()))
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandleReserve handles POST /reservation/{cohort}/reserve.
func (h *ReservationHandler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	const op = "api.reserve"
	cohort, err := cohortParam(r)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	slot, err := h.deps.Reserve(r.Context(), cohort, RequesterFrom(r.Context()))
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

// HandleRelease handles POST /reservation/{cohort}/release.
func (h *ReservationHandler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	const op = "api.release"
	cohort, err := cohortParam(r)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	var req types.ReleaseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	if strings.TrimSpace(req.SlotID) == "" {
		writeError(w, r, op, fmt.Errorf("%w: missing slotId", ErrBadRequest))
		return
	}
	slot, err := h.deps.Release(r.Context(), cohort, req.SlotID, RequesterFrom(r.Context()))
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

// HandleSubmit handles POST /reservation/{cohort}/submit.
func (h *ReservationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	cohort, err := cohortParam(r)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	var req types.SubmitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	switch {
	case strings.TrimSpace(req.SlotID) == "":
		writeError(w, r, op, fmt.Errorf("%w: missing slotId", ErrBadRequest))
		return
	case strings.TrimSpace(req.SkillsetID) == "":
		writeError(w, r, op, fmt.Errorf("%w: missing skillsetId", ErrBadRequest))
		return
	}
	slot, err := h.deps.ConfirmSubmission(r.Context(), cohort, req.SlotID, RequesterFrom(r.Context()), req.SkillsetID)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func cohortParam(r *http.Request) (int, error) {
	raw := r.PathValue("cohort")
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: cohort %q must be a positive integer", ErrBadRequest, raw)
	}
	return n, nil
}
