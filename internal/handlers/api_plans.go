package handlers

import (
	"net/http"
	"strconv"

	"learnsprout/internal/models"
)

// Recommendations buckets the child's skills with matching activities.
// ?concerns= and ?goals= take comma separated phrases.
func (h *APIHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	recs, err := h.plans.Recommendations(GetUserFromContext(r.Context()), id, listParam(r, "concerns"), listParam(r, "goals"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

// GeneratePlan assembles a new weekly plan; earlier plans for the week are kept
func (h *APIHandler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req generatePlanRequest
	if !bindJSON(w, r, &req) {
		return
	}
	opts, err := req.options(h.now())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	user := GetUserFromContext(r.Context())
	plan, err := h.plans.GeneratePlan(r.Context(), user, id, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	details, err := h.plans.GetPlan(user, plan.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, details)
}

// CurrentPlan returns the newest plan for this week
func (h *APIHandler) CurrentPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	details, err := h.plans.CurrentPlan(GetUserFromContext(r.Context()), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// PlanHistory lists every plan stored for the child
func (h *APIHandler) PlanHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	plans, err := h.plans.PlanHistory(GetUserFromContext(r.Context()), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if plans == nil {
		plans = []models.WeeklyPlan{}
	}
	respondJSON(w, http.StatusOK, plans)
}

// GetPlan returns one plan with its activities
func (h *APIHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	details, err := h.plans.GetPlan(GetUserFromContext(r.Context()), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// UpdateEntryStatus moves the entry at /api/plans/{id}/days/{day}/{order} to a new status
func (h *APIHandler) UpdateEntryStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	day := models.Weekday(r.PathValue("day"))
	if !day.Valid() {
		respondJSONError(w, http.StatusBadRequest, "day must be a day of the week", "", nil)
		return
	}
	order, err := strconv.Atoi(r.PathValue("order"))
	if err != nil || order < 0 {
		respondJSONError(w, http.StatusBadRequest, "order must be a non-negative number", "", nil)
		return
	}
	var req entryStatusRequest
	if !bindJSON(w, r, &req) {
		return
	}

	user := GetUserFromContext(r.Context())
	if err := h.plans.UpdateEntryStatus(r.Context(), user, id, day, order, models.PlanStatus(req.Status)); err != nil {
		respondServiceError(w, err)
		return
	}
	details, err := h.plans.GetPlan(user, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}
