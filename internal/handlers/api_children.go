package handlers

import (
	"net/http"
	"time"
)

// ListChildren returns every child the caller can see
func (h *APIHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.children.ListChildren(GetUserFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, children)
}

// CreateChild adds a child profile owned by the caller
func (h *APIHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req childRequest
	if !bindJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	child, err := h.children.CreateChild(GetUserFromContext(r.Context()), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, child)
}

// GetChild returns one child
func (h *APIHandler) GetChild(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	child, err := h.children.GetChild(GetUserFromContext(r.Context()), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, child)
}

// UpdateChild replaces a child's editable fields
func (h *APIHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req childRequest
	if !bindJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	child, err := h.children.UpdateChild(GetUserFromContext(r.Context()), id, in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, child)
}

// DeleteChild removes a child and everything recorded about it
func (h *APIHandler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.children.DeleteChild(GetUserFromContext(r.Context()), id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChildSkills returns the child's assessed skills
func (h *APIHandler) ChildSkills(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	skills, err := h.assessments.ChildSkills(GetUserFromContext(r.Context()), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, skills)
}

// SaveAssessment records a batch of skill statuses for a child
func (h *APIHandler) SaveAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req assessmentRequest
	if !bindJSON(w, r, &req) {
		return
	}

	user := GetUserFromContext(r.Context())
	if err := h.assessments.SaveAssessment(user, id, req.entries(), req.Force); err != nil {
		respondServiceError(w, err)
		return
	}

	skills, err := h.assessments.ChildSkills(user, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, skills)
}

// ChildProgress lists observations, by default from the last 30 days. ?since=YYYY-MM-DD overrides.
func (h *APIHandler) ChildProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	since := h.now().Add(-progressWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "since must be YYYY-MM-DD", "", nil)
			return
		}
		since = parsed
	}

	records, err := h.progress.ChildProgress(GetUserFromContext(r.Context()), id, since)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// RecordObservation stores one observation. Replaying a known id answers 200
// with the stored record instead of 201.
func (h *APIHandler) RecordObservation(w http.ResponseWriter, r *http.Request) {
	var req observationRequest
	if !bindJSON(w, r, &req) {
		return
	}

	rec := req.record()
	created, err := h.progress.RecordObservation(r.Context(), GetUserFromContext(r.Context()), rec)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, rec)
}
