package handlers

import (
	"net/http"
	"strconv"

	"learnsprout/internal/models"
	"learnsprout/internal/service"
)

// Skills lists the developmental skill catalog
func (h *APIHandler) Skills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.assessments.Skills()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, skills)
}

// Activities lists active activities, optionally filtered by ?ageGroup= and ?area=
func (h *APIHandler) Activities(w http.ResponseWriter, r *http.Request) {
	area := models.DevelopmentalArea(r.URL.Query().Get("area"))
	if area != "" && !area.Valid() {
		respondJSONError(w, http.StatusBadRequest, "Unknown developmental area", "", nil)
		return
	}
	activities, err := h.catalog.Activities(r.URL.Query().Get("ageGroup"), area)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, activities)
}

// Activity returns one activity with rendered instructions
func (h *APIHandler) Activity(w http.ResponseWriter, r *http.Request) {
	view, err := h.catalog.Activity(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// MaterialsForecast ranks the materials upcoming plans need. ?days= defaults to the configured window.
func (h *APIHandler) MaterialsForecast(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > service.MaxForecastDays {
			respondJSONError(w, http.StatusBadRequest,
				"days must be between 1 and "+strconv.Itoa(service.MaxForecastDays), "", nil)
			return
		}
		days = n
	}

	items, err := h.materials.Forecast(GetUserFromContext(r.Context()), days)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// OwnedMaterials lists the ids of materials the caller has
func (h *APIHandler) OwnedMaterials(w http.ResponseWriter, r *http.Request) {
	ids, err := h.materials.OwnedIDs(GetUserFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"materialIds": ids})
}

// SetMaterialOwned marks a material as owned or not
func (h *APIHandler) SetMaterialOwned(w http.ResponseWriter, r *http.Request) {
	var req ownedRequest
	if !bindJSON(w, r, &req) {
		return
	}
	materialID := r.PathValue("id")
	if err := h.materials.SetOwned(GetUserFromContext(r.Context()), materialID, *req.Owned); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"materialId": materialID, "owned": *req.Owned})
}

// DoableActivities lists the child's activities that need only household or owned materials
func (h *APIHandler) DoableActivities(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	activities, err := h.materials.DoableActivities(GetUserFromContext(r.Context()), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, activities)
}

// Me returns the signed-in user
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GetUserFromContext(r.Context()))
}

// UpdatePreferences changes the caller's planning and email preferences
func (h *APIHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if !bindJSON(w, r, &req) {
		return
	}

	user := GetUserFromContext(r.Context())
	prefs := req.apply(user.Preferences)
	if err := h.auth.UpdatePreferences(user, prefs); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}
