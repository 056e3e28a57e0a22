package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"learnsprout/internal/logger"
	"learnsprout/internal/service"
)

// APIHandler serves the JSON API used by the pages and offline clients
type APIHandler struct {
	auth         *service.AuthService
	children     *service.ChildService
	assessments  *service.AssessmentService
	plans        *service.PlanService
	progress     *service.ProgressService
	materials    *service.MaterialService
	family       *service.FamilyService
	institutions *service.InstitutionService
	catalog      *service.CatalogService
	log          *logger.Logger
	now          func() time.Time
}

// APIServices groups the services behind the JSON API
type APIServices struct {
	Auth         *service.AuthService
	Children     *service.ChildService
	Assessments  *service.AssessmentService
	Plans        *service.PlanService
	Progress     *service.ProgressService
	Materials    *service.MaterialService
	Family       *service.FamilyService
	Institutions *service.InstitutionService
	Catalog      *service.CatalogService
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(svc APIServices, log *logger.Logger) *APIHandler {
	return &APIHandler{
		auth:         svc.Auth,
		children:     svc.Children,
		assessments:  svc.Assessments,
		plans:        svc.Plans,
		progress:     svc.Progress,
		materials:    svc.Materials,
		family:       svc.Family,
		institutions: svc.Institutions,
		catalog:      svc.Catalog,
		log:          log.With("handler", "api"),
		now:          time.Now,
	}
}

// pathID parses a numeric path value, answering 404 when it is not one
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		respondJSONError(w, http.StatusNotFound, "Not found", "", nil)
		return 0, false
	}
	return id, true
}

// listParam reads a comma separated query parameter, also accepting repeats
func listParam(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
