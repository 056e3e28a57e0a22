package handlers

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"learnsprout/internal/logger"
	"learnsprout/internal/models"
	"learnsprout/internal/recommend"
	"learnsprout/internal/service"
)

const (
	pageFanOut     = 4
	progressWindow = 30 * 24 * time.Hour
)

// PageHandler renders the signed-in HTML pages
type PageHandler struct {
	renderer
	children     *service.ChildService
	assessments  *service.AssessmentService
	plans        *service.PlanService
	progress     *service.ProgressService
	materials    *service.MaterialService
	family       *service.FamilyService
	institutions *service.InstitutionService
	catalog      *service.CatalogService
	static       fs.FS
	log          *logger.Logger
}

// PageServices groups the services the page handler reads from
type PageServices struct {
	Children     *service.ChildService
	Assessments  *service.AssessmentService
	Plans        *service.PlanService
	Progress     *service.ProgressService
	Materials    *service.MaterialService
	Family       *service.FamilyService
	Institutions *service.InstitutionService
	Catalog      *service.CatalogService
}

// NewPageHandler creates a new page handler
func NewPageHandler(svc PageServices, templates *template.Template, static fs.FS, mw *Middleware, log *logger.Logger) *PageHandler {
	return &PageHandler{
		renderer:     renderer{templates: templates, mw: mw},
		children:     svc.Children,
		assessments:  svc.Assessments,
		plans:        svc.Plans,
		progress:     svc.Progress,
		materials:    svc.Materials,
		family:       svc.Family,
		institutions: svc.Institutions,
		catalog:      svc.Catalog,
		static:       static,
		log:          log.With("handler", "pages"),
	}
}

// childSummary is one row of the dashboard's children list
type childSummary struct {
	Child models.Child
	Plan  *models.WeeklyPlan
}

// Dashboard shows the user's children, this week's plans and the materials forecast
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	children, err := h.children.ListChildren(user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error listing children", err)
		return
	}

	summaries := make([]childSummary, len(children))
	var (
		forecast    []recommend.ForecastItem
		family      *models.FamilyWithMembers
		invitations []models.Invitation
	)

	g := new(errgroup.Group)
	g.SetLimit(pageFanOut)
	for i := range children {
		summaries[i].Child = children[i]
		g.Go(func() error {
			details, err := h.plans.CurrentPlan(user, children[i].ID)
			if errors.Is(err, service.ErrPlanNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			summaries[i].Plan = details.Plan
			return nil
		})
	}
	g.Go(func() error {
		var err error
		forecast, err = h.materials.Forecast(user, 0)
		return err
	})
	g.Go(func() error {
		var err error
		family, err = h.family.GetFamily(user)
		if errors.Is(err, service.ErrFamilyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		invitations, err = h.family.ListInvitations(user)
		return err
	})
	if err := g.Wait(); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading dashboard", err)
		return
	}

	pending := invitations[:0]
	for _, inv := range invitations {
		if inv.IsValid() {
			pending = append(pending, inv)
		}
	}

	h.render(w, r, http.StatusOK, "dashboard.tmpl", map[string]interface{}{
		"Title":       "Dashboard - LearnSprout",
		"Children":    summaries,
		"Forecast":    forecast,
		"Family":      family,
		"Invitations": pending,
	})
}

// EducatorDashboard lists the educator's classrooms and the children in them
func (h *PageHandler) EducatorDashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	classrooms, err := h.institutions.EducatorClassrooms(user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error listing classrooms", err)
		return
	}
	children, err := h.children.ClassroomChildren(user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error listing classroom children", err)
		return
	}

	h.render(w, r, http.StatusOK, "educator_dashboard.tmpl", map[string]interface{}{
		"Title":      "Classrooms - LearnSprout",
		"Classrooms": classrooms,
		"Children":   children,
	})
}

// ChildPage shows one child's plan, skills and recent progress
func (h *PageHandler) ChildPage(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	childID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	child, err := h.children.GetChild(user, childID)
	if err != nil {
		if errors.Is(err, service.ErrChildNotFound) {
			http.NotFound(w, r)
			return
		}
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading child", err)
		return
	}

	var (
		skills     []service.ChildSkillView
		plan       *service.PlanDetails
		progress   []models.ProgressRecord
		doable     []models.Activity
		activities []models.Activity
	)

	g := new(errgroup.Group)
	g.SetLimit(pageFanOut)
	g.Go(func() (err error) {
		skills, err = h.assessments.ChildSkills(user, child.ID)
		return err
	})
	g.Go(func() error {
		details, err := h.plans.CurrentPlan(user, child.ID)
		if errors.Is(err, service.ErrPlanNotFound) {
			return nil
		}
		plan = details
		return err
	})
	g.Go(func() (err error) {
		progress, err = h.progress.ChildProgress(user, child.ID, time.Now().Add(-progressWindow))
		return err
	})
	g.Go(func() (err error) {
		doable, err = h.materials.DoableActivities(user, child.ID)
		return err
	})
	g.Go(func() (err error) {
		activities, err = h.catalog.Activities("", "")
		return err
	})
	if err := g.Wait(); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading child page", err)
		return
	}

	titles := make(map[string]models.Activity, len(activities))
	for _, a := range activities {
		titles[a.ID] = a
	}

	h.render(w, r, http.StatusOK, "child.tmpl", map[string]interface{}{
		"Title":          child.Name + " - LearnSprout",
		"Child":          child,
		"Skills":         skills,
		"Plan":           plan,
		"Weekdays":       models.Weekdays,
		"Progress":       progress,
		"Doable":         doable,
		"ActivityTitles": titles,
	})
}

// Offline is the fallback page the service worker serves without a connection
func (h *PageHandler) Offline(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "offline.tmpl", map[string]interface{}{
		"Title": "Offline - LearnSprout",
	})
}

// ServiceWorker serves the worker script from the site root so its scope covers every page
func (h *PageHandler) ServiceWorker(w http.ResponseWriter, r *http.Request) {
	script, err := fs.ReadFile(h.static, "service-worker.js")
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error reading service worker", err)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Service-Worker-Allowed", "/")
	_, _ = w.Write(script)
}
