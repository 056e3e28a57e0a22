package handlers

import (
	"io/fs"
	"net/http"

	"learnsprout/internal/logger"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Pages      *PageHandler
	API        *APIHandler
	Admin      *AdminHandler
	Startup    *StartupTracker
	Static     fs.FS
}

// Routes builds the application router. Every request is logged, authenticated
// when credentials are present, then checked against the route guard.
func (h *Handlers) Routes(log *logger.Logger) http.Handler {
	mw := h.Middleware
	csrf := mw.CSRFProtect
	api := h.API
	admin := h.Admin

	mux := http.NewServeMux()

	if h.Startup != nil {
		mux.HandleFunc("GET /healthz", h.Startup.Health)
	}

	// Static files and offline support
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(h.Static))))
	mux.HandleFunc("GET /service-worker.js", h.Pages.ServiceWorker)
	mux.HandleFunc("GET /offline", h.Pages.Offline)

	// Public routes
	mux.HandleFunc("GET /{$}", h.Auth.Home)
	mux.HandleFunc("GET /login", h.Auth.ShowLogin)
	mux.HandleFunc("POST /login", mw.RateLimit(h.Auth.Login))
	mux.HandleFunc("GET /signup", h.Auth.ShowSignup)
	mux.HandleFunc("POST /signup", mw.RateLimit(h.Auth.Signup))
	mux.HandleFunc("POST /logout", h.Auth.Logout)
	mux.HandleFunc("GET /reset-password", h.Auth.ShowResetPassword)
	mux.HandleFunc("POST /reset-password", mw.RateLimit(h.Auth.ResetPassword))
	mux.HandleFunc("GET /auth/{provider}/start", h.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", h.Auth.OAuthCallback)

	// Pages
	mux.HandleFunc("GET /dashboard", h.Pages.Dashboard)
	mux.HandleFunc("GET /children/{id}", h.Pages.ChildPage)
	mux.HandleFunc("GET /educator/dashboard", h.Pages.EducatorDashboard)
	mux.HandleFunc("GET /admin/dashboard", admin.Dashboard)
	mux.HandleFunc("GET /admin/backup", admin.ExportDatabase)
	mux.HandleFunc("POST /admin/backup", csrf(admin.ImportDatabase))

	// Children, skills and progress
	mux.HandleFunc("GET /api/children", api.ListChildren)
	mux.HandleFunc("POST /api/children", csrf(api.CreateChild))
	mux.HandleFunc("GET /api/children/{id}", api.GetChild)
	mux.HandleFunc("PUT /api/children/{id}", csrf(api.UpdateChild))
	mux.HandleFunc("DELETE /api/children/{id}", csrf(api.DeleteChild))
	mux.HandleFunc("GET /api/children/{id}/skills", api.ChildSkills)
	mux.HandleFunc("POST /api/children/{id}/assessments", csrf(api.SaveAssessment))
	mux.HandleFunc("GET /api/children/{id}/progress", api.ChildProgress)
	mux.HandleFunc("POST /api/observations", csrf(api.RecordObservation))

	// Recommendations and plans
	mux.HandleFunc("GET /api/children/{id}/recommendations", api.Recommendations)
	mux.HandleFunc("GET /api/children/{id}/plans", api.PlanHistory)
	mux.HandleFunc("POST /api/children/{id}/plans", csrf(api.GeneratePlan))
	mux.HandleFunc("GET /api/children/{id}/plans/current", api.CurrentPlan)
	mux.HandleFunc("GET /api/plans/{id}", api.GetPlan)
	mux.HandleFunc("PATCH /api/plans/{id}/days/{day}/{order}", csrf(api.UpdateEntryStatus))

	// Catalog and materials
	mux.HandleFunc("GET /api/skills", api.Skills)
	mux.HandleFunc("GET /api/activities", api.Activities)
	mux.HandleFunc("GET /api/activities/{id}", api.Activity)
	mux.HandleFunc("GET /api/materials/forecast", api.MaterialsForecast)
	mux.HandleFunc("GET /api/materials/owned", api.OwnedMaterials)
	mux.HandleFunc("PUT /api/materials/{id}/owned", csrf(api.SetMaterialOwned))
	mux.HandleFunc("GET /api/children/{id}/doable-activities", api.DoableActivities)

	// Account, family and classrooms
	mux.HandleFunc("GET /api/me", api.Me)
	mux.HandleFunc("PUT /api/me/preferences", csrf(api.UpdatePreferences))
	mux.HandleFunc("GET /api/family", api.Family)
	mux.HandleFunc("PUT /api/family", csrf(api.RenameFamily))
	mux.HandleFunc("GET /api/family/invitations", api.FamilyInvitations)
	mux.HandleFunc("POST /api/family/invite", csrf(api.InviteFamilyMember))
	mux.HandleFunc("POST /api/family/accept", csrf(api.AcceptInvitation))
	mux.HandleFunc("GET /api/institutions", api.Institutions)
	mux.HandleFunc("POST /api/institutions", csrf(api.CreateInstitution))
	mux.HandleFunc("GET /api/classrooms", api.Classrooms)
	mux.HandleFunc("POST /api/classrooms", csrf(api.CreateClassroom))
	mux.HandleFunc("POST /api/classrooms/join", csrf(api.JoinClassroom))

	// Operator endpoints authenticate with their own secrets
	mux.HandleFunc("GET /api/admin/users", admin.Users)
	mux.HandleFunc("POST /api/auth/set-role", mw.RateLimit(admin.SetRole))
	mux.HandleFunc("GET /api/cron", admin.Cron)

	// Diagnostics
	mux.HandleFunc("GET /api/check-env", admin.RequireDiagnostics(admin.CheckEnv))
	mux.HandleFunc("GET /api/test-email", admin.RequireDiagnostics(admin.TestEmail))
	mux.HandleFunc("GET /api/simple-test-email", admin.RequireDiagnostics(admin.SimpleTestEmail))
	mux.HandleFunc("GET /api/test-weekly-email", admin.RequireDiagnostics(admin.TestWeeklyEmail))

	return Logging(log)(mw.Authenticate(mw.Guard(mux)))
}
