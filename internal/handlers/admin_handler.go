package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"learnsprout/internal/config"
	"learnsprout/internal/logger"
	"learnsprout/internal/repository"
	"learnsprout/internal/service"
)

const cronTimeout = 5 * time.Minute

// AdminHandler serves the admin pages, the operator endpoints (cron, set-role)
// and the email diagnostics
type AdminHandler struct {
	renderer
	cfg          *config.Config
	authService  *service.AuthService
	emailService *service.EmailService
	digest       *service.DigestService
	plans        *service.PlanService
	institutions *service.InstitutionService
	backup       *service.BackupService
	userRepo     *repository.UserRepository
	childRepo    *repository.ChildRepository
	log          *logger.Logger
}

// AdminDeps groups what the admin handler needs
type AdminDeps struct {
	Config       *config.Config
	Auth         *service.AuthService
	Email        *service.EmailService
	Digest       *service.DigestService
	Plans        *service.PlanService
	Institutions *service.InstitutionService
	Backup       *service.BackupService
	Users        *repository.UserRepository
	Children     *repository.ChildRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(deps AdminDeps, templates *template.Template, mw *Middleware, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		renderer:     renderer{templates: templates, mw: mw},
		cfg:          deps.Config,
		authService:  deps.Auth,
		emailService: deps.Email,
		digest:       deps.Digest,
		plans:        deps.Plans,
		institutions: deps.Institutions,
		backup:       deps.Backup,
		userRepo:     deps.Users,
		childRepo:    deps.Children,
		log:          log.With("handler", "admin"),
	}
}

// Dashboard shows users, institutions and the backup tools
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.GetAllUsers()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error listing users", err)
		return
	}
	children, err := h.childRepo.GetAllChildren()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error listing children", err)
		return
	}
	institutions, err := h.institutions.Institutions()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error listing institutions", err)
		return
	}

	data := map[string]interface{}{
		"Title":        "Administration - LearnSprout",
		"Users":        users,
		"ChildCount":   len(children),
		"Institutions": institutions,
	}
	switch r.URL.Query().Get("backup") {
	case "imported":
		data["Message"] = "Backup imported successfully"
	case "failed":
		data["Error"] = "The backup could not be imported"
	}
	h.render(w, r, http.StatusOK, "admin_dashboard.tmpl", data)
}

// Users lists every account as JSON
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.GetAllUsers()
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, ErrInternalServerError, "Error listing users", err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// ExportDatabase streams a JSON backup of every table
func (h *AdminHandler) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	filename := fmt.Sprintf("learnsprout_backup_%s.json", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := h.backup.ExportToWriter(w); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to export database", "Error exporting database", err)
		return
	}
	h.log.Info("database exported", "user_id", user.ID)
}

// ImportDatabase restores an uploaded backup. replace=true clears the tables first.
func (h *AdminHandler) ImportDatabase(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to parse form", "", err)
		return
	}

	file, _, err := r.FormFile("backup_file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Please select a backup file", "", err)
		return
	}
	defer file.Close()

	replace := r.FormValue("replace") == "true"
	if err := h.backup.ImportFromReader(file, replace); err != nil {
		h.log.Error("database import failed", "user_id", user.ID, "replace", replace, "error", err)
		http.Redirect(w, r, "/admin/dashboard?backup=failed", http.StatusSeeOther)
		return
	}

	h.log.Info("database imported", "user_id", user.ID, "replace", replace)
	http.Redirect(w, r, "/admin/dashboard?backup=imported", http.StatusSeeOther)
}

// SetRole assigns a role to the account with the given email. It authenticates
// with the X-Admin-Api-Key header instead of a session.
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	if !secretMatches(h.cfg.AdminAPIKey, r.Header.Get(AdminKeyHeader)) {
		respondJSONError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}

	var req setRoleRequest
	if !bindJSON(w, r, &req) {
		return
	}

	user, err := h.authService.SetRole(req.Email, req.Role)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	h.log.Info("role updated", "user_id", user.ID, "role", user.Role)
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
}

// Cron generates missing plans and sends the weekly digest.
// It authenticates with Authorization: Bearer CRON_SECRET; ?digest=false skips the email.
func (h *AdminHandler) Cron(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !secretMatches(h.cfg.CronSecret, token) {
		respondJSONError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), cronTimeout)
	defer cancel()

	generated, err := h.plans.AutoGenerate(ctx)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, ErrInternalServerError, "Cron plan generation failed", err)
		return
	}

	resp := map[string]interface{}{"success": true, "plansGenerated": generated}
	if r.URL.Query().Get("digest") != "false" {
		report, err := h.digest.Run(ctx)
		if err != nil {
			respondJSONError(w, http.StatusInternalServerError, ErrInternalServerError, "Cron digest failed", err)
			return
		}
		resp["digest"] = report
	}

	h.log.Info("cron run finished", "plans_generated", generated)
	respondJSON(w, http.StatusOK, resp)
}

// secretMatches compares in constant time; an unset secret never matches
func secretMatches(expected, given string) bool {
	if expected == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}

// RequireDiagnostics hides the diagnostic endpoints when they are switched off
func (h *AdminHandler) RequireDiagnostics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.DiagnosticsEnabled {
			respondJSONError(w, http.StatusNotFound, "Not found", "", nil)
			return
		}
		next(w, r)
	}
}

// CheckEnv reports which integrations are configured without revealing any value
func (h *AdminHandler) CheckEnv(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"environment": cfg.LogMode,
		"database": map[string]interface{}{
			"type":       cfg.DatabaseType,
			"urlPresent": cfg.DatabaseURL != "",
		},
		"email": map[string]interface{}{
			"provider":         cfg.EmailProvider,
			"fromPresent":      cfg.EmailFrom != "",
			"resendKeyPresent": cfg.ResendAPIKey != "",
			"debug":            cfg.EmailDebug,
		},
		"identity": map[string]interface{}{
			"jwksConfigured":   cfg.IdentityJWKSURL != "",
			"secretConfigured": cfg.IdentityHMACSecret != "",
		},
		"oauth": map[string]interface{}{
			"googleConfigured": cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "",
		},
		"redis": map[string]interface{}{
			"configured": cfg.RedisAddr != "",
		},
		"cron": map[string]interface{}{
			"secretPresent": cfg.CronSecret != "",
			"digestEnabled": cfg.DigestEnabled,
		},
		"adminKeyPresent": cfg.AdminAPIKey != "",
	})
}

// TestEmail sends the sample weekly plan email to ?email=
func (h *AdminHandler) TestEmail(w http.ResponseWriter, r *http.Request) {
	h.sendDiagnostic(w, r, "Test email sent", h.emailService.SendTestEmail)
}

// SimpleTestEmail sends a minimal email to ?email=
func (h *AdminHandler) SimpleTestEmail(w http.ResponseWriter, r *http.Request) {
	h.sendDiagnostic(w, r, "Simple test email sent", h.emailService.SendSimpleTestEmail)
}

func (h *AdminHandler) sendDiagnostic(w http.ResponseWriter, r *http.Request, okMsg string, send func(context.Context, string) error) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		respondJSONError(w, http.StatusBadRequest, "Missing required parameter: email", "", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), emailTimeout)
	defer cancel()

	if err := send(ctx, email); err != nil {
		respondJSONError(w, http.StatusBadGateway, "Failed to send email", "Diagnostic email failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": okMsg})
}

// TestWeeklyEmail sends next week's digest for each of the user's active
// children (or only ?childId=) to ?email= and reports per-child results
func (h *AdminHandler) TestWeeklyEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		respondJSONError(w, http.StatusBadRequest, "Missing required parameter: email", "", nil)
		return
	}

	var childID int64
	if raw := r.URL.Query().Get("childId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondJSONError(w, http.StatusBadRequest, "childId must be a number", "", nil)
			return
		}
		childID = id
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	results, err := h.digest.SendTest(ctx, email, childID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrNoActiveChildren) {
			respondJSONError(w, http.StatusNotFound, userMessage(err), "", nil)
			return
		}
		respondJSONError(w, http.StatusInternalServerError, ErrInternalServerError, "Test weekly email failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Test emails sent",
		"results": results,
	})
}
