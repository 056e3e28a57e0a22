package handlers

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	"learnsprout/internal/identity"
	"learnsprout/internal/logger"
	"learnsprout/internal/security"
	"learnsprout/internal/service"
)

const emailTimeout = 10 * time.Second

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	renderer
	authService          *service.AuthService
	emailService         *service.EmailService
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	log                  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, emailService *service.EmailService, templates *template.Template,
	mw *Middleware, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		renderer:             renderer{templates: templates, mw: mw},
		authService:          authService,
		emailService:         emailService,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		log:                  log.With("handler", "auth"),
	}
}

// Home sends signed-in users to their dashboard and everyone else to the login page
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if user := GetUserFromContext(r.Context()); user != nil {
		http.Redirect(w, r, user.Role.LandingPath(), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ShowLogin renders the login page
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login.tmpl", map[string]interface{}{
		"Title":          "Log in - LearnSprout",
		"Redirect":       r.URL.Query().Get("redirect"),
		"OAuthProviders": h.oauthProviderViews(r),
	})
}

// Login handles login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	redirect := r.FormValue("redirect")

	session, user, err := h.authService.Login(email, r.FormValue("password"))
	if err != nil {
		status, _ := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error("login failed", "error", err)
		}
		h.render(w, r, http.StatusUnauthorized, "login.tmpl", map[string]interface{}{
			"Title":          "Log in - LearnSprout",
			"Error":          userMessage(err),
			"Email":          email,
			"Redirect":       redirect,
			"OAuthProviders": h.oauthProviderViews(r),
		})
		return
	}

	http.SetCookie(w, security.AuthCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, safeRedirect(redirect, user.Role.LandingPath()), http.StatusSeeOther)
}

// ShowSignup renders the registration page. ?invite= and ?email= prefill a family invitation.
func (h *AuthHandler) ShowSignup(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "signup.tmpl", map[string]interface{}{
		"Title":          "Sign up - LearnSprout",
		"Invite":         r.URL.Query().Get("invite"),
		"Email":          r.URL.Query().Get("email"),
		"OAuthProviders": h.oauthProviderViews(r),
	})
}

// Signup handles registration form submission
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	name := strings.TrimSpace(r.FormValue("name"))
	password := r.FormValue("password")
	invite := strings.TrimSpace(r.FormValue("invite"))

	if _, err := h.authService.Register(email, password, name, invite); err != nil {
		status, _ := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error("registration failed", "error", err)
		}
		h.render(w, r, http.StatusBadRequest, "signup.tmpl", map[string]interface{}{
			"Title":          "Sign up - LearnSprout",
			"Error":          userMessage(err),
			"Email":          email,
			"Name":           name,
			"Invite":         invite,
			"OAuthProviders": h.oauthProviderViews(r),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), emailTimeout)
	defer cancel()
	if err := h.emailService.SendWelcomeEmail(ctx, email, name); err != nil {
		h.log.Warn("failed to send welcome email", "email", email, "error", err)
	}

	session, user, err := h.authService.Login(email, password)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, security.AuthCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, user.Role.LandingPath(), http.StatusSeeOther)
}

// Logout ends the local session and drops any identity token cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(cookie.Value); err != nil {
			h.log.Warn("failed to delete session", "error", err)
		}
	}

	http.SetCookie(w, security.ClearCookie(r, SessionCookieName))
	if _, err := r.Cookie(identity.CookieName); err == nil {
		http.SetCookie(w, security.ClearCookie(r, identity.CookieName))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ShowResetPassword renders the request form, or the new password form when ?token= is valid
func (h *AuthHandler) ShowResetPassword(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{"Title": "Reset password - LearnSprout"}

	if token := r.URL.Query().Get("token"); token != "" {
		valid, err := h.authService.ValidatePasswordResetToken(token)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error validating reset token", err)
			return
		}
		if valid {
			data["Token"] = token
			data["TokenValid"] = true
		} else {
			data["Error"] = "This reset link is invalid or has expired"
		}
	}

	h.render(w, r, http.StatusOK, "reset_password.tmpl", data)
}

// ResetPassword either sends a reset link or, with a token, sets the new password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	data := map[string]interface{}{"Title": "Reset password - LearnSprout"}

	token := r.FormValue("token")
	if token == "" {
		ctx, cancel := context.WithTimeout(r.Context(), emailTimeout)
		defer cancel()
		if err := h.authService.RequestPasswordReset(ctx, h.emailService, r.FormValue("email")); err != nil {
			h.log.Error("password reset request failed", "error", err)
		}
		// same answer whether or not the account exists
		data["Message"] = "If an account exists for that email, a reset link is on its way."
		h.render(w, r, http.StatusOK, "reset_password.tmpl", data)
		return
	}

	password := r.FormValue("password")
	if password != r.FormValue("confirm_password") {
		data["Token"] = token
		data["TokenValid"] = true
		data["Error"] = "Passwords do not match"
		h.render(w, r, http.StatusBadRequest, "reset_password.tmpl", data)
		return
	}

	if err := h.authService.ResetPassword(token, password); err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error("password reset failed", "error", err)
		} else {
			msg = userMessage(err)
			data["Token"] = token
			data["TokenValid"] = true
		}
		data["Error"] = msg
		h.render(w, r, http.StatusBadRequest, "reset_password.tmpl", data)
		return
	}

	data["Message"] = "Your password has been updated. You can now log in."
	h.render(w, r, http.StatusOK, "reset_password.tmpl", data)
}
