package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"learnsprout/internal/identity"
	"learnsprout/internal/logger"
	"learnsprout/internal/models"
	"learnsprout/internal/security"
	"learnsprout/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey ContextKey = "user"
	authContextKey ContextKey = "auth"
)

// authInfo records how the current request was authenticated
type authInfo struct {
	// csrfKey is what the request's CSRF token is derived from
	csrfKey string
	// bearer is set when credentials came from an Authorization header rather than a cookie
	bearer bool
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	verifier    *identity.Verifier
	csrf        *security.CSRFSigner
	limiter     *security.RateLimiter
	log         *logger.Logger
}

// NewMiddleware creates a new middleware instance. verifier may be nil when
// identity tokens are not configured.
func NewMiddleware(authService *service.AuthService, verifier *identity.Verifier, csrf *security.CSRFSigner,
	limiter *security.RateLimiter, log *logger.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		verifier:    verifier,
		csrf:        csrf,
		limiter:     limiter,
		log:         log.With("component", "middleware"),
	}
}

// Authenticate resolves the caller from an identity token or a session cookie
// and stores the user in the request context. Anonymous requests pass through.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, info := m.fromIdentityToken(w, r); user != nil {
			next.ServeHTTP(w, withUser(r, user, info))
			return
		}

		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.authService.ValidateSession(cookie.Value)
		if err != nil {
			if !errors.Is(err, service.ErrSessionNotFound) && !errors.Is(err, service.ErrSessionExpired) {
				m.log.Error("failed to validate session", "error", err)
			}
			http.SetCookie(w, security.ClearCookie(r, SessionCookieName))
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, withUser(r, user, authInfo{csrfKey: cookie.Value}))
	})
}

func (m *Middleware) fromIdentityToken(w http.ResponseWriter, r *http.Request) (*models.User, authInfo) {
	if m.verifier == nil {
		return nil, authInfo{}
	}

	principal, err := m.verifier.FromRequest(r)
	if err != nil {
		if !errors.Is(err, identity.ErrNoToken) {
			m.log.Debug("rejected identity token", "path", r.URL.Path, "error", err)
			if _, cerr := r.Cookie(identity.CookieName); cerr == nil {
				http.SetCookie(w, security.ClearCookie(r, identity.CookieName))
			}
		}
		return nil, authInfo{}
	}

	user, err := m.authService.ResolvePrincipal(principal)
	if errors.Is(err, service.ErrEmailTaken) {
		m.log.Warn("identity token email belongs to another account", "subject", principal.Subject)
		return nil, authInfo{}
	}
	if err != nil {
		m.log.Error("failed to resolve identity principal", "error", err)
		return nil, authInfo{}
	}

	_, cerr := r.Cookie(identity.CookieName)
	return user, authInfo{csrfKey: "identity:" + principal.Subject, bearer: cerr != nil}
}

func withUser(r *http.Request, user *models.User, info authInfo) *http.Request {
	ctx := context.WithValue(r.Context(), UserContextKey, user)
	ctx = context.WithValue(ctx, authContextKey, info)
	return r.WithContext(ctx)
}

// Guard enforces the route rules from Decide. It must run after Authenticate.
func (m *Middleware) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := Decide(r.URL.Path, GetUserFromContext(r.Context()))
		switch decision.Action {
		case GuardRedirect:
			http.Redirect(w, r, decision.Location, http.StatusSeeOther)
		case GuardUnauthorized:
			respondJSONError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		case GuardForbidden:
			respondJSONError(w, http.StatusForbidden, ErrForbiddenMsg, "", nil)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// CSRFProtect rejects state-changing requests from cookie-authenticated callers
// that do not carry a valid token in the X-CSRF-Token header or csrf_token form field.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		info, _ := r.Context().Value(authContextKey).(authInfo)
		if info.bearer {
			next(w, r)
			return
		}

		token := r.Header.Get(CSRFHeaderName)
		if token == "" {
			token = r.PostFormValue(CSRFFormField)
		}
		if !m.csrf.Verify(info.csrfKey, token) {
			if isAPIPath(r.URL.Path) {
				respondJSONError(w, http.StatusForbidden, "Invalid CSRF token", "", nil)
				return
			}
			http.Error(w, "Invalid CSRF token", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// RateLimit caps how often one client may hit this route
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if wait, ok := m.limiter.AllowRequest(r); !ok {
			m.log.Warn("rate limit exceeded", "path", r.URL.Path, "ip", security.ClientIP(r), "retry_in", wait)
			security.TooManyRequests(w, wait)
			return
		}
		next(w, r)
	}
}

// CSRFToken returns the token templates and scripts must echo back, or "" when anonymous
func (m *Middleware) CSRFToken(r *http.Request) string {
	info, _ := r.Context().Value(authContextKey).(authInfo)
	if info.csrfKey == "" {
		return ""
	}
	token, err := m.csrf.Token(info.csrfKey)
	if err != nil {
		return ""
	}
	return token
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging logs each request with its status and duration
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
