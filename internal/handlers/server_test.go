package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnsprout/internal/app"
	"learnsprout/internal/config"
	"learnsprout/internal/database"
	"learnsprout/internal/logger"
	"learnsprout/internal/mailer"
	"learnsprout/internal/models"
	"learnsprout/internal/security"
	"learnsprout/internal/web"
)

const testCSRFSecret = "test-csrf-secret"

type testServer struct {
	handler http.Handler
	cfg     *config.Config
	svc     *app.Services
	csrf    *security.CSRFSigner
}

// newTestServer mounts the full router over a fresh SQLite database seeded
// with the default catalog. The first account created is the admin.
func newTestServer(t *testing.T, configure ...func(*config.Config)) *testServer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	cfg := &config.Config{
		AppBaseURL:         "https://sprout.test",
		LogMode:            "test",
		SessionDuration:    time.Hour,
		CSRFSecret:         testCSRFSecret,
		DatabaseType:       "sqlite",
		EmailProvider:      "noop",
		CronSecret:         "cron-secret",
		AdminAPIKey:        "admin-key",
		DiagnosticsEnabled: true,
		ForecastDays:       90,
	}
	for _, fn := range configure {
		fn(cfg)
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewNop()
	svc := app.NewServices(cfg, db, mailer.NewNoopSender(log), nil, log)
	_, err = svc.Catalog.SeedIfEmpty()
	require.NoError(t, err)
	_, err = svc.Repos.Users.CreateUser("root@example.com", "", "Root", models.RoleAdmin)
	require.NoError(t, err)

	templates, err := web.Templates()
	require.NoError(t, err)
	static := web.Static()

	limiter := security.NewRateLimiter(1000, time.Minute)
	t.Cleanup(limiter.Stop)
	csrf := security.NewCSRFSigner(cfg.CSRFSecret)
	mw := NewMiddleware(svc.Auth, nil, csrf, limiter, log)

	h := &Handlers{
		Middleware: mw,
		Auth:       NewAuthHandler(svc.Auth, svc.Email, templates, mw, map[string]OAuthProvider{}, cfg.AppBaseURL, log),
		Pages: NewPageHandler(PageServices{
			Children:     svc.Children,
			Assessments:  svc.Assessments,
			Plans:        svc.Plans,
			Progress:     svc.Progress,
			Materials:    svc.Materials,
			Family:       svc.Family,
			Institutions: svc.Institutions,
			Catalog:      svc.Catalog,
		}, templates, static, mw, log),
		API: NewAPIHandler(APIServices{
			Auth:         svc.Auth,
			Children:     svc.Children,
			Assessments:  svc.Assessments,
			Plans:        svc.Plans,
			Progress:     svc.Progress,
			Materials:    svc.Materials,
			Family:       svc.Family,
			Institutions: svc.Institutions,
			Catalog:      svc.Catalog,
		}, log),
		Admin: NewAdminHandler(AdminDeps{
			Config:       cfg,
			Auth:         svc.Auth,
			Email:        svc.Email,
			Digest:       svc.Digest,
			Plans:        svc.Plans,
			Institutions: svc.Institutions,
			Backup:       svc.Backup,
			Users:        svc.Repos.Users,
			Children:     svc.Repos.Children,
		}, templates, mw, log),
		Static: static,
	}

	return &testServer{handler: h.Routes(log), cfg: cfg, svc: svc, csrf: csrf}
}

// client is a signed-in session
type client struct {
	session string
	csrf    string
}

func (s *testServer) signIn(t *testing.T, email string) client {
	t.Helper()
	_, err := s.svc.Auth.Register(email, "password123", "Pat Parent", "")
	require.NoError(t, err)
	session, _, err := s.svc.Auth.Login(email, "password123")
	require.NoError(t, err)
	token, err := s.csrf.Token(session.ID)
	require.NoError(t, err)
	return client{session: session.ID, csrf: token}
}

type request struct {
	method  string
	path    string
	body    string
	form    url.Values
	as      *client
	noCSRF  bool
	headers map[string]string
}

func (s *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	switch {
	case req.form != nil:
		r = httptest.NewRequest(req.method, req.path, strings.NewReader(req.form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	case req.body != "":
		r = httptest.NewRequest(req.method, req.path, strings.NewReader(req.body))
		r.Header.Set("Content-Type", "application/json")
	default:
		r = httptest.NewRequest(req.method, req.path, nil)
	}
	if req.as != nil {
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: req.as.session})
		if !req.noCSRF {
			r.Header.Set(CSRFHeaderName, req.as.csrf)
		}
	}
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestAnonymousPageRedirectsToLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodGet, path: "/dashboard"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fdashboard", rec.Header().Get("Location"))

	rec = s.do(t, request{method: http.MethodGet, path: "/api/children"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrUnauthorized)

	rec = s.do(t, request{method: http.MethodGet, path: "/login"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignedInUserLeavesLoginPage(t *testing.T) {
	s := newTestServer(t)
	parent := s.signIn(t, "parent@example.com")

	rec := s.do(t, request{method: http.MethodGet, path: "/login", as: &parent})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = s.do(t, request{method: http.MethodGet, path: "/admin/dashboard", as: &parent})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = s.do(t, request{method: http.MethodGet, path: "/api/admin/users", as: &parent})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	_, err := s.svc.Auth.Register("parent@example.com", "password123", "Pat", "")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		rec := s.do(t, request{method: http.MethodPost, path: "/login", form: url.Values{
			"email":    {"parent@example.com"},
			"password": {"nope"},
		}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("honours local redirect", func(t *testing.T) {
		rec := s.do(t, request{method: http.MethodPost, path: "/login", form: url.Values{
			"email":    {"parent@example.com"},
			"password": {"password123"},
			"redirect": {"/children/1"},
		}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/children/1", rec.Header().Get("Location"))

		var session *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == SessionCookieName {
				session = c
			}
		}
		require.NotNil(t, session)
		assert.True(t, session.HttpOnly)
	})

	t.Run("ignores external redirect", func(t *testing.T) {
		rec := s.do(t, request{method: http.MethodPost, path: "/login", form: url.Values{
			"email":    {"parent@example.com"},
			"password": {"password123"},
			"redirect": {"//evil.example.com"},
		}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	})
}

func TestChildPlanAndObservationFlow(t *testing.T) {
	s := newTestServer(t)
	parent := s.signIn(t, "parent@example.com")
	birth := time.Now().AddDate(-2, -6, 0).Format("2006-01-02")

	rec := s.do(t, request{method: http.MethodPost, path: "/api/children", as: &parent,
		body: fmt.Sprintf(`{"name":"Ada","birthDate":%q,"interests":["animals"]}`, birth)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var child models.Child
	decodeBody(t, rec, &child)
	require.NotZero(t, child.ID)
	childPath := fmt.Sprintf("/api/children/%d", child.ID)

	rec = s.do(t, request{method: http.MethodPost, path: childPath + "/assessments", as: &parent,
		body: `{"skills":[{"skillId":"soc-empathy","status":"emerging"},{"skillId":"soc-boundaries","status":"mastered"}]}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, request{method: http.MethodGet, path: childPath + "/recommendations?concerns=empathy", as: &parent})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, request{method: http.MethodPost, path: childPath + "/plans", as: &parent, body: `{"concerns":["empathy"]}`})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var generated struct {
		Plan models.WeeklyPlan `json:"plan"`
	}
	decodeBody(t, rec, &generated)
	require.NotZero(t, generated.Plan.ID)

	rec = s.do(t, request{method: http.MethodGet, path: childPath + "/plans/current", as: &parent})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	observation := fmt.Sprintf(`{"id":"obs-1","childId":%d,"completionStatus":"completed","notes":"first",`+
		`"skillsDemonstrated":["soc-empathy"]}`, child.ID)
	rec = s.do(t, request{method: http.MethodPost, path: "/api/observations", as: &parent, body: observation})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// a replay answers with what was stored, not with the resent body
	resent := fmt.Sprintf(`{"id":"obs-1","childId":%d,"notes":"edited offline"}`, child.ID)
	rec = s.do(t, request{method: http.MethodPost, path: "/api/observations", as: &parent, body: resent})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var replayed models.ProgressRecord
	decodeBody(t, rec, &replayed)
	assert.Equal(t, "first", replayed.Notes)
	assert.Equal(t, models.CompletionCompleted, replayed.CompletionStatus)

	rec = s.do(t, request{method: http.MethodPost, path: "/api/children", as: &parent,
		body: fmt.Sprintf(`{"name":"Bea","birthDate":%q}`, birth)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sibling models.Child
	decodeBody(t, rec, &sibling)
	rec = s.do(t, request{method: http.MethodPost, path: "/api/observations", as: &parent,
		body: fmt.Sprintf(`{"id":"obs-1","childId":%d}`, sibling.ID)})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = s.do(t, request{method: http.MethodGet, path: childPath + "/progress", as: &parent})
	require.Equal(t, http.StatusOK, rec.Code)
	var records []models.ProgressRecord
	decodeBody(t, rec, &records)
	assert.Len(t, records, 1)

	rec = s.do(t, request{method: http.MethodGet, path: fmt.Sprintf("/children/%d", child.ID), as: &parent})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Ada")

	rec = s.do(t, request{method: http.MethodGet, path: "/dashboard", as: &parent})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestChildAccessIsScopedToOwner(t *testing.T) {
	s := newTestServer(t)
	owner := s.signIn(t, "owner@example.com")
	stranger := s.signIn(t, "stranger@example.com")
	birth := time.Now().AddDate(-3, 0, 0).Format("2006-01-02")

	rec := s.do(t, request{method: http.MethodPost, path: "/api/children", as: &owner,
		body: fmt.Sprintf(`{"name":"Ada","birthDate":%q}`, birth)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var child models.Child
	decodeBody(t, rec, &child)

	rec = s.do(t, request{method: http.MethodGet, path: fmt.Sprintf("/api/children/%d", child.ID), as: &stranger})
	assert.Contains(t, []int{http.StatusForbidden, http.StatusNotFound}, rec.Code)
}

func TestAPIValidation(t *testing.T) {
	s := newTestServer(t)
	parent := s.signIn(t, "parent@example.com")

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"missing name", `{"birthDate":"2023-01-02"}`, http.StatusBadRequest, "name"},
		{"bad date", `{"name":"Ada","birthDate":"02/01/2023"}`, http.StatusBadRequest, "birthDate"},
		{"unknown field", `{"name":"Ada","birthDate":"2023-01-02","shoeSize":3}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, request{method: http.MethodPost, path: "/api/children", as: &parent, body: tt.body})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.field != "" {
				var body errorBody
				decodeBody(t, rec, &body)
				assert.Contains(t, body.Fields, tt.field)
			}
		})
	}

	t.Run("form body rejected", func(t *testing.T) {
		rec := s.do(t, request{method: http.MethodPost, path: "/api/children", as: &parent,
			form: url.Values{"name": {"Ada"}}})
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})
}

func TestCSRFRequiredForCookieSessions(t *testing.T) {
	s := newTestServer(t)
	parent := s.signIn(t, "parent@example.com")

	rec := s.do(t, request{method: http.MethodPost, path: "/api/children", as: &parent, noCSRF: true,
		body: `{"name":"Ada","birthDate":"2023-01-02"}`})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, request{method: http.MethodPost, path: "/api/children", as: &parent, noCSRF: true,
		headers: map[string]string{CSRFHeaderName: "forged"},
		body:    `{"name":"Ada","birthDate":"2023-01-02"}`})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCron(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodGet, path: "/api/cron"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, request{method: http.MethodGet, path: "/api/cron",
		headers: map[string]string{"Authorization": "Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, request{method: http.MethodGet, path: "/api/cron?digest=false",
		headers: map[string]string{"Authorization": "Bearer cron-secret"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, body, "digest")
}

func TestCronDisabledWithoutSecret(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.CronSecret = "" })

	rec := s.do(t, request{method: http.MethodGet, path: "/api/cron",
		headers: map[string]string{"Authorization": "Bearer "}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetRole(t *testing.T) {
	s := newTestServer(t)
	s.signIn(t, "educator@example.com")
	body := `{"email":"educator@example.com","role":"educator"}`

	rec := s.do(t, request{method: http.MethodPost, path: "/api/auth/set-role", body: body,
		headers: map[string]string{AdminKeyHeader: "wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, request{method: http.MethodPost, path: "/api/auth/set-role", body: `{"email":"educator@example.com","role":"wizard"}`,
		headers: map[string]string{AdminKeyHeader: "admin-key"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, request{method: http.MethodPost, path: "/api/auth/set-role", body: body,
		headers: map[string]string{AdminKeyHeader: "admin-key"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	user, err := s.svc.Repos.Users.GetUserByEmail("educator@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEducator, user.Role)
}

func TestDiagnostics(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, request{method: http.MethodGet, path: "/api/check-env"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "cron-secret")
		assert.NotContains(t, rec.Body.String(), "admin-key")

		rec = s.do(t, request{method: http.MethodGet, path: "/api/simple-test-email"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = s.do(t, request{method: http.MethodGet, path: "/api/simple-test-email?email=someone@example.com"})
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, func(c *config.Config) { c.DiagnosticsEnabled = false })
		for _, path := range []string{"/api/check-env", "/api/test-email", "/api/simple-test-email", "/api/test-weekly-email"} {
			rec := s.do(t, request{method: http.MethodGet, path: path})
			assert.Equal(t, http.StatusNotFound, rec.Code, path)
		}
	})
}

func TestOfflineAssets(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodGet, path: "/service-worker.js"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Service-Worker-Allowed"))
	assert.Contains(t, rec.Body.String(), "sync-observations")

	rec = s.do(t, request{method: http.MethodGet, path: "/offline"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, request{method: http.MethodGet, path: "/static/style.css"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
