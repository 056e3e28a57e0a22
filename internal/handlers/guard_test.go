package handlers

import (
	"testing"

	"learnsprout/internal/models"
)

func TestDecide(t *testing.T) {
	parent := &models.User{ID: 1, Role: models.RoleParent}
	educator := &models.User{ID: 2, Role: models.RoleEducator}
	admin := &models.User{ID: 3, Role: models.RoleAdmin}
	specialist := &models.User{ID: 4, Role: models.RoleSpecialist}

	tests := []struct {
		name     string
		path     string
		user     *models.User
		action   GuardAction
		location string
	}{
		{"anonymous login page", "/login", nil, GuardAllow, ""},
		{"parent on login goes home", "/login", parent, GuardRedirect, "/dashboard"},
		{"educator on signup goes to educator dashboard", "/signup", educator, GuardRedirect, "/educator/dashboard"},
		{"admin on reset page goes to admin dashboard", "/reset-password", admin, GuardRedirect, "/admin/dashboard"},
		{"anonymous dashboard", "/dashboard", nil, GuardRedirect, "/login?redirect=%2Fdashboard"},
		{"anonymous child page", "/children/7", nil, GuardRedirect, "/login?redirect=%2Fchildren%2F7"},
		{"parent dashboard", "/dashboard", parent, GuardAllow, ""},
		{"specialist activities", "/activities/act-1", specialist, GuardAllow, ""},
		{"parent on educator area", "/educator/dashboard", parent, GuardRedirect, "/dashboard"},
		{"parent on classroom area", "/classroom/3", parent, GuardRedirect, "/dashboard"},
		{"educator on educator area", "/educator/dashboard", educator, GuardAllow, ""},
		{"admin on educator area", "/classroom/3", admin, GuardAllow, ""},
		{"educator on admin area", "/admin/dashboard", educator, GuardRedirect, "/educator/dashboard"},
		{"admin on admin area", "/admin/dashboard", admin, GuardAllow, ""},
		{"segment match only", "/administrator", nil, GuardAllow, ""},
		{"anonymous home", "/", nil, GuardAllow, ""},
		{"anonymous offline page", "/offline", nil, GuardAllow, ""},
		{"anonymous api", "/api/children", nil, GuardUnauthorized, ""},
		{"parent api", "/api/children", parent, GuardAllow, ""},
		{"parent admin api", "/api/admin/users", parent, GuardForbidden, ""},
		{"admin admin api", "/api/admin/users", admin, GuardAllow, ""},
		{"diagnostics are open", "/api/check-env", nil, GuardAllow, ""},
		{"cron checks its own secret", "/api/cron", nil, GuardAllow, ""},
		{"set-role checks its own key", "/api/auth/set-role", nil, GuardAllow, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.path, tt.user)
			if got.Action != tt.action {
				t.Fatalf("Decide(%q) action = %v, want %v", tt.path, got.Action, tt.action)
			}
			if got.Location != tt.location {
				t.Errorf("Decide(%q) location = %q, want %q", tt.path, got.Location, tt.location)
			}
		})
	}
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/children/4", "/children/4"},
		{"", "/dashboard"},
		{"https://evil.example", "/dashboard"},
		{"//evil.example", "/dashboard"},
		{"/\\evil.example", "/dashboard"},
		{"relative", "/dashboard"},
	}
	for _, tt := range tests {
		if got := safeRedirect(tt.target, "/dashboard"); got != tt.want {
			t.Errorf("safeRedirect(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}
