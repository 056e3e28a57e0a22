package handlers

import (
	"net/url"
	"strings"

	"learnsprout/internal/models"
)

// GuardAction is what the route guard decided for a request
type GuardAction int

const (
	GuardAllow GuardAction = iota
	GuardRedirect
	GuardUnauthorized
	GuardForbidden
)

// GuardDecision is the outcome of Decide. Location is set for redirects.
type GuardDecision struct {
	Action   GuardAction
	Location string
}

var (
	publicAuthPaths = []string{"/login", "/signup", "/reset-password"}
	adminPaths      = []string{"/admin"}
	educatorPaths   = []string{"/educator", "/classroom"}
	memberPaths     = []string{"/dashboard", "/children", "/activities"}

	// API endpoints that authenticate themselves or are open diagnostics
	openAPIPaths = []string{
		"/api/check-env",
		"/api/test-email",
		"/api/simple-test-email",
		"/api/test-weekly-email",
		"/api/cron",
		"/api/auth/set-role",
	}
)

// Decide applies the route rules to path for user (nil when anonymous).
func Decide(path string, user *models.User) GuardDecision {
	if isAPIPath(path) {
		return decideAPI(path, user)
	}

	if matchesAny(path, publicAuthPaths) {
		if user != nil {
			return GuardDecision{Action: GuardRedirect, Location: user.Role.LandingPath()}
		}
		return GuardDecision{Action: GuardAllow}
	}

	var allowed func(*models.User) bool
	switch {
	case matchesAny(path, adminPaths):
		allowed = (*models.User).IsAdmin
	case matchesAny(path, educatorPaths):
		allowed = (*models.User).IsEducator
	case matchesAny(path, memberPaths):
		allowed = func(*models.User) bool { return true }
	default:
		return GuardDecision{Action: GuardAllow}
	}

	if user == nil {
		return GuardDecision{Action: GuardRedirect, Location: "/login?redirect=" + url.QueryEscape(path)}
	}
	if !allowed(user) {
		return GuardDecision{Action: GuardRedirect, Location: user.Role.LandingPath()}
	}
	return GuardDecision{Action: GuardAllow}
}

func decideAPI(path string, user *models.User) GuardDecision {
	if matchesAny(path, openAPIPaths) {
		return GuardDecision{Action: GuardAllow}
	}
	if user == nil {
		return GuardDecision{Action: GuardUnauthorized}
	}
	if matchesAny(path, []string{"/api/admin"}) && !user.IsAdmin() {
		return GuardDecision{Action: GuardForbidden}
	}
	return GuardDecision{Action: GuardAllow}
}

func isAPIPath(path string) bool {
	return hasPathPrefix(path, "/api")
}

func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if hasPathPrefix(path, p) {
			return true
		}
	}
	return false
}

// hasPathPrefix matches whole path segments, so /admin covers /admin/x but not /administrator
func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// safeRedirect returns target when it is a local path, otherwise fallback
func safeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return fallback
	}
	if u, err := url.Parse(target); err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return target
}
