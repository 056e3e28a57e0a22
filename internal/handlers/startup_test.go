package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartupTrackerProgress(t *testing.T) {
	tracker := NewStartupTracker(StepDatabase, StepMigrations, StepCatalog, StepTemplates)

	tracker.Begin(StepDatabase)
	tracker.Complete(StepDatabase)
	tracker.Complete("not a step")

	snap := tracker.Snapshot()
	assert.False(t, snap.Ready)
	assert.Equal(t, StepDatabase, snap.Current)
	assert.Equal(t, 25, snap.Progress)
	assert.True(t, snap.Steps[0].Completed)
	assert.False(t, snap.Steps[1].Completed)
}

func TestStartupTrackerServesUntilReady(t *testing.T) {
	tracker := NewStartupTracker(StepDatabase)

	tests := []struct {
		name   string
		path   string
		accept string
		want   string
	}{
		{"api", "/api/children", "application/json", "application/json; charset=utf-8"},
		{"health", "/healthz", "", "application/json; charset=utf-8"},
		{"page", "/dashboard", "text/html,application/xhtml+xml", "text/html; charset=utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				r.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			tracker.ServeHTTP(rec, r)

			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, "2", rec.Header().Get("Retry-After"))
			assert.Equal(t, tt.want, rec.Header().Get("Content-Type"))
		})
	}

	var served bool
	tracker.MarkReady(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = true
		w.WriteHeader(http.StatusTeapot)
	}))
	require.True(t, tracker.IsReady())

	rec := httptest.NewRecorder()
	tracker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.True(t, served)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	tracker.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"progress":100`)
}
