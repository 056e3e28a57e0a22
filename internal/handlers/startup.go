package handlers

import (
	"html/template"
	"net/http"
	"strings"
	"sync"
)

// Startup step names reported while the server initializes
const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepCatalog    = "Seeding activity catalog"
	StepTemplates  = "Loading templates"
	StepServices   = "Initializing services"
)

// StartupStep is one initialization stage
type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// StartupSnapshot is a point-in-time copy of the tracker state
type StartupSnapshot struct {
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

// StartupTracker answers requests while the server initializes and hands
// them to the application handler once MarkReady is called.
type StartupTracker struct {
	mu      sync.RWMutex
	ready   bool
	current string
	steps   []StartupStep
	app     http.Handler
}

// NewStartupTracker creates a tracker for the named steps
func NewStartupTracker(steps ...string) *StartupTracker {
	t := &StartupTracker{current: "Initializing..."}
	for _, name := range steps {
		t.steps = append(t.steps, StartupStep{Name: name})
	}
	return t
}

// Begin records the step currently running
func (t *StartupTracker) Begin(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = step
}

// Complete marks a step as done
func (t *StartupTracker) Complete(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.steps {
		if t.steps[i].Name == step {
			t.steps[i].Completed = true
			break
		}
	}
}

// MarkReady switches all further requests to app
func (t *StartupTracker) MarkReady(app http.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.app = app
	t.ready = true
	t.current = "Server ready"
	for i := range t.steps {
		t.steps[i].Completed = true
	}
}

// IsReady reports whether MarkReady has been called
func (t *StartupTracker) IsReady() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Snapshot copies the current state
func (t *StartupTracker) Snapshot() StartupSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := StartupSnapshot{
		Ready:   t.ready,
		Current: t.current,
		Steps:   append([]StartupStep(nil), t.steps...),
	}
	if t.ready {
		snap.Progress = 100
		return snap
	}
	if len(t.steps) > 0 {
		completed := 0
		for _, step := range t.steps {
			if step.Completed {
				completed++
			}
		}
		snap.Progress = completed * 100 / len(t.steps)
	}
	return snap
}

// Health reports the startup state; 503 until ready
func (t *StartupTracker) Health(w http.ResponseWriter, r *http.Request) {
	snap := t.Snapshot()
	status := http.StatusOK
	if !snap.Ready {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, snap)
}

func (t *StartupTracker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.mu.RLock()
	app := t.app
	t.mu.RUnlock()
	if app != nil {
		app.ServeHTTP(w, r)
		return
	}

	w.Header().Set("Retry-After", "2")
	if r.URL.Path == "/healthz" || isAPIPath(r.URL.Path) || !strings.Contains(r.Header.Get("Accept"), "text/html") {
		t.Health(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	if err := startupPage.Execute(w, t.Snapshot()); err != nil {
		errorLog.Error("Error rendering startup page", "error", err)
	}
}

var startupPage = template.Must(template.New("startup").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<meta http-equiv="refresh" content="2">
	<title>LearnSprout - Starting Up</title>
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: #f4f7f2; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
		.container { background: white; border-radius: 16px; padding: 32px; box-shadow: 0 10px 30px rgba(0,0,0,0.1); max-width: 460px; width: 100%; }
		h1 { color: #2f5d3a; text-align: center; margin: 0 0 8px; }
		.progress-bar { height: 10px; background: #e3e8e0; border-radius: 5px; overflow: hidden; margin: 20px 0; }
		.progress-fill { height: 100%; background: #5a9a68; }
		.steps { list-style: none; padding: 0; }
		.step { padding: 8px 0; border-bottom: 1px solid #eef1ec; color: #555; }
		.step.completed { color: #2f7a45; }
		.current { text-align: center; color: #5a9a68; font-style: italic; margin-top: 16px; }
	</style>
</head>
<body>
	<div class="container">
		<h1>LearnSprout</h1>
		<div class="progress-bar"><div class="progress-fill" style="width: {{.Progress}}%"></div></div>
		<ul class="steps">
			{{range .Steps}}<li class="step{{if .Completed}} completed{{end}}">{{if .Completed}}&#10003;{{else}}&#9675;{{end}} {{.Name}}</li>
			{{end}}
		</ul>
		<div class="current">{{.Current}}</div>
	</div>
</body>
</html>`))
