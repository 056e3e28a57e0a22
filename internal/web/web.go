// Package web embeds the server-rendered templates and static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
	"time"

	"learnsprout/internal/models"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Templates parses every page template with the shared function map
func Templates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(FuncMap()).ParseFS(templateFiles, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// Static returns the static asset tree rooted at static/
func Static() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// FuncMap holds the helpers templates may call
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"formatDatePtr": func(t *time.Time) string {
			if t == nil {
				return "never"
			}
			return t.Format("Jan 2, 2006")
		},
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"humanize": func(s interface{}) string {
			text := strings.ReplaceAll(fmt.Sprint(s), "_", " ")
			if text == "" {
				return text
			}
			return strings.ToUpper(text[:1]) + text[1:]
		},
		"join": strings.Join,
		"ageGroup": func(birthDate time.Time) string {
			return models.AgeGroupFor(birthDate, time.Now())
		},
		"formatAge": func(birthDate time.Time) string {
			return models.FormatAge(birthDate, time.Now())
		},
		"dayEntries": func(p *models.WeeklyPlan, day models.Weekday) []models.PlanActivity {
			if p == nil {
				return nil
			}
			return p.Days[day]
		},
		"activityTitle": func(activities map[string]models.Activity, id string) string {
			if a, ok := activities[id]; ok && a.Title != "" {
				return a.Title
			}
			return id
		},
	}
}
