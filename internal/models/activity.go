package models

import (
	"errors"
	"strings"
	"time"
)

type EnvironmentType string

const (
	EnvironmentHome      EnvironmentType = "home"
	EnvironmentBridge    EnvironmentType = "bridge"
	EnvironmentClassroom EnvironmentType = "classroom"
)

// Activity is a catalog entry a plan can schedule
type Activity struct {
	ID              string            `json:"id" yaml:"id"`
	Title           string            `json:"title" yaml:"title"`
	Description     string            `json:"description" yaml:"description"`
	Instructions    string            `json:"instructions" yaml:"instructions"`
	Area            DevelopmentalArea `json:"area" yaml:"area"`
	SkillsAddressed []string          `json:"skillsAddressed" yaml:"skillsAddressed"`
	MaterialsNeeded []string          `json:"materialsNeeded" yaml:"materialsNeeded"`
	DurationMinutes int               `json:"duration" yaml:"duration"`
	Difficulty      string            `json:"difficulty" yaml:"difficulty"`
	EnvironmentType EnvironmentType   `json:"environmentType" yaml:"environmentType"`
	AgeRanges       []string          `json:"ageRanges" yaml:"ageRanges"`
	Prerequisites   []string          `json:"prerequisites" yaml:"prerequisites"`
	Status          string            `json:"status" yaml:"status"`
	CreatedAt       time.Time         `json:"createdAt" yaml:"-"`
}

// Addresses reports whether the activity is tagged with skillID
func (a *Activity) Addresses(skillID string) bool {
	for _, id := range a.SkillsAddressed {
		if id == skillID {
			return true
		}
	}
	return false
}

// SearchText is the lower-cased text keyword matching runs against
func (a *Activity) SearchText() string {
	return strings.ToLower(a.Title + " " + a.Description)
}

// Validate checks the fields a catalog import must carry
func (a *Activity) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("activity id is required")
	}
	if strings.TrimSpace(a.Title) == "" {
		return errors.New("activity title is required")
	}
	if !a.Area.Valid() {
		return errors.New("activity area is invalid: " + string(a.Area))
	}
	switch a.EnvironmentType {
	case EnvironmentHome, EnvironmentBridge, EnvironmentClassroom, "":
	default:
		return errors.New("activity environment type is invalid: " + string(a.EnvironmentType))
	}
	return nil
}
