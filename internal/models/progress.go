package models

import (
	"errors"
	"time"
)

type CompletionStatus string

const (
	CompletionStarted    CompletionStatus = "started"
	CompletionInProgress CompletionStatus = "in_progress"
	CompletionCompleted  CompletionStatus = "completed"
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// ProgressRecord is a single observation of a child doing an activity.
// ID may be supplied by an offline client so replays are idempotent.
type ProgressRecord struct {
	ID                 string           `json:"id"`
	ChildID            int64            `json:"childId"`
	UserID             int64            `json:"userId"`
	ActivityID         string           `json:"activityId"`
	ObservedAt         time.Time        `json:"date"`
	CompletionStatus   CompletionStatus `json:"completionStatus"`
	Engagement         Level            `json:"engagementLevel"`
	Interest           Level            `json:"interestLevel"`
	Difficulty         string           `json:"difficultyLevel"`
	Notes              string           `json:"notes"`
	SkillsDemonstrated []string         `json:"skillsDemonstrated"`
	ObservationType    string           `json:"observationType"`
	CreatedAt          time.Time        `json:"createdAt"`
}

// ApplyDefaults fills the fields observers usually leave blank
func (p *ProgressRecord) ApplyDefaults(now time.Time) {
	if p.CompletionStatus == "" {
		p.CompletionStatus = CompletionCompleted
	}
	if p.Engagement == "" {
		p.Engagement = LevelMedium
	}
	if p.Interest == "" {
		p.Interest = LevelMedium
	}
	if p.Difficulty == "" {
		p.Difficulty = "appropriate"
	}
	if p.ObservationType == "" {
		p.ObservationType = "general"
	}
	if p.ObservedAt.IsZero() {
		p.ObservedAt = now
	}
}

func (p *ProgressRecord) Validate() error {
	if p.ChildID <= 0 {
		return errors.New("child id is required")
	}
	switch p.CompletionStatus {
	case CompletionStarted, CompletionInProgress, CompletionCompleted:
	default:
		return errors.New("completion status is invalid")
	}
	for _, level := range []Level{p.Engagement, p.Interest} {
		switch level {
		case LevelLow, LevelMedium, LevelHigh:
		default:
			return errors.New("engagement and interest must be low, medium or high")
		}
	}
	return nil
}
