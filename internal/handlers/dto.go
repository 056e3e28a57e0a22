package handlers

import (
	"strings"
	"time"

	"learnsprout/internal/models"
	"learnsprout/internal/service"
	"learnsprout/internal/validation"
)

type childRequest struct {
	Name      string   `json:"name" validate:"required,notblank,max=100"`
	BirthDate string   `json:"birthDate" validate:"required,datetime=2006-01-02"`
	Interests []string `json:"interests" validate:"max=20,dive,max=50"`
	Notes     string   `json:"notes" validate:"max=2000"`
	Active    *bool    `json:"active"`
}

func (c childRequest) input() (service.ChildInput, error) {
	birth, err := time.Parse(models.BirthDateLayout, c.BirthDate)
	if err != nil {
		return service.ChildInput{}, validation.ValidationError{Field: "birthDate", Message: "birth date must be YYYY-MM-DD"}
	}
	return service.ChildInput{
		Name:      c.Name,
		BirthDate: birth,
		Interests: c.Interests,
		Notes:     c.Notes,
		Active:    c.Active,
	}, nil
}

type assessmentEntryRequest struct {
	SkillID string `json:"skillId" validate:"required,notblank"`
	Status  string `json:"status" validate:"required,oneof=not_started emerging developing mastered"`
	Notes   string `json:"notes" validate:"max=2000"`
}

type assessmentRequest struct {
	Skills []assessmentEntryRequest `json:"skills" validate:"required,min=1,max=200,dive"`
	// Force lets an admin record a status lower than the current one
	Force bool `json:"force"`
}

func (a assessmentRequest) entries() []service.AssessmentEntry {
	out := make([]service.AssessmentEntry, len(a.Skills))
	for i, s := range a.Skills {
		out[i] = service.AssessmentEntry{SkillID: s.SkillID, Status: models.SkillStatus(s.Status), Notes: s.Notes}
	}
	return out
}

type generatePlanRequest struct {
	WeekStarting string   `json:"weekStarting" validate:"omitempty,datetime=2006-01-02"`
	Concerns     []string `json:"concerns" validate:"max=20,dive,max=200"`
	Goals        []string `json:"goals" validate:"max=20,dive,max=200"`
}

func (g generatePlanRequest) options(now time.Time) (service.GenerateOptions, error) {
	week := now
	if g.WeekStarting != "" {
		parsed, err := time.Parse(models.BirthDateLayout, g.WeekStarting)
		if err != nil {
			return service.GenerateOptions{}, validation.ValidationError{Field: "weekStarting", Message: "week must be YYYY-MM-DD"}
		}
		week = parsed
	}
	return service.GenerateOptions{
		WeekStart: models.StartOfWeek(week),
		Concerns:  g.Concerns,
		Goals:     g.Goals,
	}, nil
}

type entryStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=suggested confirmed completed"`
}

type observationRequest struct {
	ID                 string     `json:"id" validate:"max=64"`
	ChildID            int64      `json:"childId" validate:"required,gt=0"`
	ActivityID         string     `json:"activityId" validate:"max=100"`
	Date               *time.Time `json:"date"`
	CompletionStatus   string     `json:"completionStatus" validate:"omitempty,oneof=started in_progress completed"`
	EngagementLevel    string     `json:"engagementLevel" validate:"omitempty,oneof=low medium high"`
	InterestLevel      string     `json:"interestLevel" validate:"omitempty,oneof=low medium high"`
	DifficultyLevel    string     `json:"difficultyLevel" validate:"max=50"`
	Notes              string     `json:"notes" validate:"max=5000"`
	SkillsDemonstrated []string   `json:"skillsDemonstrated" validate:"max=50,dive,max=100"`
	ObservationType    string     `json:"observationType" validate:"max=50"`
}

func (o observationRequest) record() *models.ProgressRecord {
	rec := &models.ProgressRecord{
		ID:                 o.ID,
		ChildID:            o.ChildID,
		ActivityID:         strings.TrimSpace(o.ActivityID),
		CompletionStatus:   models.CompletionStatus(o.CompletionStatus),
		Engagement:         models.Level(o.EngagementLevel),
		Interest:           models.Level(o.InterestLevel),
		Difficulty:         o.DifficultyLevel,
		Notes:              o.Notes,
		SkillsDemonstrated: o.SkillsDemonstrated,
		ObservationType:    o.ObservationType,
	}
	if o.Date != nil {
		rec.ObservedAt = o.Date.UTC()
	}
	return rec
}

type ownedRequest struct {
	Owned *bool `json:"owned" validate:"required"`
}

type preferencesRequest struct {
	ActivitiesPerDay map[string]int `json:"activitiesPerDay" validate:"dive,keys,weekday,endkeys,min=0,max=10"`
	WeeklyDigest     *bool          `json:"weeklyDigest"`
}

func (p preferencesRequest) apply(current models.Preferences) models.Preferences {
	prefs := current
	if p.ActivitiesPerDay != nil {
		prefs.ActivitiesPerDay = make(map[models.Weekday]int, len(p.ActivitiesPerDay))
		for day, n := range p.ActivitiesPerDay {
			prefs.ActivitiesPerDay[models.Weekday(day)] = n
		}
	}
	if p.WeeklyDigest != nil {
		prefs.WeeklyDigest = *p.WeeklyDigest
	}
	return prefs
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type acceptInvitationRequest struct {
	Code string `json:"code" validate:"required,notblank,max=64"`
}

type renameFamilyRequest struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

type institutionRequest struct {
	Name string `json:"name" validate:"required,notblank,max=200"`
	Type string `json:"type" validate:"max=50"`
}

type classroomRequest struct {
	Name          string `json:"name" validate:"required,notblank,max=200"`
	AgeGroup      string `json:"ageGroup" validate:"omitempty,oneof=0-1 1-2 2-3 3-4 4-5 5-6 6+"`
	InstitutionID *int64 `json:"institutionId" validate:"omitempty,gt=0"`
}

type joinClassroomRequest struct {
	Code    string `json:"code" validate:"required,notblank,max=32"`
	ChildID int64  `json:"childId" validate:"required,gt=0"`
}

type setRoleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=parent educator admin specialist"`
}
