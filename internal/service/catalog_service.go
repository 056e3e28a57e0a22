package service

import (
	"fmt"
	"html/template"

	"learnsprout/internal/catalog"
	"learnsprout/internal/logger"
	"learnsprout/internal/mailer"
	"learnsprout/internal/models"
	"learnsprout/internal/repository"
)

// SeedReport counts the catalog rows written by Seed
type SeedReport struct {
	Skills     int `json:"skills"`
	Materials  int `json:"materials"`
	Activities int `json:"activities"`
}

// ActivityView is an activity with rendered instructions and resolved skill names
type ActivityView struct {
	models.Activity
	InstructionsHTML template.HTML `json:"instructionsHtml"`
	SkillNames       []string      `json:"skillNames"`
}

// CatalogService loads and serves the skill, material and activity catalog
type CatalogService struct {
	skillRepo    *repository.SkillRepository
	activityRepo *repository.ActivityRepository
	materialRepo *repository.MaterialRepository
	log          *logger.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(skillRepo *repository.SkillRepository, activityRepo *repository.ActivityRepository,
	materialRepo *repository.MaterialRepository, log *logger.Logger) *CatalogService {
	return &CatalogService{
		skillRepo:    skillRepo,
		activityRepo: activityRepo,
		materialRepo: materialRepo,
		log:          log.With("service", "CatalogService"),
	}
}

// Seed upserts every catalog entry; rerunning it updates rows in place
func (s *CatalogService) Seed(c *catalog.Catalog) (SeedReport, error) {
	var report SeedReport
	for activityID, ids := range c.UnresolvedSkills() {
		s.log.Warn("activity references unknown skills", "activity", activityID, "skills", ids)
	}
	for _, skill := range c.Skills {
		if err := s.skillRepo.UpsertSkill(skill); err != nil {
			return report, fmt.Errorf("failed to seed skill %s: %w", skill.ID, err)
		}
		report.Skills++
	}
	for _, m := range c.Materials {
		if err := s.materialRepo.UpsertMaterial(m); err != nil {
			return report, fmt.Errorf("failed to seed material %s: %w", m.ID, err)
		}
		report.Materials++
	}
	for _, a := range c.Activities {
		if err := s.activityRepo.UpsertActivity(a); err != nil {
			return report, fmt.Errorf("failed to seed activity %s: %w", a.ID, err)
		}
		report.Activities++
	}
	s.log.Info("catalog seeded", "skills", report.Skills, "materials", report.Materials, "activities", report.Activities)
	return report, nil
}

// SeedIfEmpty loads the embedded default catalog when no skills are stored yet
func (s *CatalogService) SeedIfEmpty() (bool, error) {
	skills, err := s.skillRepo.GetAllSkills()
	if err != nil {
		return false, fmt.Errorf("failed to check catalog: %w", err)
	}
	if len(skills) > 0 {
		return false, nil
	}
	c, err := catalog.Default()
	if err != nil {
		return false, err
	}
	if _, err := s.Seed(c); err != nil {
		return false, err
	}
	return true, nil
}

// Activities lists active activities, optionally limited to an age group and area
func (s *CatalogService) Activities(ageGroup string, area models.DevelopmentalArea) ([]models.Activity, error) {
	activities, err := s.activityRepo.GetActiveActivities()
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	if ageGroup != "" {
		activities = catalog.ForAgeGroup(activities, ageGroup)
	}
	if area == "" {
		if activities == nil {
			activities = []models.Activity{}
		}
		return activities, nil
	}
	out := []models.Activity{}
	for _, a := range activities {
		if a.Area == area {
			out = append(out, a)
		}
	}
	return out, nil
}

// Activity returns one activity with markdown instructions rendered to HTML
func (s *CatalogService) Activity(id string) (*ActivityView, error) {
	a, err := s.activityRepo.GetActivityByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	if a == nil {
		return nil, ErrActivityNotFound
	}
	html, err := mailer.RenderMarkdown(a.Instructions)
	if err != nil {
		return nil, err
	}
	skills, err := s.skillRepo.GetAllSkills()
	if err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}
	names := catalog.SkillNames(skills)
	view := &ActivityView{Activity: *a, InstructionsHTML: html, SkillNames: make([]string, 0, len(a.SkillsAddressed))}
	for _, id := range a.SkillsAddressed {
		view.SkillNames = append(view.SkillNames, catalog.SkillName(names, id))
	}
	return view, nil
}
