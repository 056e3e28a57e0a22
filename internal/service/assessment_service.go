package service

import (
	"fmt"
	"strings"
	"time"

	"learnsprout/internal/catalog"
	"learnsprout/internal/database"
	"learnsprout/internal/logger"
	"learnsprout/internal/models"
	"learnsprout/internal/repository"
)

// AssessmentEntry is one skill status in an assessment
type AssessmentEntry struct {
	SkillID string
	Status  models.SkillStatus
	Notes   string
}

// ChildSkillView is a child's skill status resolved against the catalog
type ChildSkillView struct {
	SkillID      string                   `json:"skillId"`
	SkillName    string                   `json:"skillName"`
	Area         models.DevelopmentalArea `json:"area,omitempty"`
	Status       models.SkillStatus       `json:"status"`
	Notes        string                   `json:"notes,omitempty"`
	LastAssessed *time.Time               `json:"lastAssessed,omitempty"`
}

// AssessmentService records skill assessments for children
type AssessmentService struct {
	db        *database.DB
	skillRepo *repository.SkillRepository
	childRepo *repository.ChildRepository
	children  *ChildService
	log       *logger.Logger
	now       func() time.Time
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(db *database.DB, skillRepo *repository.SkillRepository, childRepo *repository.ChildRepository,
	children *ChildService, log *logger.Logger) *AssessmentService {
	return &AssessmentService{
		db:        db,
		skillRepo: skillRepo,
		childRepo: childRepo,
		children:  children,
		log:       log.With("service", "AssessmentService"),
		now:       time.Now,
	}
}

// SaveAssessment stores every entry and stamps the child's last assessment in one
// transaction. Entries that would move a status backwards fail the whole save with
// a *RegressionError unless force is set by an admin.
func (s *AssessmentService) SaveAssessment(user *models.User, childID int64, entries []AssessmentEntry, force bool) error {
	child, err := s.children.GetChild(user, childID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	skills, err := s.skillRepo.GetAllSkills()
	if err != nil {
		return fmt.Errorf("failed to load skills: %w", err)
	}
	known := catalog.SkillNames(skills)

	for i := range entries {
		entries[i].SkillID = strings.TrimSpace(entries[i].SkillID)
		if _, ok := known[entries[i].SkillID]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSkill, entries[i].SkillID)
		}
		if !entries[i].Status.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidStatus, entries[i].Status)
		}
	}

	current, err := s.skillRepo.GetChildSkillStatuses(child.ID)
	if err != nil {
		return fmt.Errorf("failed to load child skills: %w", err)
	}

	overrideAllowed := force && user.IsAdmin()
	var regressed []string
	for _, e := range entries {
		if prev, ok := current[e.SkillID]; ok && prev.Regresses(e.Status) {
			regressed = append(regressed, e.SkillID)
		}
	}
	if len(regressed) > 0 && !overrideAllowed {
		return &RegressionError{SkillIDs: regressed}
	}

	now := s.now().UTC()
	err = s.db.WithTx(func(tx *database.Tx) error {
		skillRepo := s.skillRepo.WithTx(tx)
		for _, e := range entries {
			err := skillRepo.UpsertChildSkill(models.ChildSkill{
				ChildID:      child.ID,
				SkillID:      e.SkillID,
				Status:       e.Status,
				Notes:        strings.TrimSpace(e.Notes),
				LastAssessed: &now,
			})
			if err != nil {
				return err
			}
		}
		return s.childRepo.WithTx(tx).SetLastAssessed(child.ID, now)
	})
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}

	if len(regressed) > 0 {
		s.log.Warn("assessment forced status regression", "child_id", child.ID, "user_id", user.ID, "skills", regressed)
	}
	s.log.Info("assessment saved", "child_id", child.ID, "entries", len(entries))
	return nil
}

// ChildSkills lists a child's assessed skills with catalog names. Skills missing
// from the catalog are reported with the unknown name.
func (s *AssessmentService) ChildSkills(user *models.User, childID int64) ([]ChildSkillView, error) {
	child, err := s.children.GetChild(user, childID)
	if err != nil {
		return nil, err
	}
	skills, err := s.skillRepo.GetAllSkills()
	if err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}
	byID := make(map[string]models.DevelopmentalSkill, len(skills))
	for _, sk := range skills {
		byID[sk.ID] = sk
	}
	names := catalog.SkillNames(skills)

	assessed, err := s.skillRepo.GetChildSkills(child.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load child skills: %w", err)
	}
	out := make([]ChildSkillView, 0, len(assessed))
	for _, cs := range assessed {
		out = append(out, ChildSkillView{
			SkillID:      cs.SkillID,
			SkillName:    catalog.SkillName(names, cs.SkillID),
			Area:         byID[cs.SkillID].Area,
			Status:       cs.Status,
			Notes:        cs.Notes,
			LastAssessed: cs.LastAssessed,
		})
	}
	return out, nil
}

// Skills returns the full skill catalog
func (s *AssessmentService) Skills() ([]models.DevelopmentalSkill, error) {
	skills, err := s.skillRepo.GetAllSkills()
	if err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}
	return skills, nil
}
