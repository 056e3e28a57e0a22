package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"learnsprout/internal/database"
	"learnsprout/internal/events"
	"learnsprout/internal/logger"
	"learnsprout/internal/models"
	"learnsprout/internal/repository"
	"learnsprout/internal/validation"
)

const (
	// demonstrations needed to move emerging to developing and developing to mastered
	developingThreshold = 3
	masteredThreshold   = 5
)

// ProgressService records observations and lets them advance skills
type ProgressService struct {
	db           *database.DB
	progressRepo *repository.ProgressRepository
	skillRepo    *repository.SkillRepository
	planRepo     *repository.PlanRepository
	children     *ChildService
	bus          events.Bus
	log          *logger.Logger
	now          func() time.Time
}

// NewProgressService creates a new progress service. bus may be nil.
func NewProgressService(db *database.DB, progressRepo *repository.ProgressRepository, skillRepo *repository.SkillRepository,
	planRepo *repository.PlanRepository, children *ChildService, bus events.Bus, log *logger.Logger) *ProgressService {
	return &ProgressService{
		db:           db,
		progressRepo: progressRepo,
		skillRepo:    skillRepo,
		planRepo:     planRepo,
		children:     children,
		bus:          bus,
		log:          log.With("service", "ProgressService"),
		now:          time.Now,
	}
}

// RecordObservation stores an observation. A record whose ID was already stored is
// a replay: it reports created=false, changes nothing, and overwrites rec with the
// stored record. Replaying an ID against a different child is ErrRecordIDConflict.
// New records advance the demonstrated skills and complete the matching entry of
// the week's plan.
func (s *ProgressService) RecordObservation(ctx context.Context, user *models.User, rec *models.ProgressRecord) (bool, error) {
	child, err := s.children.GetChild(user, rec.ChildID)
	if err != nil {
		return false, err
	}

	now := s.now().UTC()
	rec.ApplyDefaults(now)
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.UserID = user.ID
	rec.CreatedAt = now
	rec.SkillsDemonstrated = cleanSkillIDs(rec.SkillsDemonstrated)
	if err := rec.Validate(); err != nil {
		return false, validation.ValidationError{Field: "observation", Message: err.Error()}
	}

	var created bool
	err = s.db.WithTx(func(tx *database.Tx) error {
		repo := s.progressRepo.WithTx(tx)
		inserted, err := repo.InsertRecord(rec)
		if err != nil {
			return err
		}
		if !inserted {
			stored, err := repo.GetRecord(rec.ID)
			switch {
			case err != nil:
				return err
			case stored == nil || stored.ChildID != child.ID:
				return ErrRecordIDConflict
			}
			*rec = *stored
			return nil
		}
		created = true
		if err := s.advanceSkills(tx, child.ID, rec); err != nil {
			return err
		}
		if rec.ActivityID != "" && rec.CompletionStatus == models.CompletionCompleted {
			return s.completePlanEntry(tx, child.ID, rec)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to record observation: %w", err)
	}
	if !created {
		s.log.Debug("duplicate observation ignored", "record_id", rec.ID, "child_id", child.ID)
		return false, nil
	}

	if s.bus != nil {
		ev := events.Event{
			Type:       events.TypeObservationRecorded,
			ChildID:    child.ID,
			UserID:     user.ID,
			ActivityID: rec.ActivityID,
			RecordID:   rec.ID,
		}
		if err := s.bus.Publish(ctx, ev); err != nil {
			s.log.Warn("failed to publish event", "type", ev.Type, "error", err)
		}
	}
	return true, nil
}

func cleanSkillIDs(ids []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// advanceSkills moves demonstrated skills forward. Skills outside the catalog are ignored.
func (s *ProgressService) advanceSkills(tx *database.Tx, childID int64, rec *models.ProgressRecord) error {
	if len(rec.SkillsDemonstrated) == 0 {
		return nil
	}
	skillRepo := s.skillRepo.WithTx(tx)

	catalog, err := skillRepo.GetAllSkills()
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(catalog))
	for _, sk := range catalog {
		known[sk.ID] = true
	}

	current, err := skillRepo.GetChildSkills(childID)
	if err != nil {
		return err
	}
	byID := make(map[string]models.ChildSkill, len(current))
	for _, cs := range current {
		byID[cs.SkillID] = cs
	}

	history, err := s.progressRepo.WithTx(tx).GetChildRecords(childID, time.Time{})
	if err != nil {
		return err
	}
	counts := make(map[string]int)
	for _, r := range history {
		for _, id := range r.SkillsDemonstrated {
			counts[id]++
		}
	}

	for _, id := range rec.SkillsDemonstrated {
		if !known[id] {
			continue
		}
		existing, assessed := byID[id]
		prev := models.StatusNotStarted
		if assessed {
			prev = existing.Status
		}
		next := NextSkillStatus(prev, counts[id])
		if next == prev {
			continue
		}
		observed := rec.ObservedAt.UTC()
		err := skillRepo.UpsertChildSkill(models.ChildSkill{
			ChildID:      childID,
			SkillID:      id,
			Status:       next,
			Notes:        existing.Notes,
			LastAssessed: &observed,
		})
		if err != nil {
			return err
		}
		s.log.Info("skill advanced by observation", "child_id", childID, "skill", id, "from", prev, "to", next)
	}
	return nil
}

// NextSkillStatus applies the observation rules: any demonstration makes a skill
// emerging, three make it developing and five make it mastered. It never goes back.
func NextSkillStatus(current models.SkillStatus, demonstrations int) models.SkillStatus {
	if demonstrations <= 0 {
		return current
	}
	next := current
	switch current {
	case models.StatusEmerging:
		if demonstrations >= developingThreshold {
			next = models.StatusDeveloping
		}
	case models.StatusDeveloping:
		if demonstrations >= masteredThreshold {
			next = models.StatusMastered
		}
	case models.StatusMastered:
	default:
		next = models.StatusEmerging
	}
	return next
}

func (s *ProgressService) completePlanEntry(tx *database.Tx, childID int64, rec *models.ProgressRecord) error {
	planRepo := s.planRepo.WithTx(tx)
	plan, err := planRepo.GetLatestPlan(childID, rec.ObservedAt)
	if err != nil || plan == nil {
		return err
	}
	n, err := planRepo.CompleteActivity(plan.ID, rec.ActivityID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Debug("plan entry completed by observation", "plan_id", plan.ID, "activity_id", rec.ActivityID)
	}
	return nil
}

// ChildProgress lists a child's observations since the given time, newest first
func (s *ProgressService) ChildProgress(user *models.User, childID int64, since time.Time) ([]models.ProgressRecord, error) {
	child, err := s.children.GetChild(user, childID)
	if err != nil {
		return nil, err
	}
	records, err := s.progressRepo.GetChildRecords(child.ID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if records == nil {
		records = []models.ProgressRecord{}
	}
	return records, nil
}
