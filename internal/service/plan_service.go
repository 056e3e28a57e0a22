package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"learnsprout/internal/catalog"
	"learnsprout/internal/events"
	"learnsprout/internal/logger"
	"learnsprout/internal/models"
	"learnsprout/internal/recommend"
	"learnsprout/internal/repository"
)

const (
	// EvolutionThreshold is how many observations newer than a plan trigger a fresh one
	EvolutionThreshold = 3

	planHistoryWindow = 30 * 24 * time.Hour
	autoGenerateLimit = 4
)

// GenerateOptions tune a plan generation request
type GenerateOptions struct {
	WeekStart time.Time
	Concerns  []string
	Goals     []string
	CreatedBy string
}

// PlanDetails is a plan with its activities resolved
type PlanDetails struct {
	Plan       *models.WeeklyPlan         `json:"plan"`
	Activities map[string]models.Activity `json:"activities"`
}

// PlanService builds recommendations and weekly plans
type PlanService struct {
	planRepo     *repository.PlanRepository
	skillRepo    *repository.SkillRepository
	activityRepo *repository.ActivityRepository
	progressRepo *repository.ProgressRepository
	childRepo    *repository.ChildRepository
	userRepo     *repository.UserRepository
	children     *ChildService
	bus          events.Bus
	log          *logger.Logger
	now          func() time.Time
}

// NewPlanService creates a new plan service. bus may be nil.
func NewPlanService(planRepo *repository.PlanRepository, skillRepo *repository.SkillRepository,
	activityRepo *repository.ActivityRepository, progressRepo *repository.ProgressRepository,
	childRepo *repository.ChildRepository, userRepo *repository.UserRepository,
	children *ChildService, bus events.Bus, log *logger.Logger) *PlanService {
	return &PlanService{
		planRepo:     planRepo,
		skillRepo:    skillRepo,
		activityRepo: activityRepo,
		progressRepo: progressRepo,
		childRepo:    childRepo,
		userRepo:     userRepo,
		children:     children,
		bus:          bus,
		log:          log.With("service", "PlanService"),
		now:          time.Now,
	}
}

// Recommendations runs the matcher for a child the user may access
func (s *PlanService) Recommendations(user *models.User, childID int64, concerns, goals []string) (recommend.Recommendations, error) {
	child, err := s.children.GetChild(user, childID)
	if err != nil {
		return recommend.Recommendations{}, err
	}
	return s.recommendationsFor(child, concerns, goals)
}

func (s *PlanService) recommendationsFor(child *models.Child, concerns, goals []string) (recommend.Recommendations, error) {
	statuses, err := s.skillRepo.GetChildSkillStatuses(child.ID)
	if err != nil {
		return recommend.Recommendations{}, fmt.Errorf("failed to load child skills: %w", err)
	}
	skills, err := s.skillRepo.GetAllSkills()
	if err != nil {
		return recommend.Recommendations{}, fmt.Errorf("failed to load skills: %w", err)
	}
	activities, err := s.activityRepo.GetActiveActivities()
	if err != nil {
		return recommend.Recommendations{}, fmt.Errorf("failed to load activities: %w", err)
	}

	return recommend.Match(recommend.MatchInput{
		Statuses:   statuses,
		Concerns:   concerns,
		Goals:      goals,
		Skills:     skills,
		Activities: catalog.ForAgeGroup(activities, child.AgeGroup(s.now())),
	}), nil
}

// GeneratePlan assembles and stores a new plan. Earlier plans for the same week are kept.
func (s *PlanService) GeneratePlan(ctx context.Context, user *models.User, childID int64, opts GenerateOptions) (*models.WeeklyPlan, error) {
	child, err := s.children.GetChild(user, childID)
	if err != nil {
		return nil, err
	}
	if opts.CreatedBy == "" {
		opts.CreatedBy = "user:" + fmt.Sprint(user.ID)
	}
	return s.generateForChild(ctx, child, opts)
}

func (s *PlanService) generateForChild(ctx context.Context, child *models.Child, opts GenerateOptions) (*models.WeeklyPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if opts.WeekStart.IsZero() {
		opts.WeekStart = now
	}

	owner, err := s.userRepo.GetUserByID(child.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load child owner: %w", err)
	}
	dayCounts := models.DefaultActivitiesPerDay()
	if owner != nil {
		dayCounts = owner.Preferences.DayCounts()
	}

	recs, err := s.recommendationsFor(child, opts.Concerns, opts.Goals)
	if err != nil {
		return nil, err
	}
	history, err := s.progressRepo.GetChildRecords(child.ID, now.Add(-planHistoryWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to load progress history: %w", err)
	}

	plan := recommend.AssemblePlan(recommend.PlanInput{
		ChildID:         child.ID,
		UserID:          child.UserID,
		WeekStart:       opts.WeekStart,
		DayCounts:       dayCounts,
		Recommendations: recs,
		Interests:       child.Interests,
		History:         history,
		CreatedBy:       opts.CreatedBy,
		Now:             now,
	})
	if err := s.planRepo.CreatePlan(plan); err != nil {
		return nil, fmt.Errorf("failed to store plan: %w", err)
	}

	s.log.Info("plan generated", "child_id", child.ID, "plan_id", plan.ID,
		"week", plan.WeekStart.Format(models.WeekLayout), "entries", plan.Count(), "created_by", plan.CreatedBy)
	return plan, nil
}

// CurrentPlan returns the newest plan for the child's current week
func (s *PlanService) CurrentPlan(user *models.User, childID int64) (*PlanDetails, error) {
	return s.PlanForWeek(user, childID, s.now())
}

// PlanForWeek returns the newest plan for the week containing weekOf
func (s *PlanService) PlanForWeek(user *models.User, childID int64, weekOf time.Time) (*PlanDetails, error) {
	child, err := s.children.GetChild(user, childID)
	if err != nil {
		return nil, err
	}
	plan, err := s.planRepo.GetLatestPlan(child.ID, weekOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return s.details(plan)
}

// GetPlan loads a plan by ID with an access check on its child
func (s *PlanService) GetPlan(user *models.User, planID int64) (*PlanDetails, error) {
	plan, err := s.authorizedPlan(user, planID)
	if err != nil {
		return nil, err
	}
	return s.details(plan)
}

// PlanHistory lists every stored plan of a child, newest week first
func (s *PlanService) PlanHistory(user *models.User, childID int64) ([]models.WeeklyPlan, error) {
	child, err := s.children.GetChild(user, childID)
	if err != nil {
		return nil, err
	}
	plans, err := s.planRepo.GetPlansForChild(child.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plans: %w", err)
	}
	return plans, nil
}

func (s *PlanService) authorizedPlan(user *models.User, planID int64) (*models.WeeklyPlan, error) {
	plan, err := s.planRepo.GetPlanByID(planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	if _, err := s.children.GetChild(user, plan.ChildID); err != nil {
		if errors.Is(err, ErrChildNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) details(plan *models.WeeklyPlan) (*PlanDetails, error) {
	activities, err := s.activityRepo.GetActivitiesByIDs(plan.ActivityIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to load plan activities: %w", err)
	}
	return &PlanDetails{Plan: plan, Activities: activities}, nil
}

// UpdateEntryStatus moves one plan entry to a new status and announces it on the bus
func (s *PlanService) UpdateEntryStatus(ctx context.Context, user *models.User, planID int64, day models.Weekday, order int, status models.PlanStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	day = models.Weekday(strings.ToLower(string(day)))
	if !day.Valid() {
		return ErrPlanEntryNotFound
	}

	plan, err := s.authorizedPlan(user, planID)
	if err != nil {
		return err
	}

	var activityID string
	for _, entry := range plan.Days[day] {
		if entry.Order == order {
			activityID = entry.ActivityID
		}
	}

	updated, err := s.planRepo.UpdateEntryStatus(plan.ID, day, order, status)
	if err != nil {
		return fmt.Errorf("failed to update plan entry: %w", err)
	}
	if !updated {
		return ErrPlanEntryNotFound
	}

	s.publish(ctx, events.Event{
		Type:       events.TypeActivityStatusChanged,
		ChildID:    plan.ChildID,
		UserID:     user.ID,
		PlanID:     plan.ID,
		ActivityID: activityID,
		Day:        string(day),
		Status:     string(status),
	})
	return nil
}

func (s *PlanService) publish(ctx context.Context, ev events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn("failed to publish event", "type", ev.Type, "error", err)
	}
}

// AutoGenerate creates this week's and next week's plan for every active child
// that has none yet. It returns how many plans were created.
func (s *PlanService) AutoGenerate(ctx context.Context) (int, error) {
	children, err := s.childRepo.GetActiveChildren()
	if err != nil {
		return 0, fmt.Errorf("failed to list active children: %w", err)
	}

	thisWeek := models.StartOfWeek(s.now())
	weeks := []time.Time{thisWeek, thisWeek.AddDate(0, 0, 7)}

	created := make([]int, len(children))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(autoGenerateLimit)
	for i := range children {
		child := children[i]
		g.Go(func() error {
			for _, week := range weeks {
				existing, err := s.planRepo.GetLatestPlan(child.ID, week)
				if err != nil {
					return fmt.Errorf("child %d: %w", child.ID, err)
				}
				if existing != nil {
					continue
				}
				if _, err := s.generateForChild(gctx, &child, GenerateOptions{WeekStart: week, CreatedBy: "auto"}); err != nil {
					return fmt.Errorf("child %d: %w", child.ID, err)
				}
				created[i]++
			}
			return nil
		})
	}
	err = g.Wait()

	total := 0
	for _, n := range created {
		total += n
	}
	s.log.Info("auto plan generation finished", "children", len(children), "created", total)
	return total, err
}

// EvolveIfNeeded generates a new current-week plan when enough observations have
// been recorded since the current plan was created. It reports whether it did.
func (s *PlanService) EvolveIfNeeded(ctx context.Context, childID int64) (bool, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return false, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || !child.Active {
		return false, nil
	}

	plan, err := s.planRepo.GetLatestPlan(child.ID, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to load plan: %w", err)
	}
	if plan == nil {
		return false, nil
	}

	n, err := s.progressRepo.CountRecordsAfter(child.ID, plan.CreatedAt)
	if err != nil {
		return false, err
	}
	if n < EvolutionThreshold {
		return false, nil
	}

	if _, err := s.generateForChild(ctx, child, GenerateOptions{WeekStart: plan.WeekStart, CreatedBy: "evolution"}); err != nil {
		return false, err
	}
	return true, nil
}

// HandleEvent reacts to bus events; it is registered as the bus forwarder
func (s *PlanService) HandleEvent(ev events.Event) {
	if ev.Type != events.TypeObservationRecorded {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	evolved, err := s.EvolveIfNeeded(ctx, ev.ChildID)
	if err != nil {
		s.log.Error("plan evolution failed", "child_id", ev.ChildID, "error", err)
		return
	}
	if evolved {
		s.log.Info("plan evolved", "child_id", ev.ChildID)
	}
}
