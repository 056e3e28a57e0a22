package service

import (
	"fmt"
	"sort"
	"time"

	"learnsprout/internal/catalog"
	"learnsprout/internal/logger"
	"learnsprout/internal/models"
	"learnsprout/internal/recommend"
	"learnsprout/internal/repository"
)

// MaxForecastDays caps the window a caller may ask for
const MaxForecastDays = 366

// MaterialService handles the materials inventory and forecasts
type MaterialService struct {
	materialRepo *repository.MaterialRepository
	activityRepo *repository.ActivityRepository
	planRepo     *repository.PlanRepository
	children     *ChildService
	defaultDays  int
	log          *logger.Logger
	now          func() time.Time
}

// NewMaterialService creates a new material service
func NewMaterialService(materialRepo *repository.MaterialRepository, activityRepo *repository.ActivityRepository,
	planRepo *repository.PlanRepository, children *ChildService, defaultDays int, log *logger.Logger) *MaterialService {
	if defaultDays <= 0 {
		defaultDays = recommend.DefaultForecastDays
	}
	return &MaterialService{
		materialRepo: materialRepo,
		activityRepo: activityRepo,
		planRepo:     planRepo,
		children:     children,
		defaultDays:  defaultDays,
		log:          log.With("service", "MaterialService"),
		now:          time.Now,
	}
}

// Forecast ranks the materials the user's plans need over the next days days,
// starting with the current week. days <= 0 uses the configured default.
func (s *MaterialService) Forecast(user *models.User, days int) ([]recommend.ForecastItem, error) {
	if days <= 0 {
		days = s.defaultDays
	}
	if days > MaxForecastDays {
		days = MaxForecastDays
	}

	from := models.StartOfWeek(s.now())
	to := from.AddDate(0, 0, days)

	plans, err := s.planRepo.GetPlansForUserBetween(user.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load plans: %w", err)
	}

	var ids []string
	for i := range plans {
		ids = append(ids, plans[i].ActivityIDs()...)
	}
	activities, err := s.activityRepo.GetActivitiesByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	materials, err := s.materialRepo.GetAllMaterials()
	if err != nil {
		return nil, fmt.Errorf("failed to load materials: %w", err)
	}
	owned, err := s.materialRepo.GetOwnedMaterialIDs(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	return recommend.Forecast(recommend.ForecastInput{
		Plans:      plans,
		Activities: activities,
		Materials:  materials,
		Owned:      owned,
		From:       from,
		To:         to,
	}), nil
}

// Materials returns the material catalog
func (s *MaterialService) Materials() ([]models.Material, error) {
	materials, err := s.materialRepo.GetAllMaterials()
	if err != nil {
		return nil, fmt.Errorf("failed to load materials: %w", err)
	}
	return materials, nil
}

// OwnedIDs lists the material IDs in the user's inventory
func (s *MaterialService) OwnedIDs(user *models.User) ([]string, error) {
	owned, err := s.materialRepo.GetOwnedMaterialIDs(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	ids := make([]string, 0, len(owned))
	for id, has := range owned {
		if has {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// SetOwned adds or removes a material from the user's inventory
func (s *MaterialService) SetOwned(user *models.User, materialID string, owned bool) error {
	material, err := s.materialRepo.GetMaterialByID(materialID)
	if err != nil {
		return fmt.Errorf("failed to get material: %w", err)
	}
	if material == nil {
		return ErrMaterialNotFound
	}
	if err := s.materialRepo.SetOwned(user.ID, material.ID, owned); err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}
	return nil
}

// DoableActivities lists the activities for the child's age the user can run with
// household items and owned materials alone
func (s *MaterialService) DoableActivities(user *models.User, childID int64) ([]models.Activity, error) {
	child, err := s.children.GetChild(user, childID)
	if err != nil {
		return nil, err
	}
	activities, err := s.activityRepo.GetActiveActivities()
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	materials, err := s.materialRepo.GetAllMaterials()
	if err != nil {
		return nil, fmt.Errorf("failed to load materials: %w", err)
	}
	owned, err := s.materialRepo.GetOwnedMaterialIDs(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	suitable := catalog.ForAgeGroup(activities, child.AgeGroup(s.now()))
	doable := recommend.DoableActivities(suitable, materials, owned)
	if doable == nil {
		doable = []models.Activity{}
	}
	return doable, nil
}
