package service

import (
	"fmt"
	"strings"
	"time"

	"learnsprout/internal/logger"
	"learnsprout/internal/models"
	"learnsprout/internal/repository"
	"learnsprout/internal/validation"
)

// ChildInput holds the editable fields of a child profile
type ChildInput struct {
	Name      string
	BirthDate time.Time
	Interests []string
	Notes     string
	Active    *bool
}

// ChildService handles child profiles and who may see them
type ChildService struct {
	childRepo       *repository.ChildRepository
	institutionRepo *repository.InstitutionRepository
	log             *logger.Logger
	now             func() time.Time
}

// NewChildService creates a new child service
func NewChildService(childRepo *repository.ChildRepository, institutionRepo *repository.InstitutionRepository, log *logger.Logger) *ChildService {
	return &ChildService{
		childRepo:       childRepo,
		institutionRepo: institutionRepo,
		log:             log.With("service", "ChildService"),
		now:             time.Now,
	}
}

// CanAccess reports whether user may read and write child: the owner, a member
// of the child's family, an educator whose classroom holds the child, or an admin.
func (s *ChildService) CanAccess(user *models.User, child *models.Child) (bool, error) {
	if user == nil || child == nil {
		return false, nil
	}
	if user.IsAdmin() || child.UserID == user.ID {
		return true, nil
	}
	if child.FamilyID != nil && user.FamilyID != nil && *child.FamilyID == *user.FamilyID {
		return true, nil
	}
	if user.IsEducator() {
		ok, err := s.institutionRepo.IsEducatorOfChild(user.ID, child.ID)
		if err != nil {
			return false, err
		}
		return ok, nil
	}
	return false, nil
}

// GetChild loads a child the user may access
func (s *ChildService) GetChild(user *models.User, childID int64) (*models.Child, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return nil, ErrChildNotFound
	}
	ok, err := s.CanAccess(user, child)
	if err != nil {
		return nil, fmt.Errorf("failed to check child access: %w", err)
	}
	if !ok {
		return nil, ErrForbidden
	}
	return child, nil
}

// ListChildren returns the children visible to user. Admins see every child;
// educators see their own children plus those enrolled in their classrooms.
func (s *ChildService) ListChildren(user *models.User) ([]models.Child, error) {
	if user.IsAdmin() {
		children, err := s.childRepo.GetAllChildren()
		if err != nil {
			return nil, fmt.Errorf("failed to list children: %w", err)
		}
		return children, nil
	}

	children, err := s.childRepo.GetAccessibleChildren(user.ID, user.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	if !user.IsEducator() {
		return children, nil
	}

	enrolled, err := s.childRepo.GetClassroomChildren(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classroom children: %w", err)
	}
	seen := make(map[int64]bool, len(children))
	for _, c := range children {
		seen[c.ID] = true
	}
	for _, c := range enrolled {
		if !seen[c.ID] {
			children = append(children, c)
		}
	}
	return children, nil
}

// ClassroomChildren lists the children enrolled in an educator's classrooms
func (s *ChildService) ClassroomChildren(educator *models.User) ([]models.Child, error) {
	children, err := s.childRepo.GetClassroomChildren(educator.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classroom children: %w", err)
	}
	return children, nil
}

func (s *ChildService) validate(in *ChildInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.ValidateName(in.Name); err != nil {
		return err
	}
	if err := validation.ValidateBirthdate(in.BirthDate, s.now()); err != nil {
		return err
	}
	in.Interests = cleanInterests(in.Interests)
	return nil
}

func cleanInterests(interests []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, i := range interests {
		i = strings.TrimSpace(i)
		key := strings.ToLower(i)
		if i == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, i)
	}
	return out
}

// CreateChild adds a child owned by user and shared with the user's family
func (s *ChildService) CreateChild(user *models.User, in ChildInput) (*models.Child, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	child, err := s.childRepo.CreateChild(&models.Child{
		UserID:    user.ID,
		FamilyID:  user.FamilyID,
		Name:      in.Name,
		BirthDate: in.BirthDate,
		Interests: in.Interests,
		Notes:     strings.TrimSpace(in.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}
	s.log.Info("child created", "child_id", child.ID, "user_id", user.ID)
	return child, nil
}

// UpdateChild saves new profile fields for a child the user may access
func (s *ChildService) UpdateChild(user *models.User, childID int64, in ChildInput) (*models.Child, error) {
	child, err := s.GetChild(user, childID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	child.Name = in.Name
	child.BirthDate = in.BirthDate
	child.Interests = in.Interests
	child.Notes = strings.TrimSpace(in.Notes)
	if in.Active != nil {
		child.Active = *in.Active
	}
	if err := s.childRepo.UpdateChild(child); err != nil {
		return nil, fmt.Errorf("failed to update child: %w", err)
	}
	return child, nil
}

// DeleteChild removes a child. Only the owner or an admin may do this.
func (s *ChildService) DeleteChild(user *models.User, childID int64) error {
	child, err := s.GetChild(user, childID)
	if err != nil {
		return err
	}
	if child.UserID != user.ID && !user.IsAdmin() {
		return ErrForbidden
	}
	if err := s.childRepo.DeleteChild(childID); err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	s.log.Info("child deleted", "child_id", childID, "user_id", user.ID)
	return nil
}
