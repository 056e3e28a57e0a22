package service

import (
	"fmt"
	"strings"

	"learnsprout/internal/credentials"
	"learnsprout/internal/logger"
	"learnsprout/internal/models"
	"learnsprout/internal/repository"
	"learnsprout/internal/validation"
)

const joinCodeAttempts = 10

// InstitutionService handles institutions, classrooms and enrolment
type InstitutionService struct {
	institutionRepo *repository.InstitutionRepository
	children        *ChildService
	log             *logger.Logger
}

// NewInstitutionService creates a new institution service
func NewInstitutionService(institutionRepo *repository.InstitutionRepository, children *ChildService, log *logger.Logger) *InstitutionService {
	return &InstitutionService{
		institutionRepo: institutionRepo,
		children:        children,
		log:             log.With("service", "InstitutionService"),
	}
}

// CreateInstitution registers a school or centre administered by user
func (s *InstitutionService) CreateInstitution(user *models.User, name, kind string) (*models.Institution, error) {
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if kind = strings.TrimSpace(kind); kind == "" {
		kind = "school"
	}
	inst, err := s.institutionRepo.CreateInstitution(name, kind, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create institution: %w", err)
	}
	s.log.Info("institution created", "institution_id", inst.ID, "user_id", user.ID)
	return inst, nil
}

// Institutions lists every institution
func (s *InstitutionService) Institutions() ([]models.Institution, error) {
	institutions, err := s.institutionRepo.GetAllInstitutions()
	if err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	return institutions, nil
}

// CreateClassroom opens a classroom run by the educator with a fresh join code
func (s *InstitutionService) CreateClassroom(user *models.User, name, ageGroup string, institutionID *int64) (*models.Classroom, error) {
	if !user.IsEducator() {
		return nil, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if institutionID != nil {
		inst, err := s.institutionRepo.GetInstitutionByID(*institutionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get institution: %w", err)
		}
		if inst == nil {
			return nil, validation.ValidationError{Field: "institutionId", Message: "Institution not found"}
		}
	}

	code, err := s.uniqueJoinCode()
	if err != nil {
		return nil, err
	}
	classroom := &models.Classroom{
		InstitutionID: institutionID,
		Name:          name,
		EducatorID:    user.ID,
		AgeGroup:      strings.TrimSpace(ageGroup),
		JoinCode:      code,
		ChildIDs:      []int64{},
	}
	if err := s.institutionRepo.CreateClassroom(classroom); err != nil {
		return nil, fmt.Errorf("failed to create classroom: %w", err)
	}
	s.log.Info("classroom created", "classroom_id", classroom.ID, "user_id", user.ID)
	return classroom, nil
}

func (s *InstitutionService) uniqueJoinCode() (string, error) {
	for i := 0; i < joinCodeAttempts; i++ {
		code, err := credentials.GenerateJoinCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate join code: %w", err)
		}
		existing, err := s.institutionRepo.GetClassroomByJoinCode(code)
		if err != nil {
			return "", fmt.Errorf("failed to check join code: %w", err)
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique join code after %d attempts", joinCodeAttempts)
}

// JoinClassroom enrols a child the user may access into the classroom behind code
func (s *InstitutionService) JoinClassroom(user *models.User, code string, childID int64) (*models.Classroom, error) {
	child, err := s.children.GetChild(user, childID)
	if err != nil {
		return nil, err
	}
	classroom, err := s.institutionRepo.GetClassroomByJoinCode(credentials.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get classroom: %w", err)
	}
	if classroom == nil {
		return nil, ErrClassroomNotFound
	}
	if err := s.institutionRepo.EnrollChild(classroom.ID, child.ID); err != nil {
		return nil, fmt.Errorf("failed to enrol child: %w", err)
	}
	s.log.Info("child enrolled", "classroom_id", classroom.ID, "child_id", child.ID)
	return classroom, nil
}

// EducatorClassrooms lists the classrooms an educator runs
func (s *InstitutionService) EducatorClassrooms(user *models.User) ([]models.Classroom, error) {
	if !user.IsEducator() {
		return nil, ErrForbidden
	}
	classrooms, err := s.institutionRepo.GetEducatorClassrooms(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classrooms: %w", err)
	}
	if classrooms == nil {
		classrooms = []models.Classroom{}
	}
	return classrooms, nil
}
