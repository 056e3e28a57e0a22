package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"learnsprout/internal/credentials"
	"learnsprout/internal/logger"
	"learnsprout/internal/models"
	"learnsprout/internal/repository"
	"learnsprout/internal/validation"
)

// InvitationTTL is how long a family invitation stays valid
const InvitationTTL = 7 * 24 * time.Hour

// FamilyService handles families and their invitations
type FamilyService struct {
	familyRepo     *repository.FamilyRepository
	userRepo       *repository.UserRepository
	invitationRepo *repository.InvitationRepository
	email          *EmailService
	log            *logger.Logger
}

// NewFamilyService creates a new family service. email may be nil.
func NewFamilyService(familyRepo *repository.FamilyRepository, userRepo *repository.UserRepository,
	invitationRepo *repository.InvitationRepository, email *EmailService, log *logger.Logger) *FamilyService {
	return &FamilyService{
		familyRepo:     familyRepo,
		userRepo:       userRepo,
		invitationRepo: invitationRepo,
		email:          email,
		log:            log.With("service", "FamilyService"),
	}
}

// GetFamily returns the user's family and its members
func (s *FamilyService) GetFamily(user *models.User) (*models.FamilyWithMembers, error) {
	if user.FamilyID == nil {
		return nil, ErrFamilyNotFound
	}
	family, err := s.familyRepo.GetFamilyByID(*user.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	members, err := s.userRepo.GetFamilyMembers(family.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}
	return &models.FamilyWithMembers{Family: *family, Members: members}, nil
}

// ensureFamily returns the user's family, creating one when the user has none
func (s *FamilyService) ensureFamily(user *models.User) (*models.Family, error) {
	if user.FamilyID != nil {
		family, err := s.familyRepo.GetFamilyByID(*user.FamilyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get family: %w", err)
		}
		if family != nil {
			return family, nil
		}
	}
	family, err := s.familyRepo.CreateFamily(familyName(user.Name), user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}
	user.FamilyID = &family.ID
	return family, nil
}

// InviteMember creates an invitation for email to join the user's family and sends it
func (s *FamilyService) InviteMember(ctx context.Context, user *models.User, email string) (*models.Invitation, error) {
	email = strings.TrimSpace(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if strings.EqualFold(email, user.Email) {
		return nil, validation.ValidationError{Field: "email", Message: "You cannot invite yourself"}
	}

	family, err := s.ensureFamily(user)
	if err != nil {
		return nil, err
	}

	code, err := credentials.GenerateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation code: %w", err)
	}
	inv, err := s.invitationRepo.CreateInvitation(code, family.ID, email, user.ID, time.Now().Add(InvitationTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	inv.InviterName = user.Name

	if s.email != nil {
		if err := s.email.SendFamilyInvitation(ctx, inv, user.Name, family.Name); err != nil {
			// the code is still usable when delivery fails
			s.log.Warn("failed to send invitation email", "family_id", family.ID, "error", err)
		}
	}
	s.log.Info("family invitation created", "family_id", family.ID, "user_id", user.ID)
	return inv, nil
}

// AcceptInvitation moves the user (and the user's children) into the inviting family
func (s *FamilyService) AcceptInvitation(user *models.User, code string) (*models.Family, error) {
	inv, err := s.invitationRepo.GetInvitationByCode(credentials.NormalizeInviteCode(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if inv == nil || !inv.IsValid() {
		return nil, ErrInvitationInvalid
	}
	if !strings.EqualFold(strings.TrimSpace(inv.Email), strings.TrimSpace(user.Email)) {
		return nil, ErrInvitationMismatch
	}

	family, err := s.familyRepo.GetFamilyByID(inv.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	marked, err := s.invitationRepo.MarkInvitationUsed(inv.Code, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	if !marked {
		return nil, ErrInvitationInvalid
	}
	if err := s.familyRepo.JoinFamily(family.ID, user.ID); err != nil {
		return nil, fmt.Errorf("failed to join family: %w", err)
	}
	user.FamilyID = &family.ID
	s.log.Info("family invitation accepted", "family_id", family.ID, "user_id", user.ID)
	return family, nil
}

// ListInvitations lists the invitations sent for the user's family
func (s *FamilyService) ListInvitations(user *models.User) ([]models.Invitation, error) {
	if user.FamilyID == nil {
		return []models.Invitation{}, nil
	}
	invitations, err := s.invitationRepo.GetFamilyInvitations(*user.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// RenameFamily changes the family name; only the owner may do it
func (s *FamilyService) RenameFamily(user *models.User, name string) error {
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return err
	}
	family, err := s.ensureFamily(user)
	if err != nil {
		return err
	}
	if family.OwnerUserID != user.ID && !user.IsAdmin() {
		return ErrForbidden
	}
	if err := s.familyRepo.UpdateFamily(family.ID, name); err != nil {
		return fmt.Errorf("failed to rename family: %w", err)
	}
	return nil
}
