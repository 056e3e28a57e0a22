package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"learnsprout/internal/credentials"
	"learnsprout/internal/identity"
	"learnsprout/internal/logger"
	"learnsprout/internal/models"
	"learnsprout/internal/repository"
	"learnsprout/internal/security"
	"learnsprout/internal/validation"
)

// IdentityProvider is the oauth provider name recorded for identity-token users
const IdentityProvider = "identity"

// AuthService handles authentication business logic
type AuthService struct {
	userRepo        *repository.UserRepository
	familyRepo      *repository.FamilyRepository
	invitationRepo  *repository.InvitationRepository
	sessionDuration time.Duration
	log             *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, familyRepo *repository.FamilyRepository,
	invitationRepo *repository.InvitationRepository, sessionDuration time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		familyRepo:      familyRepo,
		invitationRepo:  invitationRepo,
		sessionDuration: sessionDuration,
		log:             log.With("service", "AuthService"),
	}
}

// Register creates a parent account. With an invite code the account joins the
// inviting family; otherwise a family is created for it.
func (s *AuthService) Register(email, password, name, inviteCode string) (*models.User, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	existingUser, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	invitation, err := s.checkInvitation(inviteCode, email)
	if err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(email, passwordHash, name, models.RoleParent)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.settleFamily(user, invitation)
	return user, nil
}

// checkInvitation returns the valid invitation behind code, or nil when code is empty
func (s *AuthService) checkInvitation(code, email string) (*models.Invitation, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	inv, err := s.invitationRepo.GetInvitationByCode(credentials.NormalizeInviteCode(code))
	if err != nil {
		return nil, fmt.Errorf("failed to check invitation: %w", err)
	}
	if inv == nil || !inv.IsValid() {
		return nil, ErrInvitationInvalid
	}
	if !strings.EqualFold(strings.TrimSpace(inv.Email), strings.TrimSpace(email)) {
		return nil, ErrInvitationMismatch
	}
	return inv, nil
}

// settleFamily joins the invited family or creates one. Failures are logged and
// never fail the signup; the user can still accept an invitation later.
func (s *AuthService) settleFamily(user *models.User, invitation *models.Invitation) {
	if invitation != nil {
		if err := s.familyRepo.JoinFamily(invitation.FamilyID, user.ID); err != nil {
			s.log.Warn("failed to join invited family", "user_id", user.ID, "family_id", invitation.FamilyID, "error", err)
			return
		}
		if _, err := s.invitationRepo.MarkInvitationUsed(invitation.Code, user.ID); err != nil {
			s.log.Warn("failed to mark invitation used", "user_id", user.ID, "error", err)
		}
		user.FamilyID = &invitation.FamilyID
		return
	}

	family, err := s.familyRepo.CreateFamily(familyName(user.Name), user.ID)
	if err != nil {
		s.log.Warn("failed to create family", "user_id", user.ID, "error", err)
		return
	}
	user.FamilyID = &family.ID
}

func familyName(userName string) string {
	first := strings.Fields(userName)
	if len(first) == 0 {
		return "My family"
	}
	return first[0] + "'s family"
}

// Login checks a password and opens a session. Unknown emails and wrong
// passwords both report ErrInvalidCredentials.
func (s *AuthService) Login(email, password string) (*models.Session, *models.User, error) {
	user, err := s.userRepo.GetUserByEmail(strings.TrimSpace(email))
	switch {
	case err != nil:
		return nil, nil, fmt.Errorf("login lookup: %w", err)
	case user == nil, user.PasswordHash == "", !security.CheckPassword(password, user.PasswordHash):
		return nil, nil, ErrInvalidCredentials
	}
	return s.openSession(user)
}

func (s *AuthService) openSession(user *models.User) (*models.Session, *models.User, error) {
	session, err := s.userRepo.CreateSession(security.NewToken(), user.ID, time.Now().Add(s.sessionDuration))
	if err != nil {
		return nil, nil, fmt.Errorf("open session for user %d: %w", user.ID, err)
	}
	return session, user, nil
}

// ValidateSession resolves a session cookie to its user. Expired sessions are
// removed as they are seen.
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	session, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	switch {
	case session == nil:
		return nil, ErrSessionNotFound
	case session.IsExpired():
		if err := s.userRepo.DeleteSession(sessionID); err != nil {
			s.log.Warn("dropping expired session", "error", err)
		}
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// externalAccount is a login asserted by someone other than us: an OAuth
// provider or the identity-token issuer.
type externalAccount struct {
	provider      string
	subject       string
	email         string
	name          string
	role          models.Role
	// emailVerified allows attaching to an existing account with the same email
	emailVerified bool
}

// resolveExternal finds the account linked to (provider, subject), links an
// unlinked account with the same verified email, or creates one. created
// reports the last case. An email that is taken but cannot be linked is
// ErrEmailTaken.
func (s *AuthService) resolveExternal(acct externalAccount, beforeCreate func() error) (user *models.User, created bool, err error) {
	user, err = s.userRepo.GetUserByOAuth(acct.provider, acct.subject)
	if err != nil || user != nil {
		return user, false, err
	}

	if acct.email != "" {
		user, err = s.userRepo.GetUserByEmail(acct.email)
		if err != nil {
			return nil, false, err
		}
	}
	if user != nil {
		// the subject lookup missed, so any existing link belongs to someone else
		if !acct.emailVerified || user.OAuthProvider != "" {
			return nil, false, ErrEmailTaken
		}
		return user, false, s.userRepo.LinkOAuthProvider(user.ID, acct.provider, acct.subject)
	}

	if beforeCreate != nil {
		if err := beforeCreate(); err != nil {
			return nil, false, err
		}
	}
	email := acct.email
	if email == "" {
		email = acct.subject + "@identity.invalid"
	}
	name := acct.name
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	if user, err = s.userRepo.CreateUser(email, "", name, acct.role); err != nil {
		return nil, false, err
	}
	return user, true, s.userRepo.LinkOAuthProvider(user.ID, acct.provider, acct.subject)
}

// ResolvePrincipal maps a verified identity token onto a local account,
// creating it on first sight. A role claim in the token wins over the stored
// role; a token without one leaves the stored role alone.
func (s *AuthService) ResolvePrincipal(p *identity.Principal) (*models.User, error) {
	if p == nil || p.Subject == "" {
		return nil, errors.New("missing identity principal")
	}

	user, created, err := s.resolveExternal(externalAccount{
		provider:      IdentityProvider,
		subject:       p.Subject,
		email:         p.Email,
		name:          p.Name,
		role:          p.Role,
		emailVerified: p.EmailVerified,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve identity %s: %w", p.Subject, err)
	}
	if created {
		s.settleFamily(user, nil)
		return user, nil
	}

	if p.RoleClaimed && user.Role != p.Role {
		if err := s.userRepo.SetRole(user.ID, p.Role); err != nil {
			return nil, fmt.Errorf("sync identity role: %w", err)
		}
		user.Role = p.Role
	}
	return user, nil
}

// OAuthLogin signs in through an external provider. The caller must have
// checked that the provider verified email. First-time users become parents
// and join the invited family when inviteCode is valid for their email.
func (s *AuthService) OAuthLogin(provider, subject, email, name, inviteCode string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, errors.New("missing oauth provider information")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	var invitation *models.Invitation
	user, created, err := s.resolveExternal(externalAccount{
		provider:      provider,
		subject:       subject,
		email:         email,
		name:          name,
		role:          models.RoleParent,
		emailVerified: true,
	}, func() (err error) {
		invitation, err = s.checkInvitation(inviteCode, email)
		return err
	})
	switch {
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrInvitationInvalid), errors.Is(err, ErrInvitationMismatch):
		return nil, nil, err
	case err != nil:
		return nil, nil, fmt.Errorf("resolve %s account: %w", provider, err)
	}
	if created {
		s.log.Info("account created via oauth", "user_id", user.ID, "provider", provider)
		s.settleFamily(user, invitation)
	}
	return s.openSession(user)
}

// Logout ends a session.
func (s *AuthService) Logout(sessionID string) error {
	if err := s.userRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired drops expired sessions and password reset tokens.
func (s *AuthService) PurgeExpired() error {
	return errors.Join(
		s.userRepo.DeleteExpiredSessions(),
		s.userRepo.DeleteExpiredPasswordResetTokens(),
	)
}

// SetRole changes the role of the account registered under email
func (s *AuthService) SetRole(email, role string) (*models.User, error) {
	if !models.IsValidRole(role) {
		return nil, ErrInvalidRole
	}
	user, err := s.userRepo.GetUserByEmail(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := s.userRepo.SetRole(user.ID, models.Role(role)); err != nil {
		return nil, fmt.Errorf("failed to set role: %w", err)
	}
	user.Role = models.Role(role)
	s.log.Info("role changed", "user_id", user.ID, "role", role)
	return user, nil
}

// UpdatePreferences validates and stores a user's planning preferences
func (s *AuthService) UpdatePreferences(user *models.User, prefs models.Preferences) error {
	for day, n := range prefs.ActivitiesPerDay {
		if !day.Valid() {
			return validation.ValidationError{Field: "activitiesPerDay", Message: "Unknown weekday " + string(day)}
		}
		if n < 0 || n > 10 {
			return validation.ValidationError{Field: "activitiesPerDay", Message: "Activities per day must be between 0 and 10"}
		}
	}
	if err := s.userRepo.UpdatePreferences(user.ID, prefs); err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	user.Preferences = prefs
	return nil
}
