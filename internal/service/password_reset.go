package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"learnsprout/internal/models"
	"learnsprout/internal/security"
	"learnsprout/internal/validation"
)

const resetTokenTTL = time.Hour

// RequestPasswordReset emails a reset link to a password account. Unknown
// addresses and Google-only accounts return nil without sending anything.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailService *EmailService, email string) error {
	user, err := s.userRepo.GetUserByEmail(strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("failed to look up reset account: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	if err := s.userRepo.DeleteUserPasswordResetTokens(user.ID); err != nil {
		s.log.Warn("failed to clear old reset tokens", "user_id", user.ID, "error", err)
	}
	if err := s.userRepo.CreatePasswordResetToken(resetDigest(token), user.ID, time.Now().Add(resetTokenTTL)); err != nil {
		return err
	}
	s.log.Info("password reset requested", "user_id", user.ID)

	if emailService == nil {
		return nil
	}
	if err := emailService.SendPasswordResetEmail(ctx, user.Email, user.Name, token); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

// ValidatePasswordResetToken reports whether token can still reset a password.
func (s *AuthService) ValidatePasswordResetToken(token string) (bool, error) {
	_, err := s.usableResetToken(token)
	if _, invalid := err.(validation.ValidationError); invalid {
		return false, nil
	}
	return err == nil, err
}

// ResetPassword sets a new password, burns the token and signs the user out
// everywhere.
func (s *AuthService) ResetPassword(token, newPassword string) error {
	rt, err := s.usableResetToken(token)
	if err != nil {
		return err
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(rt.UserID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.userRepo.MarkPasswordResetTokenAsUsed(rt.Token); err != nil {
		return err
	}
	if err := s.userRepo.DeleteUserSessions(rt.UserID); err != nil {
		return fmt.Errorf("failed to end sessions: %w", err)
	}
	s.log.Info("password reset completed", "user_id", rt.UserID)
	return nil
}

func (s *AuthService) usableResetToken(token string) (*models.PasswordResetToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, validation.ValidationError{Field: "token", Message: "invalid or expired reset token"}
	}
	rt, err := s.userRepo.GetPasswordResetToken(resetDigest(token))
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	switch {
	case rt == nil:
		return nil, validation.ValidationError{Field: "token", Message: "invalid or expired reset token"}
	case rt.Used:
		return nil, validation.ValidationError{Field: "token", Message: "this reset link has already been used"}
	case rt.IsExpired():
		return nil, validation.ValidationError{Field: "token", Message: "this reset link has expired"}
	}
	return rt, nil
}

// resetDigest is the form a reset token is stored in.
func resetDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
