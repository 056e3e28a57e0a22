package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")

	ErrChildNotFound     = errors.New("child not found")
	ErrForbidden         = errors.New("access denied")
	ErrStatusRegression  = errors.New("skill status cannot move backwards")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrUnknownSkill      = errors.New("unknown skill")
	ErrPlanNotFound      = errors.New("plan not found")
	ErrPlanEntryNotFound = errors.New("plan entry not found")
	ErrActivityNotFound  = errors.New("activity not found")
	ErrMaterialNotFound  = errors.New("material not found")
	ErrRecordIDConflict  = errors.New("observation id belongs to another child")

	ErrFamilyNotFound     = errors.New("family not found")
	ErrInvitationInvalid  = errors.New("invitation is invalid or expired")
	ErrInvitationMismatch = errors.New("invitation was sent to a different email")
	ErrClassroomNotFound  = errors.New("classroom not found")
)

// RegressionError lists the skills an assessment tried to move backwards
type RegressionError struct {
	SkillIDs []string
}

func (e *RegressionError) Error() string {
	ids := append([]string{}, e.SkillIDs...)
	sort.Strings(ids)
	return fmt.Sprintf("%s: %s", ErrStatusRegression.Error(), strings.Join(ids, ", "))
}

func (e *RegressionError) Unwrap() error {
	return ErrStatusRegression
}
