// Package validation holds the hand-written field checks shared by services.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxChildAgeYears bounds how old a new child profile may be
	MaxChildAgeYears = 7

	minPasswordLen = 8
	// bcrypt ignores everything past 72 bytes
	maxPasswordBytes = 72
	maxNameLen       = 100
)

// ValidationError names the offending field and a message safe to show users.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateEmail accepts a bare address with a dotted domain. Display-name
// forms like "Ada <ada@example.com>" are rejected.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return invalid("email", "invalid email format")
	}
	_, domain, _ := strings.Cut(email, "@")
	if i := strings.LastIndex(domain, "."); i <= 0 || len(domain)-i-1 < 2 {
		return invalid("email", "invalid email format")
	}
	return nil
}

func ValidatePassword(password string) error {
	switch {
	case password == "":
		return invalid("password", "password is required")
	case utf8.RuneCountInString(password) < minPasswordLen:
		return invalid("password", "password must be at least %d characters", minPasswordLen)
	case len(password) > maxPasswordBytes:
		return invalid("password", "password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}

// ValidateName checks a person's or child's display name.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	switch {
	case n == 0:
		return invalid("name", "name is required")
	case n < 2:
		return invalid("name", "name must be at least 2 characters")
	case n > maxNameLen:
		return invalid("name", "name must be at most %d characters", maxNameLen)
	}
	return nil
}

// ValidateBirthdate requires a date in the past and no more than MaxChildAgeYears ago
func ValidateBirthdate(birthDate, now time.Time) error {
	switch {
	case birthDate.IsZero():
		return invalid("birthDate", "birth date is required")
	case birthDate.After(now):
		return invalid("birthDate", "birth date cannot be in the future")
	case birthDate.Before(now.AddDate(-MaxChildAgeYears, 0, 0)):
		return invalid("birthDate", "child must be %d years old or younger", MaxChildAgeYears)
	}
	return nil
}
