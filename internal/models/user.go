package models

import "time"

// Role is the access level carried by a user account or identity token
type Role string

const (
	RoleParent     Role = "parent"
	RoleEducator   Role = "educator"
	RoleAdmin      Role = "admin"
	RoleSpecialist Role = "specialist"
)

// ParseRole maps a claim or form value onto a known role, defaulting to parent
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleEducator, RoleAdmin, RoleSpecialist:
		return Role(s)
	default:
		return RoleParent
	}
}

// IsValidRole reports whether s names one of the assignable roles
func IsValidRole(s string) bool {
	switch Role(s) {
	case RoleParent, RoleEducator, RoleAdmin, RoleSpecialist:
		return true
	}
	return false
}

// LandingPath is the dashboard a role is sent to after login or on a denied route
func (r Role) LandingPath() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleEducator:
		return "/educator/dashboard"
	default:
		return "/dashboard"
	}
}

// User represents an account in the system
type User struct {
	ID            int64       `json:"id"`
	Email         string      `json:"email"`
	PasswordHash  string      `json:"-"`
	Name          string      `json:"name"`
	Role          Role        `json:"role"`
	OAuthProvider string      `json:"-"`
	OAuthSubject  string      `json:"-"`
	Preferences   Preferences `json:"preferences"`
	FamilyID      *int64      `json:"familyId,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsEducator() bool {
	return u.Role == RoleEducator || u.Role == RoleAdmin
}

// Preferences are stored as a JSON document on the user row
type Preferences struct {
	// ActivitiesPerDay maps weekday to desired activity count; absent days get none.
	ActivitiesPerDay map[Weekday]int `json:"activitiesPerDay,omitempty"`
	WeeklyDigest     bool            `json:"weeklyDigest"`
}

// DefaultActivitiesPerDay is used when a user has never set a schedule
func DefaultActivitiesPerDay() map[Weekday]int {
	return map[Weekday]int{Monday: 2, Wednesday: 2, Friday: 2}
}

// DayCounts returns the per-weekday activity counts, falling back to the default schedule
func (p Preferences) DayCounts() map[Weekday]int {
	if len(p.ActivitiesPerDay) == 0 {
		return DefaultActivitiesPerDay()
	}
	out := make(map[Weekday]int, len(p.ActivitiesPerDay))
	for day, n := range p.ActivitiesPerDay {
		if n > 0 && day.Valid() {
			out[day] = n
		}
	}
	return out
}

// Session represents an authenticated session
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// PasswordResetToken represents a token for password reset
type PasswordResetToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	Used      bool
}

// IsExpired checks if the reset token has expired
func (t *PasswordResetToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
