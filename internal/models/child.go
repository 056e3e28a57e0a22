package models

import (
	"fmt"
	"time"
)

// BirthDateLayout is the storage and wire format of Child.BirthDate
const BirthDateLayout = "2006-01-02"

// Child is a profile owned by a parent account
type Child struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"userId"`
	FamilyID       *int64     `json:"familyId,omitempty"`
	Name           string     `json:"name"`
	BirthDate      time.Time  `json:"birthDate"`
	Interests      []string   `json:"interests"`
	Notes          string     `json:"notes"`
	Active         bool       `json:"active"`
	LastAssessedAt *time.Time `json:"lastAssessedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// AgeGroup is derived from the birth date rather than stored
func (c *Child) AgeGroup(now time.Time) string {
	return AgeGroupFor(c.BirthDate, now)
}

// AgeGroupFor buckets a birth date into the one-year groups used for catalog filtering
func AgeGroupFor(birthDate, now time.Time) string {
	years, _ := ageParts(birthDate, now)
	switch {
	case years < 1:
		return "0-1"
	case years < 2:
		return "1-2"
	case years < 3:
		return "2-3"
	case years < 4:
		return "3-4"
	case years < 5:
		return "4-5"
	case years < 6:
		return "5-6"
	default:
		return "6+"
	}
}

// FormatAge renders an age like "2 years, 3 months" or "9 months"
func FormatAge(birthDate, now time.Time) string {
	years, months := ageParts(birthDate, now)
	if years == 0 {
		return plural(months, "month")
	}
	if months == 0 {
		return plural(years, "year")
	}
	return plural(years, "year") + ", " + plural(months, "month")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func ageParts(birthDate, now time.Time) (years, months int) {
	totalMonths := (now.Year()-birthDate.Year())*12 + int(now.Month()) - int(birthDate.Month())
	if now.Day() < birthDate.Day() {
		totalMonths--
	}
	if totalMonths < 0 {
		totalMonths = 0
	}
	return totalMonths / 12, totalMonths % 12
}
