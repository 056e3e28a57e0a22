package models

import (
	"regexp"
	"strings"
	"time"
)

// Material is something an activity needs; household items are filtered out of forecasts
type Material struct {
	ID                   string   `json:"id" yaml:"id"`
	Name                 string   `json:"name" yaml:"name"`
	NormalizedName       string   `json:"normalizedName" yaml:"-"`
	Category             string   `json:"category" yaml:"category"`
	HouseholdAlternative string   `json:"householdAlternative,omitempty" yaml:"householdAlternative"`
	PurchaseLinks        []string `json:"purchaseLinks,omitempty" yaml:"purchaseLinks"`
}

// UserMaterial records whether a user owns a material
type UserMaterial struct {
	UserID      int64     `json:"userId"`
	MaterialID  string    `json:"materialId"`
	InInventory bool      `json:"inInventory"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeMaterialName lower-cases a name and collapses punctuation and spacing,
// so "Pouring Pitcher (small)" and "pouring pitcher small" compare equal.
func NormalizeMaterialName(name string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " "), " ")
}
