// Package catalog loads the developmental skill, activity and material
// catalogs from YAML. A default catalog is embedded and used to seed new
// databases.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"learnsprout/internal/models"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// UnknownSkillName is shown in place of skills an activity references but the catalog lacks
const UnknownSkillName = "Unknown"

// Catalog is the parsed content of a catalog file
type Catalog struct {
	Skills     []models.DevelopmentalSkill `yaml:"skills"`
	Activities []models.Activity           `yaml:"activities"`
	Materials  []models.Material           `yaml:"materials"`
}

// Default parses the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads and parses a catalog from r
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, fills derived fields and validates the result
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for i := range c.Materials {
		c.Materials[i].NormalizedName = models.NormalizeMaterialName(c.Materials[i].Name)
	}
	for i := range c.Activities {
		if c.Activities[i].Status == "" {
			c.Activities[i].Status = "active"
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports duplicate IDs and invalid areas. Unresolved skill
// references are allowed; see UnresolvedSkills.
func (c *Catalog) Validate() error {
	var errs []error

	skillIDs := make(map[string]bool, len(c.Skills))
	for _, s := range c.Skills {
		if s.ID == "" {
			errs = append(errs, errors.New("skill id is required"))
			continue
		}
		if skillIDs[s.ID] {
			errs = append(errs, fmt.Errorf("duplicate skill id %q", s.ID))
		}
		skillIDs[s.ID] = true
		if !s.Area.Valid() {
			errs = append(errs, fmt.Errorf("skill %q has invalid area %q", s.ID, s.Area))
		}
	}

	activityIDs := make(map[string]bool, len(c.Activities))
	for _, a := range c.Activities {
		if err := a.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("activity %q: %w", a.ID, err))
			continue
		}
		if activityIDs[a.ID] {
			errs = append(errs, fmt.Errorf("duplicate activity id %q", a.ID))
		}
		activityIDs[a.ID] = true
	}

	materialIDs := make(map[string]bool, len(c.Materials))
	for _, m := range c.Materials {
		if m.ID == "" || m.Name == "" {
			errs = append(errs, errors.New("material id and name are required"))
			continue
		}
		if materialIDs[m.ID] {
			errs = append(errs, fmt.Errorf("duplicate material id %q", m.ID))
		}
		materialIDs[m.ID] = true
	}

	return errors.Join(errs...)
}

// UnresolvedSkills maps activity IDs to skill IDs they reference that the catalog lacks
func (c *Catalog) UnresolvedSkills() map[string][]string {
	known := make(map[string]bool, len(c.Skills))
	for _, s := range c.Skills {
		known[s.ID] = true
	}
	out := make(map[string][]string)
	for _, a := range c.Activities {
		for _, id := range a.SkillsAddressed {
			if !known[id] {
				out[a.ID] = append(out[a.ID], id)
			}
		}
	}
	return out
}

// SkillNames maps each skill ID to its display name
func SkillNames(skills []models.DevelopmentalSkill) map[string]string {
	out := make(map[string]string, len(skills))
	for _, s := range skills {
		out[s.ID] = s.Name
	}
	return out
}

// SkillName resolves a skill ID against names, falling back to UnknownSkillName
func SkillName(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return UnknownSkillName
}

// ForAgeGroup returns the activities suitable for ageGroup, keeping catalog order.
// Activities without age ranges suit every group.
func ForAgeGroup(activities []models.Activity, ageGroup string) []models.Activity {
	var out []models.Activity
	for _, a := range activities {
		if len(a.AgeRanges) == 0 {
			out = append(out, a)
			continue
		}
		for _, r := range a.AgeRanges {
			if r == ageGroup {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// Areas lists the distinct areas the skills cover, sorted
func (c *Catalog) Areas() []models.DevelopmentalArea {
	seen := make(map[models.DevelopmentalArea]bool)
	var out []models.DevelopmentalArea
	for _, s := range c.Skills {
		if !seen[s.Area] {
			seen[s.Area] = true
			out = append(out, s.Area)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
