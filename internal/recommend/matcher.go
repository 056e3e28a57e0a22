package recommend

import (
	"sort"
	"strings"

	"learnsprout/internal/models"
)

// Bucket names the three groups skills are sorted into
type Bucket string

const (
	BucketStrengths   Bucket = "strengths"
	BucketGrowthAreas Bucket = "growthAreas"
	BucketMaintenance Bucket = "maintenance"
)

// BucketFor maps a skill status onto its bucket.
// Unknown statuses are treated like not_started.
func BucketFor(status models.SkillStatus) Bucket {
	switch status {
	case models.StatusMastered:
		return BucketMaintenance
	case models.StatusDeveloping:
		return BucketStrengths
	default:
		return BucketGrowthAreas
	}
}

// SkillMatch is one skill with the activities that address it, best first
type SkillMatch struct {
	Skill      models.DevelopmentalSkill `json:"skill"`
	Status     models.SkillStatus        `json:"status"`
	Activities []models.Activity         `json:"activities"`
}

// Recommendations is the matcher output
type Recommendations struct {
	Strengths   []SkillMatch `json:"strengths"`
	GrowthAreas []SkillMatch `json:"growthAreas"`
	Maintenance []SkillMatch `json:"maintenance"`
}

// Buckets returns the groups in planning priority order
func (r *Recommendations) Buckets() [][]SkillMatch {
	return [][]SkillMatch{r.GrowthAreas, r.Strengths, r.Maintenance}
}

// MatchInput carries everything the matcher reads
type MatchInput struct {
	// Statuses maps skill ID to the child's assessed status
	Statuses   map[string]models.SkillStatus
	Concerns   []string
	Goals      []string
	Skills     []models.DevelopmentalSkill
	Activities []models.Activity
}

// Match buckets the assessed skills and ranks each skill's activities.
// Skills are visited in catalog order; assessed IDs missing from the catalog are skipped.
func Match(in MatchInput) Recommendations {
	concernKeywords := Keywords(in.Concerns)
	goalKeywords := Keywords(in.Goals)
	anyKeywords := append(append([]string{}, concernKeywords...), goalKeywords...)

	var recs Recommendations
	var growthMatched, growthRest []SkillMatch

	for _, skill := range in.Skills {
		status, assessed := in.Statuses[skill.ID]
		if !assessed {
			continue
		}

		match := SkillMatch{
			Skill:      skill,
			Status:     status,
			Activities: rankActivities(activitiesFor(skill.ID, in.Activities), concernKeywords, goalKeywords),
		}

		switch BucketFor(status) {
		case BucketMaintenance:
			recs.Maintenance = append(recs.Maintenance, match)
		case BucketStrengths:
			recs.Strengths = append(recs.Strengths, match)
		default:
			skillText := strings.ToLower(skill.Name + " " + skill.Description)
			if containsAny(skillText, anyKeywords) {
				// newest match goes to the very front
				growthMatched = append([]SkillMatch{match}, growthMatched...)
			} else {
				growthRest = append(growthRest, match)
			}
		}
	}

	recs.GrowthAreas = append(growthMatched, growthRest...)
	return recs
}

func activitiesFor(skillID string, activities []models.Activity) []models.Activity {
	var out []models.Activity
	for _, a := range activities {
		if a.Addresses(skillID) {
			out = append(out, a)
		}
	}
	return out
}

// rankActivities puts concern matches first, then goal matches; ties keep input order.
func rankActivities(activities []models.Activity, concernKeywords, goalKeywords []string) []models.Activity {
	if len(concernKeywords) == 0 && len(goalKeywords) == 0 {
		return activities
	}

	type ranked struct {
		activity models.Activity
		concern  bool
		goal     bool
	}
	items := make([]ranked, len(activities))
	for i, a := range activities {
		text := a.SearchText()
		items[i] = ranked{
			activity: a,
			concern:  containsAny(text, concernKeywords),
			goal:     containsAny(text, goalKeywords),
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].concern != items[j].concern {
			return items[i].concern
		}
		if items[i].goal != items[j].goal {
			return items[i].goal
		}
		return false
	})

	out := make([]models.Activity, len(items))
	for i, item := range items {
		out[i] = item.activity
	}
	return out
}
