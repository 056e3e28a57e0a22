package recommend

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"learnsprout/internal/models"
)

// historyWindow bounds which observations count as recent when scoring
const historyWindow = 30 * 24 * time.Hour

// PlanInput carries everything the assembler reads
type PlanInput struct {
	ChildID         int64
	UserID          int64
	WeekStart       time.Time
	DayCounts       map[models.Weekday]int
	Recommendations Recommendations
	Interests       []string
	History         []models.ProgressRecord
	CreatedBy       string
	Now             time.Time
}

// Candidate is an activity with its plan score and the reasons behind it
type Candidate struct {
	Activity models.Activity
	Score    float64
	Reasons  []string
}

// AssemblePlan builds a new weekly plan. Days are filled Monday first with the
// highest scoring candidates; an activity is scheduled at most once per week
// and days simply come up short when candidates run out.
func AssemblePlan(in PlanInput) *models.WeeklyPlan {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	createdBy := in.CreatedBy
	if createdBy == "" {
		createdBy = "system"
	}

	plan := &models.WeeklyPlan{
		ChildID:   in.ChildID,
		UserID:    in.UserID,
		WeekStart: models.StartOfWeek(in.WeekStart),
		CreatedBy: createdBy,
		CreatedAt: now,
		Days:      make(map[models.Weekday][]models.PlanActivity, len(models.Weekdays)),
	}

	candidates := RankCandidates(in.Recommendations, in.Interests, in.History, now)

	next := 0
	for _, day := range models.Weekdays {
		want := in.DayCounts[day]
		entries := make([]models.PlanActivity, 0, want)
		morning := (want + 1) / 2

		for i := 0; i < want && next < len(candidates); i++ {
			c := candidates[next]
			next++

			slot := models.SlotAfternoon
			if i < morning {
				slot = models.SlotMorning
			}
			entries = append(entries, models.PlanActivity{
				ActivityID: c.Activity.ID,
				TimeSlot:   slot,
				Status:     models.PlanSuggested,
				Order:      i,
				Notes:      strings.Join(c.Reasons, ". "),
			})
		}
		plan.Days[day] = entries
	}

	return plan
}

// RankCandidates flattens the buckets (growth areas, then strengths, then maintenance),
// drops duplicate activities, scores them, and sorts by score keeping bucket order on ties.
func RankCandidates(recs Recommendations, interests []string, history []models.ProgressRecord, now time.Time) []Candidate {
	statuses := make(map[string]models.SkillStatus)
	var ordered []models.Activity
	seen := make(map[string]bool)

	for _, bucket := range recs.Buckets() {
		for _, match := range bucket {
			statuses[match.Skill.ID] = match.Status
			for _, a := range match.Activities {
				if seen[a.ID] {
					continue
				}
				seen[a.ID] = true
				ordered = append(ordered, a)
			}
		}
	}

	recent := summarizeHistory(history, now)

	candidates := make([]Candidate, len(ordered))
	for i, a := range ordered {
		candidates[i] = scoreActivity(a, statuses, interests, recent[a.ID], now)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

type activityHistory struct {
	lastCompleted time.Time
	count         int
	engagement    models.Level
	interest      models.Level
}

func summarizeHistory(records []models.ProgressRecord, now time.Time) map[string]*activityHistory {
	out := make(map[string]*activityHistory)
	cutoff := now.Add(-historyWindow)
	for _, r := range records {
		if r.ActivityID == "" || r.ObservedAt.Before(cutoff) {
			continue
		}
		h, ok := out[r.ActivityID]
		if !ok {
			h = &activityHistory{}
			out[r.ActivityID] = h
		}
		h.count++
		if r.ObservedAt.After(h.lastCompleted) {
			h.lastCompleted = r.ObservedAt
			h.engagement = r.Engagement
			h.interest = r.Interest
		}
	}
	return out
}

func scoreActivity(a models.Activity, statuses map[string]models.SkillStatus, interests []string, h *activityHistory, now time.Time) Candidate {
	score := 5.0
	var reasons []string

	for _, skillID := range a.SkillsAddressed {
		status, ok := statuses[skillID]
		switch {
		case ok && status == models.StatusEmerging:
			score += 3
			reasons = append(reasons, "Helps develop emerging skill")
		case ok && status == models.StatusDeveloping:
			score += 2
			reasons = append(reasons, "Reinforces developing skill")
		case ok && status == models.StatusMastered:
			score += 0.5
			reasons = append(reasons, "Maintains mastered skill")
		default:
			score += 2
			reasons = append(reasons, "Introduces new skill")
		}
	}

	area := strings.ToLower(string(a.Area))
	title := strings.ToLower(a.Title)
	for _, interest := range interests {
		interest = strings.ToLower(strings.TrimSpace(interest))
		if interest == "" {
			continue
		}
		if strings.Contains(area, interest) || strings.Contains(title, interest) {
			score += 2
			reasons = append(reasons, "Matches child's interest in "+interest)
		}
	}

	if h == nil {
		score++
		reasons = append(reasons, "New activity")
	} else {
		days := int(now.Sub(h.lastCompleted).Hours() / 24)
		if days < 7 {
			score -= 2
			reasons = append(reasons, fmt.Sprintf("Completed recently (%d days ago)", days))
		} else if h.engagement == models.LevelHigh || h.interest == models.LevelHigh {
			score += 2
			reasons = append(reasons, "Child showed high engagement previously")
		}
		if h.count > 3 {
			score--
			reasons = append(reasons, fmt.Sprintf("Already completed %d times recently", h.count))
		}
	}

	return Candidate{Activity: a, Score: score, Reasons: reasons}
}
