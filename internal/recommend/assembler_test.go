package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnsprout/internal/models"
)

var monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func growthRecs(n int) Recommendations {
	var activities []models.Activity
	for i := 0; i < n; i++ {
		activities = append(activities, activity(string(rune('a'+i)), "Activity", "", "s"))
	}
	return Recommendations{GrowthAreas: []SkillMatch{{
		Skill:      skill("s", "Skill", ""),
		Status:     models.StatusEmerging,
		Activities: activities,
	}}}
}

func TestAssemblePlanDefaultDays(t *testing.T) {
	plan := AssemblePlan(PlanInput{
		ChildID:         7,
		UserID:          3,
		WeekStart:       monday.Add(50 * time.Hour),
		DayCounts:       models.DefaultActivitiesPerDay(),
		Recommendations: growthRecs(10),
		Now:             monday,
	})

	assert.Equal(t, monday, plan.WeekStart)
	assert.Equal(t, "system", plan.CreatedBy)
	assert.Len(t, plan.Days, 7)
	for _, day := range []models.Weekday{models.Monday, models.Wednesday, models.Friday} {
		require.Len(t, plan.Days[day], 2, day)
		assert.Equal(t, models.SlotMorning, plan.Days[day][0].TimeSlot)
		assert.Equal(t, models.SlotAfternoon, plan.Days[day][1].TimeSlot)
		assert.Equal(t, 0, plan.Days[day][0].Order)
		assert.Equal(t, 1, plan.Days[day][1].Order)
		assert.Equal(t, models.PlanSuggested, plan.Days[day][0].Status)
	}
	for _, day := range []models.Weekday{models.Tuesday, models.Thursday, models.Saturday, models.Sunday} {
		assert.Empty(t, plan.Days[day], day)
	}
	assert.Equal(t, 6, plan.Count())
	assert.Len(t, plan.ActivityIDs(), 6, "no activity repeats within a week")
}

func TestAssemblePlanRunsOutOfCandidates(t *testing.T) {
	plan := AssemblePlan(PlanInput{
		WeekStart:       monday,
		DayCounts:       map[models.Weekday]int{models.Monday: 3, models.Tuesday: 3},
		Recommendations: growthRecs(4),
		Now:             monday,
	})

	require.Len(t, plan.Days[models.Monday], 3)
	assert.Equal(t, []models.TimeSlot{models.SlotMorning, models.SlotMorning, models.SlotAfternoon},
		[]models.TimeSlot{plan.Days[models.Monday][0].TimeSlot, plan.Days[models.Monday][1].TimeSlot, plan.Days[models.Monday][2].TimeSlot})
	assert.Len(t, plan.Days[models.Tuesday], 1)
}

func TestRankCandidatesScoring(t *testing.T) {
	recs := Recommendations{
		Maintenance: []SkillMatch{{
			Skill:      skill("m", "Mastered", ""),
			Status:     models.StatusMastered,
			Activities: []models.Activity{activity("maint", "Maintain", "", "m")},
		}},
		GrowthAreas: []SkillMatch{{
			Skill:  skill("e", "Emerging", ""),
			Status: models.StatusEmerging,
			Activities: []models.Activity{
				activity("recent", "Recent", "", "e"),
				activity("dino", "Dinosaur dig", "", "e"),
				activity("fresh", "Fresh", "", "e"),
			},
		}},
	}
	history := []models.ProgressRecord{
		{ActivityID: "recent", ObservedAt: monday.Add(-2 * 24 * time.Hour), Engagement: models.LevelHigh},
		{ActivityID: "maint", ObservedAt: monday.Add(-60 * 24 * time.Hour)},
	}

	got := RankCandidates(recs, []string{"dinosaur"}, history, monday)
	require.Len(t, got, 4)

	scores := map[string]float64{}
	for _, c := range got {
		scores[c.Activity.ID] = c.Score
	}
	assert.Equal(t, 11.0, scores["dino"])
	assert.Equal(t, 9.0, scores["fresh"])
	assert.Equal(t, 6.0, scores["recent"])
	assert.Equal(t, 6.5, scores["maint"], "history outside the window counts as new")

	assert.Equal(t, "dino", got[0].Activity.ID)
	assert.Equal(t, "fresh", got[1].Activity.ID)
	assert.Equal(t, "maint", got[2].Activity.ID)
	assert.Contains(t, got[3].Reasons, "Completed recently (2 days ago)")
}

func TestRankCandidatesDedupsAcrossBuckets(t *testing.T) {
	shared := activity("shared", "Shared", "", "a", "b")
	recs := Recommendations{
		Strengths:   []SkillMatch{{Skill: skill("a", "A", ""), Status: models.StatusDeveloping, Activities: []models.Activity{shared}}},
		GrowthAreas: []SkillMatch{{Skill: skill("b", "B", ""), Status: models.StatusEmerging, Activities: []models.Activity{shared}}},
	}
	got := RankCandidates(recs, nil, nil, monday)
	require.Len(t, got, 1)
	// 5 base + 3 emerging + 2 developing + 1 new
	assert.Equal(t, 11.0, got[0].Score)
}

func TestRankCandidatesRepeatedHighEngagement(t *testing.T) {
	recs := growthRecs(1)
	var history []models.ProgressRecord
	for i := 0; i < 4; i++ {
		history = append(history, models.ProgressRecord{
			ActivityID: "a",
			ObservedAt: monday.Add(-time.Duration(10+i) * 24 * time.Hour),
			Interest:   models.LevelHigh,
		})
	}
	got := RankCandidates(recs, nil, history, monday)
	require.Len(t, got, 1)
	// 5 base + 3 emerging + 2 engagement - 1 repetition
	assert.Equal(t, 9.0, got[0].Score)
}
