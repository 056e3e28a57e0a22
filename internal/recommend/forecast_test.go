package recommend

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnsprout/internal/models"
)

func planWith(weekStart time.Time, ids ...string) models.WeeklyPlan {
	entries := make([]models.PlanActivity, len(ids))
	for i, id := range ids {
		entries[i] = models.PlanActivity{ActivityID: id, Order: i}
	}
	return models.WeeklyPlan{WeekStart: weekStart, Days: map[models.Weekday][]models.PlanActivity{models.Monday: entries}}
}

func TestIsHouseholdItem(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Small pitcher", false},
		{"  Measuring Cup ", true},
		{"Sandpaper letters", true},
		{"Pink tower", false},
		{"Wooden TRAY", true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHouseholdItem(tt.name))
		})
	}
}

func TestForecastCountsAndRanks(t *testing.T) {
	materials := []models.Material{
		{ID: "m-pitcher", Name: "Small pitcher", NormalizedName: "small pitcher"},
		{ID: "m-tower", Name: "Pink tower", NormalizedName: "pink tower"},
		{ID: "m-cylinders", Name: "Knobbed cylinders", NormalizedName: "knobbed cylinders"},
	}
	activities := map[string]models.Activity{
		"pour":  {ID: "pour", MaterialsNeeded: []string{"Small Pitcher", "water", "Tray"}},
		"pour2": {ID: "pour2", MaterialsNeeded: []string{"small pitcher", "Funnel"}},
		"tower": {ID: "tower", MaterialsNeeded: []string{"Pink Tower"}},
		"cyl":   {ID: "cyl", MaterialsNeeded: []string{"Knobbed cylinders"}},
	}
	plans := []models.WeeklyPlan{
		planWith(monday, "pour", "tower", "pour"),
		planWith(monday.AddDate(0, 0, 7), "pour2", "pour", "cyl"),
		planWith(monday.AddDate(0, 0, 120), "tower"),
	}

	got := Forecast(ForecastInput{
		Plans:      plans,
		Activities: activities,
		Materials:  materials,
		Owned:      map[string]bool{"m-cylinders": true},
		From:       monday,
		To:         monday.AddDate(0, 0, DefaultForecastDays),
	})

	type row struct {
		ID    string
		Name  string
		Count int
	}
	var rows []row
	for _, item := range got {
		rows = append(rows, row{item.MaterialID, item.Name, item.Count})
	}
	want := []row{
		{"m-pitcher", "Small pitcher", 2},
		{"", "Funnel", 1},
		{"m-tower", "Pink tower", 1},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("forecast mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"pour", "pour2"}, got[0].ActivityIDs)
}

func TestForecastNeverIncludesHouseholdOrOwned(t *testing.T) {
	materials := []models.Material{
		{ID: "m1", Name: "Glass pitcher", NormalizedName: "glass pitcher"},
		{ID: "m2", Name: "Sandpaper numerals", NormalizedName: "sandpaper numerals"},
		{ID: "m3", Name: "Spindle box", NormalizedName: "spindle box"},
		{ID: "m4", Name: "Golden beads", NormalizedName: "golden beads"},
		{ID: "m5", Name: "Color tablets", NormalizedName: "color tablets"},
	}
	activities := map[string]models.Activity{
		"a": {ID: "a", MaterialsNeeded: []string{"Glass pitcher", "Sandpaper numerals", "Spindle box"}},
		"b": {ID: "b", MaterialsNeeded: []string{"Golden beads", "Color tablets", "Mirror"}},
	}
	owned := map[string]bool{"m1": true}

	got := Forecast(ForecastInput{
		Plans:      []models.WeeklyPlan{planWith(monday, "a", "b")},
		Activities: activities,
		Materials:  materials,
		Owned:      owned,
	})

	require.Len(t, got, 1)
	assert.Equal(t, "m5", got[0].MaterialID)
	for _, item := range got {
		assert.False(t, IsHouseholdItem(item.Name), item.Name)
		assert.False(t, owned[item.MaterialID], item.MaterialID)
	}
}

func TestForecastEmpty(t *testing.T) {
	got := Forecast(ForecastInput{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDoableActivities(t *testing.T) {
	materials := []models.Material{
		{ID: "m-pitcher", Name: "Small pitcher"},
		{ID: "m-tower", Name: "Pink tower"},
	}
	activities := []models.Activity{
		{ID: "household", MaterialsNeeded: []string{"Water", "Bowl"}},
		{ID: "owned", MaterialsNeeded: []string{"small pitcher", "sponge"}},
		{ID: "missing", MaterialsNeeded: []string{"Pink tower"}},
		{ID: "unknown", MaterialsNeeded: []string{"Binomial cube"}},
		{ID: "none"},
	}
	got := DoableActivities(activities, materials, map[string]bool{"m-pitcher": true})
	assert.Equal(t, []string{"household", "owned", "none"}, activityIDs(got))
}

func TestBestMaterialMatch(t *testing.T) {
	index := materialIndex([]models.Material{
		{ID: "1", Name: "Pink tower"},
		{ID: "2", Name: "Brown stair"},
	})

	m := BestMaterialMatch("PINK TOWER!", index)
	require.NotNil(t, m)
	assert.Equal(t, "1", m.ID)

	m = BestMaterialMatch("Montessori brown stair set", index)
	require.NotNil(t, m)
	assert.Equal(t, "2", m.ID)

	assert.Nil(t, BestMaterialMatch("Red rods", index))
	assert.Nil(t, BestMaterialMatch("  ", index))
}
