package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnsprout/internal/models"
	"learnsprout/internal/recommend"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, c.Skills)
	assert.NotEmpty(t, c.Activities)
	assert.NotEmpty(t, c.Materials)
	assert.Empty(t, c.UnresolvedSkills(), "default catalog references only known skills")
	assert.Len(t, c.Areas(), len(models.DevelopmentalAreas))

	for _, m := range c.Materials {
		assert.NotEmpty(t, m.NormalizedName, m.ID)
	}
	for _, a := range c.Activities {
		assert.Equal(t, "active", a.Status, a.ID)
	}
}

func TestDefaultCatalogHasEmpathyAndBoundaries(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	recs := recommend.Match(recommend.MatchInput{
		Statuses: map[string]models.SkillStatus{
			"soc-empathy":    models.StatusEmerging,
			"soc-boundaries": models.StatusMastered,
		},
		Concerns:   []string{"empathy"},
		Skills:     c.Skills,
		Activities: c.Activities,
	})

	require.Len(t, recs.GrowthAreas, 1)
	require.Len(t, recs.Maintenance, 1)
	assert.Equal(t, "soc-empathy", recs.GrowthAreas[0].Skill.ID)
	assert.Equal(t, "soc-boundaries", recs.Maintenance[0].Skill.ID)
	assert.NotEmpty(t, recs.GrowthAreas[0].Activities)
	assert.NotEmpty(t, recs.Maintenance[0].Activities)
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "duplicate skill",
			yaml: "skills:\n  - {id: a, name: A, area: language}\n  - {id: a, name: B, area: language}\n",
			want: `duplicate skill id "a"`,
		},
		{
			name: "bad area",
			yaml: "skills:\n  - {id: a, name: A, area: astronomy}\n",
			want: "invalid area",
		},
		{
			name: "activity without title",
			yaml: "activities:\n  - {id: x, area: language}\n",
			want: "title is required",
		},
		{
			name: "malformed",
			yaml: "skills: [",
			want: "failed to parse catalog",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadReportsUnresolvedSkills(t *testing.T) {
	c, err := Load(strings.NewReader(`
skills:
  - {id: a, name: A, area: language}
activities:
  - {id: x, title: X, area: language, skillsAddressed: [a, ghost]}
`))
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"x": {"ghost"}}, c.UnresolvedSkills())

	names := SkillNames(c.Skills)
	assert.Equal(t, "A", SkillName(names, "a"))
	assert.Equal(t, UnknownSkillName, SkillName(names, "ghost"))
}

func TestForAgeGroup(t *testing.T) {
	activities := []models.Activity{
		{ID: "toddler", AgeRanges: []string{"1-2", "2-3"}},
		{ID: "any"},
		{ID: "older", AgeRanges: []string{"4-5"}},
	}
	got := ForAgeGroup(activities, "2-3")
	require.Len(t, got, 2)
	assert.Equal(t, "toddler", got[0].ID)
	assert.Equal(t, "any", got[1].ID)
}
