package models

import "time"

// DevelopmentalArea is one of the seven fixed pedagogical categories
type DevelopmentalArea string

const (
	AreaPracticalLife   DevelopmentalArea = "practical_life"
	AreaSensorial       DevelopmentalArea = "sensorial"
	AreaLanguage        DevelopmentalArea = "language"
	AreaMathematics     DevelopmentalArea = "mathematics"
	AreaCultural        DevelopmentalArea = "cultural"
	AreaSocialEmotional DevelopmentalArea = "social_emotional"
	AreaPhysical        DevelopmentalArea = "physical"
)

var DevelopmentalAreas = []DevelopmentalArea{
	AreaPracticalLife, AreaSensorial, AreaLanguage, AreaMathematics,
	AreaCultural, AreaSocialEmotional, AreaPhysical,
}

func (a DevelopmentalArea) Valid() bool {
	for _, area := range DevelopmentalAreas {
		if a == area {
			return true
		}
	}
	return false
}

// SkillStatus tracks a child's progress on one skill
type SkillStatus string

const (
	StatusNotStarted SkillStatus = "not_started"
	StatusEmerging   SkillStatus = "emerging"
	StatusDeveloping SkillStatus = "developing"
	StatusMastered   SkillStatus = "mastered"
)

var skillStatusRank = map[SkillStatus]int{
	StatusNotStarted: 0,
	StatusEmerging:   1,
	StatusDeveloping: 2,
	StatusMastered:   3,
}

func (s SkillStatus) Valid() bool {
	_, ok := skillStatusRank[s]
	return ok
}

// Rank orders statuses along the progression; unknown values rank lowest
func (s SkillStatus) Rank() int {
	return skillStatusRank[s]
}

// Regresses reports whether moving from s to next would go backwards
func (s SkillStatus) Regresses(next SkillStatus) bool {
	return next.Rank() < s.Rank()
}

// DevelopmentalSkill is a catalog entry such as "soc-empathy"
type DevelopmentalSkill struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Area        DevelopmentalArea `json:"area" yaml:"area"`
	AgeRanges   []string          `json:"ageRanges" yaml:"ageRanges"`
}

// ChildSkill joins a child to a skill with its current status
type ChildSkill struct {
	ChildID      int64       `json:"childId"`
	SkillID      string      `json:"skillId"`
	Status       SkillStatus `json:"status"`
	Notes        string      `json:"notes"`
	LastAssessed *time.Time  `json:"lastAssessed,omitempty"`
}
