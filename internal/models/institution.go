package models

import "time"

// Institution is a school or centre administered by an admin account
type Institution struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	AdminUserID int64     `json:"adminUserId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Classroom is run by one educator; parents enrol children with its join code
type Classroom struct {
	ID            int64     `json:"id"`
	InstitutionID *int64    `json:"institutionId,omitempty"`
	Name          string    `json:"name"`
	EducatorID    int64     `json:"educatorId"`
	AgeGroup      string    `json:"ageGroup"`
	JoinCode      string    `json:"joinCode"`
	ChildIDs      []int64   `json:"childIds"`
	CreatedAt     time.Time `json:"createdAt"`
}
