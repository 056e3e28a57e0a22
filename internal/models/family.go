package models

import "time"

// Family groups parent accounts that share access to the same children
type Family struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	OwnerUserID int64     `json:"ownerUserId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FamilyWithMembers combines a family with its member accounts
type FamilyWithMembers struct {
	Family  Family `json:"family"`
	Members []User `json:"members"`
}
