package models

import "time"

// Invitation asks an email address to join a family
type Invitation struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	FamilyID    int64      `json:"familyId"`
	Email       string     `json:"email"`
	InvitedBy   int64      `json:"invitedBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	UsedAt      *time.Time `json:"usedAt,omitempty"`
	UsedBy      *int64     `json:"usedBy,omitempty"`
	InviterName string     `json:"inviterName,omitempty"` // Populated via JOIN
}

func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

func (i *Invitation) IsUsed() bool {
	return i.UsedAt != nil
}

func (i *Invitation) IsValid() bool {
	return !i.IsExpired() && !i.IsUsed()
}
