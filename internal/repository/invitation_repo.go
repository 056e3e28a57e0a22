package repository

import (
	"database/sql"
	"fmt"
	"time"

	"learnsprout/internal/database"
	"learnsprout/internal/models"
)

// InvitationRepository handles family invitations
type InvitationRepository struct {
	db database.DBTX
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db database.DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// CreateInvitation stores an invitation with a caller-generated code
func (r *InvitationRepository) CreateInvitation(code string, familyID int64, email string, invitedBy int64, expiresAt time.Time) (*models.Invitation, error) {
	now := time.Now().UTC()
	query := `INSERT INTO invitations (code, family_id, email, invited_by, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(query, code, familyID, email, invitedBy, expiresAt.UTC(), now)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return &models.Invitation{
		ID:        id,
		Code:      code,
		FamilyID:  familyID,
		Email:     email,
		InvitedBy: invitedBy,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}, nil
}

const invitationSelect = `
	SELECT i.id, i.code, i.family_id, i.email, i.invited_by, i.created_at, i.used_at, i.used_by, i.expires_at, COALESCE(u.name, '')
	FROM invitations i
	LEFT JOIN users u ON i.invited_by = u.id
`

func scanInvitation(row interface{ Scan(...interface{}) error }) (*models.Invitation, error) {
	var inv models.Invitation
	var usedAt sql.NullTime
	var usedBy sql.NullInt64
	err := row.Scan(&inv.ID, &inv.Code, &inv.FamilyID, &inv.Email, &inv.InvitedBy,
		&inv.CreatedAt, &usedAt, &usedBy, &inv.ExpiresAt, &inv.InviterName)
	if err != nil {
		return nil, err
	}
	inv.UsedAt = timePtr(usedAt)
	inv.UsedBy = int64Ptr(usedBy)
	return &inv, nil
}

// GetInvitationByCode retrieves an invitation by code
func (r *InvitationRepository) GetInvitationByCode(code string) (*models.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRow(invitationSelect+"WHERE i.code = ?", code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// MarkInvitationUsed marks an invitation as used; it reports false if it was already used
func (r *InvitationRepository) MarkInvitationUsed(code string, userID int64) (bool, error) {
	result, err := r.db.Exec(`UPDATE invitations SET used_at = ?, used_by = ? WHERE code = ? AND used_at IS NULL`,
		time.Now().UTC(), userID, code)
	if err != nil {
		return false, fmt.Errorf("failed to mark invitation used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read invitation update: %w", err)
	}
	return n > 0, nil
}

// GetFamilyInvitations lists a family's invitations, newest first
func (r *InvitationRepository) GetFamilyInvitations(familyID int64) ([]models.Invitation, error) {
	return r.listInvitations(invitationSelect+"WHERE i.family_id = ? ORDER BY i.created_at DESC, i.id DESC", familyID)
}

// GetAllInvitations retrieves all invitations (for admin view)
func (r *InvitationRepository) GetAllInvitations() ([]models.Invitation, error) {
	return r.listInvitations(invitationSelect + "ORDER BY i.created_at DESC, i.id DESC")
}

func (r *InvitationRepository) listInvitations(query string, args ...interface{}) ([]models.Invitation, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}
	return invitations, nil
}

// DeleteInvitation deletes an invitation by ID
func (r *InvitationRepository) DeleteInvitation(id int64) error {
	if _, err := r.db.Exec(`DELETE FROM invitations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}
	return nil
}
