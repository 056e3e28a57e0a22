package repository

import (
	"database/sql"
	"fmt"
	"time"

	"learnsprout/internal/database"
	"learnsprout/internal/models"
)

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily creates a family owned by ownerUserID and moves the owner and
// the owner's children into it
func (r *FamilyRepository) CreateFamily(name string, ownerUserID int64) (*models.Family, error) {
	now := time.Now().UTC()
	family := &models.Family{Name: name, OwnerUserID: ownerUserID, CreatedAt: now}

	err := inTx(r.db, func(q database.DBTX) error {
		id, err := q.ExecReturningID(`INSERT INTO families (name, owner_user_id, created_at) VALUES (?, ?, ?)`, name, ownerUserID, now)
		if err != nil {
			return fmt.Errorf("failed to create family: %w", err)
		}
		if _, err := q.Exec(`UPDATE users SET family_id = ? WHERE id = ?`, id, ownerUserID); err != nil {
			return fmt.Errorf("failed to add family owner: %w", err)
		}
		if _, err := q.Exec(`UPDATE children SET family_id = ? WHERE user_id = ?`, id, ownerUserID); err != nil {
			return fmt.Errorf("failed to attach children to family: %w", err)
		}
		family.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return family, nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(familyID int64) (*models.Family, error) {
	query := "SELECT id, name, owner_user_id, created_at FROM families WHERE id = ?"
	family := &models.Family{}
	err := r.db.QueryRow(query, familyID).Scan(&family.ID, &family.Name, &family.OwnerUserID, &family.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetAllFamilies lists every family for backup
func (r *FamilyRepository) GetAllFamilies() ([]models.Family, error) {
	rows, err := r.db.Query("SELECT id, name, owner_user_id, created_at FROM families ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		var f models.Family
		if err := rows.Scan(&f.ID, &f.Name, &f.OwnerUserID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate families: %w", err)
	}
	return families, nil
}

// JoinFamily moves a user and the user's children into a family
func (r *FamilyRepository) JoinFamily(familyID, userID int64) error {
	return inTx(r.db, func(q database.DBTX) error {
		if _, err := q.Exec(`UPDATE users SET family_id = ?, updated_at = ? WHERE id = ?`, familyID, time.Now().UTC(), userID); err != nil {
			return fmt.Errorf("failed to join family: %w", err)
		}
		if _, err := q.Exec(`UPDATE children SET family_id = ? WHERE user_id = ?`, familyID, userID); err != nil {
			return fmt.Errorf("failed to attach children to family: %w", err)
		}
		return nil
	})
}

// UpdateFamily renames a family
func (r *FamilyRepository) UpdateFamily(familyID int64, name string) error {
	if _, err := r.db.Exec("UPDATE families SET name = ? WHERE id = ?", name, familyID); err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}
