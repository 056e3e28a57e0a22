package repository

import (
	"database/sql"
	"fmt"
	"time"

	"learnsprout/internal/database"
	"learnsprout/internal/models"
)

// ChildRepository handles database operations for child profiles
type ChildRepository struct {
	db database.DBTX
}

// NewChildRepository creates a new child repository
func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *ChildRepository) WithTx(tx *database.Tx) *ChildRepository {
	return &ChildRepository{db: tx}
}

const childColumns = `id, user_id, family_id, name, birth_date, interests, notes, active, last_assessed_at, created_at, updated_at`

func scanChild(row interface{ Scan(...interface{}) error }) (*models.Child, error) {
	child := &models.Child{}
	var familyID sql.NullInt64
	var birthDate, interests string
	var lastAssessed sql.NullTime
	err := row.Scan(
		&child.ID,
		&child.UserID,
		&familyID,
		&child.Name,
		&birthDate,
		&interests,
		&child.Notes,
		&child.Active,
		&lastAssessed,
		&child.CreatedAt,
		&child.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	child.FamilyID = int64Ptr(familyID)
	child.Interests = decodeList(interests)
	child.LastAssessedAt = timePtr(lastAssessed)
	if t, err := time.Parse(models.BirthDateLayout, birthDate); err == nil {
		child.BirthDate = t
	}
	return child, nil
}

// CreateChild inserts a child profile
func (r *ChildRepository) CreateChild(child *models.Child) (*models.Child, error) {
	interests, err := encodeList(child.Interests)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	query := `
		INSERT INTO children (user_id, family_id, name, birth_date, interests, notes, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		child.UserID, nullInt64(child.FamilyID), child.Name, child.BirthDate.Format(models.BirthDateLayout),
		interests, child.Notes, true, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}

	created := *child
	created.ID = id
	created.Active = true
	created.CreatedAt = now
	created.UpdatedAt = now
	if created.Interests == nil {
		created.Interests = []string{}
	}
	return &created, nil
}

// GetChildByID retrieves a child by ID
func (r *ChildRepository) GetChildByID(id int64) (*models.Child, error) {
	child, err := scanChild(r.db.QueryRow("SELECT "+childColumns+" FROM children WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return child, nil
}

// GetAccessibleChildren lists children a user owns or shares through a family
func (r *ChildRepository) GetAccessibleChildren(userID int64, familyID *int64) ([]models.Child, error) {
	if familyID == nil {
		return r.listChildren("SELECT "+childColumns+" FROM children WHERE user_id = ? ORDER BY name, id", userID)
	}
	return r.listChildren(
		"SELECT "+childColumns+" FROM children WHERE user_id = ? OR family_id = ? ORDER BY name, id",
		userID, *familyID)
}

// GetClassroomChildren lists the children enrolled in any classroom run by educatorID
func (r *ChildRepository) GetClassroomChildren(educatorID int64) ([]models.Child, error) {
	query := `
		SELECT DISTINCT c.id, c.user_id, c.family_id, c.name, c.birth_date, c.interests, c.notes, c.active,
			c.last_assessed_at, c.created_at, c.updated_at
		FROM children c
		JOIN classroom_children cc ON cc.child_id = c.id
		JOIN classrooms cl ON cl.id = cc.classroom_id
		WHERE cl.educator_id = ?
		ORDER BY c.name, c.id
	`
	return r.listChildren(query, educatorID)
}

// GetActiveChildren lists every active child, for scheduled jobs
func (r *ChildRepository) GetActiveChildren() ([]models.Child, error) {
	return r.listChildren("SELECT "+childColumns+" FROM children WHERE active = ? ORDER BY id", true)
}

// GetAllChildren lists every child
func (r *ChildRepository) GetAllChildren() ([]models.Child, error) {
	return r.listChildren("SELECT " + childColumns + " FROM children ORDER BY id")
}

func (r *ChildRepository) listChildren(query string, args ...interface{}) ([]models.Child, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *child)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate children: %w", err)
	}
	return children, nil
}

// UpdateChild saves the editable fields of a child
func (r *ChildRepository) UpdateChild(child *models.Child) error {
	interests, err := encodeList(child.Interests)
	if err != nil {
		return err
	}
	query := `
		UPDATE children
		SET name = ?, birth_date = ?, interests = ?, notes = ?, active = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.Exec(query, child.Name, child.BirthDate.Format(models.BirthDateLayout), interests,
		child.Notes, child.Active, time.Now().UTC(), child.ID)
	if err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}
	return nil
}

// SetFamily attaches every child of a user to the family
func (r *ChildRepository) SetFamily(userID, familyID int64) error {
	if _, err := r.db.Exec("UPDATE children SET family_id = ? WHERE user_id = ?", familyID, userID); err != nil {
		return fmt.Errorf("failed to set child family: %w", err)
	}
	return nil
}

// SetLastAssessed records when an assessment was saved
func (r *ChildRepository) SetLastAssessed(id int64, at time.Time) error {
	if _, err := r.db.Exec("UPDATE children SET last_assessed_at = ?, updated_at = ? WHERE id = ?", at.UTC(), at.UTC(), id); err != nil {
		return fmt.Errorf("failed to set last assessed: %w", err)
	}
	return nil
}

// DeleteChild removes a child and, through cascades, its skills, plans and progress
func (r *ChildRepository) DeleteChild(id int64) error {
	if _, err := r.db.Exec("DELETE FROM children WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	return nil
}
