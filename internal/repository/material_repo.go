package repository

import (
	"database/sql"
	"fmt"
	"time"

	"learnsprout/internal/database"
	"learnsprout/internal/models"
)

// MaterialRepository handles the material catalog and user inventories
type MaterialRepository struct {
	db database.DBTX
}

// NewMaterialRepository creates a new material repository
func NewMaterialRepository(db database.DBTX) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// UpsertMaterial inserts or replaces a catalog material
func (r *MaterialRepository) UpsertMaterial(m models.Material) error {
	links, err := encodeList(m.PurchaseLinks)
	if err != nil {
		return err
	}
	normalized := m.NormalizedName
	if normalized == "" {
		normalized = models.NormalizeMaterialName(m.Name)
	}
	query := `
		INSERT INTO materials (id, name, normalized_name, category, household_alternative, purchase_links)
		VALUES (?, ?, ?, ?, ?, ?)` +
		r.db.GetDialect().UpsertSuffix([]string{"id"}, []string{
			"name", "normalized_name", "category", "household_alternative", "purchase_links",
		})
	if _, err := r.db.Exec(query, m.ID, m.Name, normalized, m.Category, m.HouseholdAlternative, links); err != nil {
		return fmt.Errorf("failed to upsert material: %w", err)
	}
	return nil
}

// GetMaterialByID retrieves a material
func (r *MaterialRepository) GetMaterialByID(id string) (*models.Material, error) {
	query := `SELECT id, name, normalized_name, category, household_alternative, purchase_links FROM materials WHERE id = ?`
	m, err := scanMaterial(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	return m, nil
}

// GetAllMaterials lists the material catalog ordered by name
func (r *MaterialRepository) GetAllMaterials() ([]models.Material, error) {
	rows, err := r.db.Query(`SELECT id, name, normalized_name, category, household_alternative, purchase_links FROM materials ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query materials: %w", err)
	}
	defer rows.Close()

	var materials []models.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		materials = append(materials, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate materials: %w", err)
	}
	return materials, nil
}

func scanMaterial(row interface{ Scan(...interface{}) error }) (*models.Material, error) {
	m := &models.Material{}
	var links string
	if err := row.Scan(&m.ID, &m.Name, &m.NormalizedName, &m.Category, &m.HouseholdAlternative, &links); err != nil {
		return nil, err
	}
	m.PurchaseLinks = decodeList(links)
	return m, nil
}

// SetOwned records whether a user has a material
func (r *MaterialRepository) SetOwned(userID int64, materialID string, owned bool) error {
	query := `INSERT INTO user_materials (user_id, material_id, in_inventory, updated_at) VALUES (?, ?, ?, ?)` +
		r.db.GetDialect().UpsertSuffix([]string{"user_id", "material_id"}, []string{"in_inventory", "updated_at"})
	if _, err := r.db.Exec(query, userID, materialID, owned, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set owned material: %w", err)
	}
	return nil
}

// GetOwnedMaterialIDs returns the set of material IDs a user has in inventory
func (r *MaterialRepository) GetOwnedMaterialIDs(userID int64) (map[string]bool, error) {
	rows, err := r.db.Query(`SELECT material_id FROM user_materials WHERE user_id = ? AND in_inventory = ?`, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query owned materials: %w", err)
	}
	defer rows.Close()

	owned := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan owned material: %w", err)
		}
		owned[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate owned materials: %w", err)
	}
	return owned, nil
}

// GetUserMaterials lists inventory rows for backup
func (r *MaterialRepository) GetUserMaterials() ([]models.UserMaterial, error) {
	rows, err := r.db.Query(`SELECT user_id, material_id, in_inventory, updated_at FROM user_materials ORDER BY user_id, material_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user materials: %w", err)
	}
	defer rows.Close()

	var out []models.UserMaterial
	for rows.Next() {
		var um models.UserMaterial
		if err := rows.Scan(&um.UserID, &um.MaterialID, &um.InInventory, &um.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user material: %w", err)
		}
		out = append(out, um)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user materials: %w", err)
	}
	return out, nil
}
