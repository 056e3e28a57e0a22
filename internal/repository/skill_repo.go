package repository

import (
	"database/sql"
	"fmt"
	"time"

	"learnsprout/internal/database"
	"learnsprout/internal/models"
)

// SkillRepository handles the skill catalog and per-child skill statuses
type SkillRepository struct {
	db database.DBTX
}

// NewSkillRepository creates a new skill repository
func NewSkillRepository(db database.DBTX) *SkillRepository {
	return &SkillRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *SkillRepository) WithTx(tx *database.Tx) *SkillRepository {
	return &SkillRepository{db: tx}
}

// UpsertSkill inserts or replaces a catalog skill
func (r *SkillRepository) UpsertSkill(skill models.DevelopmentalSkill) error {
	ages, err := encodeList(skill.AgeRanges)
	if err != nil {
		return err
	}
	query := `INSERT INTO developmental_skills (id, name, description, area, age_ranges) VALUES (?, ?, ?, ?, ?)` +
		r.db.GetDialect().UpsertSuffix([]string{"id"}, []string{"name", "description", "area", "age_ranges"})
	if _, err := r.db.Exec(query, skill.ID, skill.Name, skill.Description, string(skill.Area), ages); err != nil {
		return fmt.Errorf("failed to upsert skill: %w", err)
	}
	return nil
}

// GetAllSkills lists the catalog ordered by area then name
func (r *SkillRepository) GetAllSkills() ([]models.DevelopmentalSkill, error) {
	rows, err := r.db.Query(`SELECT id, name, description, area, age_ranges FROM developmental_skills ORDER BY area, name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query skills: %w", err)
	}
	defer rows.Close()

	var skills []models.DevelopmentalSkill
	for rows.Next() {
		var s models.DevelopmentalSkill
		var area, ages string
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &area, &ages); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		s.Area = models.DevelopmentalArea(area)
		s.AgeRanges = decodeList(ages)
		skills = append(skills, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skills: %w", err)
	}
	return skills, nil
}

// GetChildSkills lists every assessed skill of a child
func (r *SkillRepository) GetChildSkills(childID int64) ([]models.ChildSkill, error) {
	query := `SELECT child_id, skill_id, status, notes, last_assessed FROM child_skills WHERE child_id = ? ORDER BY skill_id`
	rows, err := r.db.Query(query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to query child skills: %w", err)
	}
	defer rows.Close()

	var skills []models.ChildSkill
	for rows.Next() {
		var cs models.ChildSkill
		var status string
		var last sql.NullTime
		if err := rows.Scan(&cs.ChildID, &cs.SkillID, &status, &cs.Notes, &last); err != nil {
			return nil, fmt.Errorf("failed to scan child skill: %w", err)
		}
		cs.Status = models.SkillStatus(status)
		cs.LastAssessed = timePtr(last)
		skills = append(skills, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate child skills: %w", err)
	}
	return skills, nil
}

// GetChildSkillStatuses maps skill ID to status for one child
func (r *SkillRepository) GetChildSkillStatuses(childID int64) (map[string]models.SkillStatus, error) {
	skills, err := r.GetChildSkills(childID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.SkillStatus, len(skills))
	for _, cs := range skills {
		out[cs.SkillID] = cs.Status
	}
	return out, nil
}

// UpsertChildSkill writes one child's status for one skill
func (r *SkillRepository) UpsertChildSkill(cs models.ChildSkill) error {
	last := time.Now().UTC()
	if cs.LastAssessed != nil {
		last = cs.LastAssessed.UTC()
	}
	query := `INSERT INTO child_skills (child_id, skill_id, status, notes, last_assessed) VALUES (?, ?, ?, ?, ?)` +
		r.db.GetDialect().UpsertSuffix([]string{"child_id", "skill_id"}, []string{"status", "notes", "last_assessed"})
	if _, err := r.db.Exec(query, cs.ChildID, cs.SkillID, string(cs.Status), cs.Notes, last); err != nil {
		return fmt.Errorf("failed to upsert child skill: %w", err)
	}
	return nil
}
