package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"learnsprout/internal/database"
	"learnsprout/internal/models"
)

// ActivityRepository handles the activity catalog
type ActivityRepository struct {
	db database.DBTX
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db database.DBTX) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `id, title, description, instructions, area, skills_addressed, materials_needed,
		duration_minutes, difficulty, environment_type, age_ranges, prerequisites, status, created_at`

func scanActivity(row interface{ Scan(...interface{}) error }) (*models.Activity, error) {
	a := &models.Activity{}
	var area, env, skills, materials, ages, prereqs string
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.Instructions, &area, &skills, &materials,
		&a.DurationMinutes, &a.Difficulty, &env, &ages, &prereqs, &a.Status, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Area = models.DevelopmentalArea(area)
	a.EnvironmentType = models.EnvironmentType(env)
	a.SkillsAddressed = decodeList(skills)
	a.MaterialsNeeded = decodeList(materials)
	a.AgeRanges = decodeList(ages)
	a.Prerequisites = decodeList(prereqs)
	return a, nil
}

// UpsertActivity inserts or replaces a catalog activity
func (r *ActivityRepository) UpsertActivity(a models.Activity) error {
	lists := make([]string, 4)
	for i, values := range [][]string{a.SkillsAddressed, a.MaterialsNeeded, a.AgeRanges, a.Prerequisites} {
		encoded, err := encodeList(values)
		if err != nil {
			return err
		}
		lists[i] = encoded
	}
	status := a.Status
	if status == "" {
		status = "active"
	}
	env := string(a.EnvironmentType)
	if env == "" {
		env = string(models.EnvironmentHome)
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	query := `
		INSERT INTO activities (id, title, description, instructions, area, skills_addressed, materials_needed,
			duration_minutes, difficulty, environment_type, age_ranges, prerequisites, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)` +
		r.db.GetDialect().UpsertSuffix([]string{"id"}, []string{
			"title", "description", "instructions", "area", "skills_addressed", "materials_needed",
			"duration_minutes", "difficulty", "environment_type", "age_ranges", "prerequisites", "status",
		})
	_, err := r.db.Exec(query, a.ID, a.Title, a.Description, a.Instructions, string(a.Area),
		lists[0], lists[1], a.DurationMinutes, a.Difficulty, env, lists[2], lists[3], status, created.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert activity: %w", err)
	}
	return nil
}

// GetActivityByID retrieves an activity
func (r *ActivityRepository) GetActivityByID(id string) (*models.Activity, error) {
	a, err := scanActivity(r.db.QueryRow("SELECT "+activityColumns+" FROM activities WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// GetActiveActivities lists the activities plans may use, in catalog order
func (r *ActivityRepository) GetActiveActivities() ([]models.Activity, error) {
	return r.listActivities("SELECT "+activityColumns+" FROM activities WHERE status = ? ORDER BY created_at, id", "active")
}

// GetAllActivities lists every activity regardless of status
func (r *ActivityRepository) GetAllActivities() ([]models.Activity, error) {
	return r.listActivities("SELECT " + activityColumns + " FROM activities ORDER BY created_at, id")
}

// GetActivitiesByIDs loads the given activities keyed by ID; unknown IDs are absent
func (r *ActivityRepository) GetActivitiesByIDs(ids []string) (map[string]models.Activity, error) {
	out := make(map[string]models.Activity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	activities, err := r.listActivities("SELECT "+activityColumns+" FROM activities WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	for _, a := range activities {
		out[a.ID] = a
	}
	return out, nil
}

func (r *ActivityRepository) listActivities(query string, args ...interface{}) ([]models.Activity, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return activities, nil
}
