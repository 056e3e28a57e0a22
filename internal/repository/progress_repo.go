package repository

import (
	"database/sql"
	"fmt"
	"time"

	"learnsprout/internal/database"
	"learnsprout/internal/models"
)

// ProgressRepository stores observations of children doing activities
type ProgressRepository struct {
	db database.DBTX
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *ProgressRepository) WithTx(tx *database.Tx) *ProgressRepository {
	return &ProgressRepository{db: tx}
}

// InsertRecord stores a record unless one with the same ID already exists.
// It reports whether a new row was written, so offline replays are harmless.
// The conflict is settled by the database, which keeps a surrounding
// PostgreSQL transaction usable when two replays race.
func (r *ProgressRepository) InsertRecord(p *models.ProgressRecord) (bool, error) {
	skills, err := encodeList(p.SkillsDemonstrated)
	if err != nil {
		return false, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO progress_records (id, child_id, user_id, activity_id, observed_at, completion_status, engagement,
			interest, difficulty, notes, skills_demonstrated, observation_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)` + r.db.GetDialect().IgnoreSuffix([]string{"id"})
	res, err := r.db.Exec(query, p.ID, p.ChildID, p.UserID, p.ActivityID, p.ObservedAt.UTC(), string(p.CompletionStatus),
		string(p.Engagement), string(p.Interest), p.Difficulty, p.Notes, skills, p.ObservationType, p.CreatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert progress record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert progress record: %w", err)
	}
	return n > 0, nil
}

const progressColumns = `id, child_id, user_id, activity_id, observed_at, completion_status, engagement, interest,
		difficulty, notes, skills_demonstrated, observation_type, created_at`

func scanProgress(row interface{ Scan(...interface{}) error }) (*models.ProgressRecord, error) {
	p := &models.ProgressRecord{}
	var completion, engagement, interest, skills string
	err := row.Scan(&p.ID, &p.ChildID, &p.UserID, &p.ActivityID, &p.ObservedAt, &completion, &engagement, &interest,
		&p.Difficulty, &p.Notes, &skills, &p.ObservationType, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.CompletionStatus = models.CompletionStatus(completion)
	p.Engagement = models.Level(engagement)
	p.Interest = models.Level(interest)
	p.SkillsDemonstrated = decodeList(skills)
	return p, nil
}

// GetRecord retrieves a record by ID
func (r *ProgressRepository) GetRecord(id string) (*models.ProgressRecord, error) {
	p, err := scanProgress(r.db.QueryRow("SELECT "+progressColumns+" FROM progress_records WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress record: %w", err)
	}
	return p, nil
}

// GetChildRecords lists a child's records observed at or after since, newest first.
// A zero since returns the full history.
func (r *ProgressRepository) GetChildRecords(childID int64, since time.Time) ([]models.ProgressRecord, error) {
	if since.IsZero() {
		return r.listRecords("SELECT "+progressColumns+" FROM progress_records WHERE child_id = ? ORDER BY observed_at DESC, id", childID)
	}
	return r.listRecords(
		"SELECT "+progressColumns+" FROM progress_records WHERE child_id = ? AND observed_at >= ? ORDER BY observed_at DESC, id",
		childID, since.UTC())
}

// CountRecordsAfter counts a child's records observed strictly after t
func (r *ProgressRepository) CountRecordsAfter(childID int64, t time.Time) (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM progress_records WHERE child_id = ? AND observed_at > ?", childID, t.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count progress records: %w", err)
	}
	return n, nil
}

// GetAllRecords lists every record for backup
func (r *ProgressRepository) GetAllRecords() ([]models.ProgressRecord, error) {
	return r.listRecords("SELECT " + progressColumns + " FROM progress_records ORDER BY created_at, id")
}

func (r *ProgressRepository) listRecords(query string, args ...interface{}) ([]models.ProgressRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress records: %w", err)
	}
	defer rows.Close()

	var out []models.ProgressRecord
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress record: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress records: %w", err)
	}
	return out, nil
}
