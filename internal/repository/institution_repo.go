package repository

import (
	"database/sql"
	"fmt"
	"time"

	"learnsprout/internal/database"
	"learnsprout/internal/models"
)

// InstitutionRepository handles institutions, classrooms and enrolments
type InstitutionRepository struct {
	db database.DBTX
}

// NewInstitutionRepository creates a new institution repository
func NewInstitutionRepository(db database.DBTX) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

// CreateInstitution inserts an institution
func (r *InstitutionRepository) CreateInstitution(name, kind string, adminUserID int64) (*models.Institution, error) {
	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(`INSERT INTO institutions (name, type, admin_user_id, created_at) VALUES (?, ?, ?, ?)`,
		name, kind, adminUserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create institution: %w", err)
	}
	return &models.Institution{ID: id, Name: name, Type: kind, AdminUserID: adminUserID, CreatedAt: now}, nil
}

// GetInstitutionByID retrieves an institution
func (r *InstitutionRepository) GetInstitutionByID(id int64) (*models.Institution, error) {
	inst := &models.Institution{}
	err := r.db.QueryRow(`SELECT id, name, type, admin_user_id, created_at FROM institutions WHERE id = ?`, id).
		Scan(&inst.ID, &inst.Name, &inst.Type, &inst.AdminUserID, &inst.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get institution: %w", err)
	}
	return inst, nil
}

// GetAllInstitutions lists institutions ordered by name
func (r *InstitutionRepository) GetAllInstitutions() ([]models.Institution, error) {
	rows, err := r.db.Query(`SELECT id, name, type, admin_user_id, created_at FROM institutions ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query institutions: %w", err)
	}
	defer rows.Close()

	var out []models.Institution
	for rows.Next() {
		var inst models.Institution
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.Type, &inst.AdminUserID, &inst.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan institution: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate institutions: %w", err)
	}
	return out, nil
}

// CreateClassroom inserts a classroom with its join code
func (r *InstitutionRepository) CreateClassroom(c *models.Classroom) error {
	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(
		`INSERT INTO classrooms (institution_id, name, educator_id, age_group, join_code, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		nullInt64(c.InstitutionID), c.Name, c.EducatorID, c.AgeGroup, c.JoinCode, now)
	if err != nil {
		return fmt.Errorf("failed to create classroom: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	if c.ChildIDs == nil {
		c.ChildIDs = []int64{}
	}
	return nil
}

const classroomColumns = `id, institution_id, name, educator_id, age_group, join_code, created_at`

func scanClassroom(row interface{ Scan(...interface{}) error }) (*models.Classroom, error) {
	c := &models.Classroom{}
	var inst sql.NullInt64
	if err := row.Scan(&c.ID, &inst, &c.Name, &c.EducatorID, &c.AgeGroup, &c.JoinCode, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.InstitutionID = int64Ptr(inst)
	c.ChildIDs = []int64{}
	return c, nil
}

// GetClassroomByJoinCode retrieves a classroom by its join code
func (r *InstitutionRepository) GetClassroomByJoinCode(code string) (*models.Classroom, error) {
	c, err := scanClassroom(r.db.QueryRow("SELECT "+classroomColumns+" FROM classrooms WHERE join_code = ?", code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classroom: %w", err)
	}
	return c, nil
}

// GetEducatorClassrooms lists an educator's classrooms with enrolled child IDs
func (r *InstitutionRepository) GetEducatorClassrooms(educatorID int64) ([]models.Classroom, error) {
	rows, err := r.db.Query("SELECT "+classroomColumns+" FROM classrooms WHERE educator_id = ? ORDER BY name, id", educatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query classrooms: %w", err)
	}
	var classrooms []models.Classroom
	for rows.Next() {
		c, err := scanClassroom(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan classroom: %w", err)
		}
		classrooms = append(classrooms, *c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate classrooms: %w", err)
	}
	rows.Close()

	for i := range classrooms {
		ids, err := r.classroomChildIDs(classrooms[i].ID)
		if err != nil {
			return nil, err
		}
		classrooms[i].ChildIDs = ids
	}
	return classrooms, nil
}

func (r *InstitutionRepository) classroomChildIDs(classroomID int64) ([]int64, error) {
	rows, err := r.db.Query(`SELECT child_id FROM classroom_children WHERE classroom_id = ? ORDER BY child_id`, classroomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query classroom children: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan classroom child: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EnrollChild adds a child to a classroom; enrolling twice is a no-op
func (r *InstitutionRepository) EnrollChild(classroomID, childID int64) error {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM classroom_children WHERE classroom_id = ? AND child_id = ?`, classroomID, childID).Scan(&n); err != nil {
		return fmt.Errorf("failed to check enrolment: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.db.Exec(`INSERT INTO classroom_children (classroom_id, child_id) VALUES (?, ?)`, classroomID, childID); err != nil {
		return fmt.Errorf("failed to enrol child: %w", err)
	}
	return nil
}

// IsEducatorOfChild reports whether the child sits in any classroom the educator runs
func (r *InstitutionRepository) IsEducatorOfChild(educatorID, childID int64) (bool, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM classroom_children cc
		JOIN classrooms c ON c.id = cc.classroom_id
		WHERE c.educator_id = ? AND cc.child_id = ?`, educatorID, childID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check educator access: %w", err)
	}
	return n > 0, nil
}
