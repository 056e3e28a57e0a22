package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"learnsprout/internal/database"
	"learnsprout/internal/models"
)

// PlanRepository handles weekly plans and their scheduled activities
type PlanRepository struct {
	db database.DBTX
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db database.DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *PlanRepository) WithTx(tx *database.Tx) *PlanRepository {
	return &PlanRepository{db: tx}
}

// CreatePlan inserts a plan and all of its entries atomically.
// Plans are never merged; every call produces a new row.
func (r *PlanRepository) CreatePlan(plan *models.WeeklyPlan) error {
	createdAt := plan.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return inTx(r.db, func(q database.DBTX) error {
		id, err := q.ExecReturningID(
			`INSERT INTO weekly_plans (child_id, user_id, week_start, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
			plan.ChildID, plan.UserID, plan.WeekStart.Format(models.WeekLayout), plan.CreatedBy, createdAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to create plan: %w", err)
		}

		for _, day := range models.Weekdays {
			for _, entry := range plan.Days[day] {
				_, err := q.Exec(`
					INSERT INTO plan_activities (plan_id, day, activity_id, time_slot, status, sort_order, notes, updated_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
					id, string(day), entry.ActivityID, string(entry.TimeSlot), string(entry.Status), entry.Order,
					entry.Notes, createdAt.UTC())
				if err != nil {
					return fmt.Errorf("failed to create plan activity: %w", err)
				}
			}
		}

		plan.ID = id
		plan.CreatedAt = createdAt
		return nil
	})
}

const planColumns = `id, child_id, user_id, week_start, created_by, created_at`

func scanPlan(row interface{ Scan(...interface{}) error }) (*models.WeeklyPlan, error) {
	plan := &models.WeeklyPlan{}
	var weekStart string
	if err := row.Scan(&plan.ID, &plan.ChildID, &plan.UserID, &weekStart, &plan.CreatedBy, &plan.CreatedAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(models.WeekLayout, weekStart)
	if err != nil {
		return nil, fmt.Errorf("invalid week start %q: %w", weekStart, err)
	}
	plan.WeekStart = t
	plan.Days = make(map[models.Weekday][]models.PlanActivity)
	return plan, nil
}

// GetPlanByID retrieves a plan with its entries
func (r *PlanRepository) GetPlanByID(id int64) (*models.WeeklyPlan, error) {
	plan, err := scanPlan(r.db.QueryRow("SELECT "+planColumns+" FROM weekly_plans WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if err := r.loadEntries([]*models.WeeklyPlan{plan}); err != nil {
		return nil, err
	}
	return plan, nil
}

// GetLatestPlan returns the newest plan for a child's week. Earlier regenerations stay stored.
func (r *PlanRepository) GetLatestPlan(childID int64, weekStart time.Time) (*models.WeeklyPlan, error) {
	query := "SELECT " + planColumns + ` FROM weekly_plans
		WHERE child_id = ? AND week_start = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	plan, err := scanPlan(r.db.QueryRow(query, childID, models.StartOfWeek(weekStart).Format(models.WeekLayout)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest plan: %w", err)
	}
	if err := r.loadEntries([]*models.WeeklyPlan{plan}); err != nil {
		return nil, err
	}
	return plan, nil
}

// GetPlansForChild lists every stored plan of a child, newest week first
func (r *PlanRepository) GetPlansForChild(childID int64) ([]models.WeeklyPlan, error) {
	return r.listPlans("SELECT "+planColumns+" FROM weekly_plans WHERE child_id = ? ORDER BY week_start DESC, created_at DESC, id DESC", childID)
}

// GetPlansForUserBetween lists a user's plans whose week starts within [from, to]
func (r *PlanRepository) GetPlansForUserBetween(userID int64, from, to time.Time) ([]models.WeeklyPlan, error) {
	query := "SELECT " + planColumns + ` FROM weekly_plans
		WHERE user_id = ? AND week_start >= ? AND week_start <= ?
		ORDER BY week_start, created_at, id`
	return r.listPlans(query, userID, from.Format(models.WeekLayout), to.Format(models.WeekLayout))
}

func (r *PlanRepository) listPlans(query string, args ...interface{}) ([]models.WeeklyPlan, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	var plans []*models.WeeklyPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}
	rows.Close()

	if err := r.loadEntries(plans); err != nil {
		return nil, err
	}
	out := make([]models.WeeklyPlan, len(plans))
	for i, p := range plans {
		out[i] = *p
	}
	return out, nil
}

func (r *PlanRepository) loadEntries(plans []*models.WeeklyPlan) error {
	if len(plans) == 0 {
		return nil
	}
	byID := make(map[int64]*models.WeeklyPlan, len(plans))
	args := make([]interface{}, 0, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
		args = append(args, p.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	query := `SELECT plan_id, day, activity_id, time_slot, status, sort_order, notes
		FROM plan_activities WHERE plan_id IN (` + placeholders + `) ORDER BY plan_id, day, sort_order`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("failed to query plan activities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var planID int64
		var day, slot, status string
		var entry models.PlanActivity
		if err := rows.Scan(&planID, &day, &entry.ActivityID, &slot, &status, &entry.Order, &entry.Notes); err != nil {
			return fmt.Errorf("failed to scan plan activity: %w", err)
		}
		entry.TimeSlot = models.TimeSlot(slot)
		entry.Status = models.PlanStatus(status)
		if p, ok := byID[planID]; ok {
			p.Days[models.Weekday(day)] = append(p.Days[models.Weekday(day)], entry)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate plan activities: %w", err)
	}
	for _, p := range plans {
		p.SortDays()
	}
	return nil
}

// UpdateEntryStatus changes the status of one scheduled entry; it reports false when no entry matched
func (r *PlanRepository) UpdateEntryStatus(planID int64, day models.Weekday, order int, status models.PlanStatus) (bool, error) {
	result, err := r.db.Exec(
		`UPDATE plan_activities SET status = ?, updated_at = ? WHERE plan_id = ? AND day = ? AND sort_order = ?`,
		string(status), time.Now().UTC(), planID, string(day), order)
	if err != nil {
		return false, fmt.Errorf("failed to update plan activity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

// CompleteActivity marks every entry of activityID in the plan completed
func (r *PlanRepository) CompleteActivity(planID int64, activityID string) (int64, error) {
	result, err := r.db.Exec(
		`UPDATE plan_activities SET status = ?, updated_at = ? WHERE plan_id = ? AND activity_id = ? AND status <> ?`,
		string(models.PlanCompleted), time.Now().UTC(), planID, activityID, string(models.PlanCompleted))
	if err != nil {
		return 0, fmt.Errorf("failed to complete plan activity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read update result: %w", err)
	}
	return n, nil
}
