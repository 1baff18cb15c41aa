package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkammes/taskpilot/internal/models"
)

// GoalRepository handles goal database operations
type GoalRepository struct {
	db *DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *DB) *GoalRepository {
	return &GoalRepository{db: db}
}

const goalColumns = `
	id, user_id, title, description, specific, measurable, achievable,
	relevant, time_bound, status, goal_type, progress, position,
	breakdown, breakdown_generated_at, created_at, updated_at
`

// Create inserts a new goal
func (r *GoalRepository) Create(ctx context.Context, goal *models.Goal) error {
	query := `
		INSERT INTO goals (
			id, user_id, title, description, specific, measurable, achievable,
			relevant, time_bound, status, goal_type, progress, position,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`

	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		goal.ID,
		goal.UserID,
		goal.Title,
		goal.Description,
		goal.Specific,
		goal.Measurable,
		goal.Achievable,
		goal.Relevant,
		goal.TimeBound,
		goal.Status,
		goal.GoalType,
		goal.Progress,
		goal.Position,
		now,
		now,
	).Scan(&goal.CreatedAt, &goal.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}

	return nil
}

// GetByID retrieves a goal by ID
func (r *GoalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE id = $1`

	goal, err := scanGoal(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("goal not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}

	return goal, nil
}

// ListByUser retrieves the user's goals ordered by position, optionally
// filtered by status.
func (r *GoalRepository) ListByUser(ctx context.Context, userID uuid.UUID, status *models.GoalStatus) ([]*models.Goal, error) {
	query := `
		SELECT ` + goalColumns + `
		FROM goals
		WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY position ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []*models.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}

	return goals, nil
}

// Update updates an existing goal
func (r *GoalRepository) Update(ctx context.Context, goal *models.Goal) error {
	query := `
		UPDATE goals
		SET title = $2, description = $3, specific = $4, measurable = $5,
			achievable = $6, relevant = $7, time_bound = $8, status = $9,
			goal_type = $10, progress = $11, position = $12, updated_at = $13
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		goal.ID,
		goal.Title,
		goal.Description,
		goal.Specific,
		goal.Measurable,
		goal.Achievable,
		goal.Relevant,
		goal.TimeBound,
		goal.Status,
		goal.GoalType,
		goal.Progress,
		goal.Position,
		time.Now(),
	).Scan(&goal.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("goal not found: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}

	return nil
}

// UpdateProgress sets the goal's completion fraction.
func (r *GoalRepository) UpdateProgress(ctx context.Context, goalID uuid.UUID, progress float64) error {
	query := `UPDATE goals SET progress = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, goalID, progress, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update goal progress: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("goal not found: %w", sql.ErrNoRows)
	}

	return nil
}

// SaveBreakdown replaces the goal's AI-generated breakdown.
func (r *GoalRepository) SaveBreakdown(ctx context.Context, goalID uuid.UUID, breakdown *models.GoalBreakdown) error {
	query := `
		UPDATE goals
		SET breakdown = $2, breakdown_generated_at = $3, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, goalID, breakdown, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save goal breakdown: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("goal not found: %w", sql.ErrNoRows)
	}

	return nil
}

// Reorder assigns positions matching the order of the given IDs. Goals
// not listed keep their positions.
func (r *GoalRepository) Reorder(ctx context.Context, userID uuid.UUID, orderedIDs []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE goals SET position = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`
	now := time.Now()
	for position, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx, query, id, userID, position, now); err != nil {
			return fmt.Errorf("failed to reorder goal %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}

	return nil
}

// Delete deletes a goal owned by the user. Attached tasks are detached
// by the schema's ON DELETE SET NULL.
func (r *GoalRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM goals WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("goal not found: %w", sql.ErrNoRows)
	}

	return nil
}

// Statistics aggregates the user's goals by status and type.
func (r *GoalRepository) Statistics(ctx context.Context, userID uuid.UUID) (*models.GoalStatistics, error) {
	stats := &models.GoalStatistics{GoalsByType: make(map[models.GoalType]int)}

	query := `
		SELECT status, goal_type, progress,
			(time_bound IS NOT NULL AND time_bound < NOW() AND status NOT IN ('completed', 'abandoned')) AS overdue
		FROM goals
		WHERE user_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goal statistics: %w", err)
	}
	defer rows.Close()

	var progressSum float64
	for rows.Next() {
		var status models.GoalStatus
		var goalType models.GoalType
		var progress float64
		var overdue bool
		if err := rows.Scan(&status, &goalType, &progress, &overdue); err != nil {
			return nil, fmt.Errorf("failed to scan goal statistics: %w", err)
		}

		stats.TotalGoals++
		progressSum += progress
		stats.GoalsByType[goalType]++
		if overdue {
			stats.OverdueGoals++
		}

		switch status {
		case models.GoalStatusActive:
			stats.ActiveGoals++
		case models.GoalStatusCompleted:
			stats.CompletedGoals++
		case models.GoalStatusPlanning:
			stats.PlanningGoals++
		case models.GoalStatusAbandoned:
			stats.AbandonedGoals++
		case models.GoalStatusOnHold:
			stats.OnHoldGoals++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goal statistics: %w", err)
	}

	if stats.TotalGoals > 0 {
		stats.AverageProgress = progressSum / float64(stats.TotalGoals)
	}

	return stats, nil
}

func scanGoal(row rowScanner) (*models.Goal, error) {
	goal := &models.Goal{}
	var breakdown models.GoalBreakdown
	var hasBreakdown sql.NullTime

	err := row.Scan(
		&goal.ID,
		&goal.UserID,
		&goal.Title,
		&goal.Description,
		&goal.Specific,
		&goal.Measurable,
		&goal.Achievable,
		&goal.Relevant,
		&goal.TimeBound,
		&goal.Status,
		&goal.GoalType,
		&goal.Progress,
		&goal.Position,
		&breakdown,
		&hasBreakdown,
		&goal.CreatedAt,
		&goal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if hasBreakdown.Valid {
		goal.Breakdown = &breakdown
		goal.BreakdownGeneratedAt = &hasBreakdown.Time
	}

	return goal, nil
}
