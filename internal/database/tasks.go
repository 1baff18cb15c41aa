package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mkammes/taskpilot/internal/models"
)

// TaskFilter narrows task listings. Nil fields are not applied.
type TaskFilter struct {
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	CategoryID *uuid.UUID
	GoalID     *uuid.UUID
	Tag        *string
	Search     *string
}

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `
	id, user_id, title, description, status, priority, due_date, completed_at,
	estimated_hours, actual_hours, position, category_id, goal_id, tags,
	ai_score, ai_suggestions, created_at, updated_at
`

// Create inserts a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (
			id, user_id, title, description, status, priority, due_date,
			estimated_hours, actual_hours, position, category_id, goal_id, tags,
			ai_score, ai_suggestions, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.EstimatedHours,
		task.ActualHours,
		task.Position,
		task.CategoryID,
		task.GoalID,
		pq.Array(task.Tags),
		task.AIScore,
		task.AISuggestions,
		now,
		now,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListByUser retrieves a page of the user's tasks, newest first, with
// optional filters. It returns the page and the total match count.
func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter TaskFilter, page, pageSize int) ([]*models.Task, int, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}

	addCondition := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.Status != nil {
		addCondition("status = $%d", *filter.Status)
	}
	if filter.Priority != nil {
		addCondition("priority = $%d", *filter.Priority)
	}
	if filter.CategoryID != nil {
		addCondition("category_id = $%d", *filter.CategoryID)
	}
	if filter.GoalID != nil {
		addCondition("goal_id = $%d", *filter.GoalID)
	}
	if filter.Tag != nil {
		addCondition("$%d = ANY(tags)", *filter.Tag)
	}
	if filter.Search != nil {
		args = append(args, *filter.Search)
		n := len(args)
		where = append(where, fmt.Sprintf("(title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", n, n))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM tasks WHERE ` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, taskColumns, whereClause, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// ListActiveByUser retrieves the user's todo and in-progress tasks,
// the population the scoring engine operates on.
func (r *TaskRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND status IN ($2, $3)
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, models.TaskStatusTodo, models.TaskStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ListCreatedSince retrieves all of the user's tasks created at or
// after the given instant, the window productivity reports run over.
func (r *TaskRepository) ListCreatedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ListByGoal retrieves all tasks attached to a goal, used for progress
// computation.
func (r *TaskRepository) ListByGoal(ctx context.Context, userID, goalID uuid.UUID) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND goal_id = $2
		ORDER BY position ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goal tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ListUserIDsWithActiveTasks returns the distinct users who currently
// have tasks in an active status, for scheduled rescoring.
func (r *TaskRepository) ListUserIDsWithActiveTasks(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT user_id FROM tasks WHERE status IN ('todo', 'in_progress')`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with active tasks: %w", err)
	}
	defer rows.Close()

	var userIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user ids: %w", err)
	}
	return userIDs, nil
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5,
			due_date = $6, completed_at = $7, estimated_hours = $8,
			actual_hours = $9, position = $10, category_id = $11, goal_id = $12,
			tags = $13, ai_score = $14, ai_suggestions = $15, updated_at = $16
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CompletedAt,
		task.EstimatedHours,
		task.ActualHours,
		task.Position,
		task.CategoryID,
		task.GoalID,
		pq.Array(task.Tags),
		task.AIScore,
		task.AISuggestions,
		time.Now(),
	).Scan(&task.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("task not found: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// UpdateScoring persists the engine's score and suggestions for a task
// without touching user-editable fields.
func (r *TaskRepository) UpdateScoring(ctx context.Context, taskID uuid.UUID, score int, suggestions models.Suggestions) error {
	query := `
		UPDATE tasks
		SET ai_score = $2, ai_suggestions = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, taskID, score, suggestions, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update task scoring: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %w", sql.ErrNoRows)
	}

	return nil
}

// Delete deletes a task owned by the user
func (r *TaskRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %w", sql.ErrNoRows)
	}

	return nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.CompletedAt,
		&task.EstimatedHours,
		&task.ActualHours,
		&task.Position,
		&task.CategoryID,
		&task.GoalID,
		pq.Array(&task.Tags),
		&task.AIScore,
		&task.AISuggestions,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func collectTasks(rows *sql.Rows) ([]*models.Task, error) {
	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}
