package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mkammes/taskpilot/internal/models"
)

// UserContextRepository handles user context database operations
type UserContextRepository struct {
	db *DB
}

// NewUserContextRepository creates a new user context repository
func NewUserContextRepository(db *DB) *UserContextRepository {
	return &UserContextRepository{db: db}
}

// GetByUserID retrieves the user's context. A missing row is not an
// error; callers get (nil, nil) and prompt without personalization.
func (r *UserContextRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserContext, error) {
	uc := &models.UserContext{}
	query := `
		SELECT id, user_id, work_description, short_term_focus, long_term_goals,
			other_context, created_at, updated_at
		FROM user_contexts
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&uc.ID,
		&uc.UserID,
		&uc.WorkDescription,
		pq.Array(&uc.ShortTermFocus),
		pq.Array(&uc.LongTermGoals),
		pq.Array(&uc.OtherContext),
		&uc.CreatedAt,
		&uc.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user context: %w", err)
	}

	return uc, nil
}

// Upsert creates or replaces the user's context, keyed by user.
func (r *UserContextRepository) Upsert(ctx context.Context, uc *models.UserContext) error {
	query := `
		INSERT INTO user_contexts (
			id, user_id, work_description, short_term_focus, long_term_goals,
			other_context, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET work_description = EXCLUDED.work_description,
			short_term_focus = EXCLUDED.short_term_focus,
			long_term_goals = EXCLUDED.long_term_goals,
			other_context = EXCLUDED.other_context,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx, query,
		uc.ID,
		uc.UserID,
		uc.WorkDescription,
		pq.Array(uc.ShortTermFocus),
		pq.Array(uc.LongTermGoals),
		pq.Array(uc.OtherContext),
		time.Now(),
	).Scan(&uc.ID, &uc.CreatedAt, &uc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert user context: %w", err)
	}

	return nil
}
