package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkammes/taskpilot/internal/models"
)

// SubscriptionRepository handles subscription database operations
type SubscriptionRepository struct {
	db *DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetByUserID retrieves the user's current subscription. A missing row
// means the user is on the free plan; callers get (nil, nil).
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	subscription := &models.Subscription{}
	query := `
		SELECT id, user_id, plan_name, status, subscription_id, started_at,
			ends_at, cancelled_at, metadata, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT 1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&subscription.ID,
		&subscription.UserID,
		&subscription.PlanName,
		&subscription.Status,
		&subscription.SubscriptionID,
		&subscription.StartedAt,
		&subscription.EndsAt,
		&subscription.CancelledAt,
		&subscription.Metadata,
		&subscription.CreatedAt,
		&subscription.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return subscription, nil
}

// Upsert creates or replaces the user's subscription record, keyed by
// user. Billing webhooks and the configure CLI both land here.
func (r *SubscriptionRepository) Upsert(ctx context.Context, subscription *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, user_id, plan_name, status, subscription_id, started_at,
			ends_at, cancelled_at, metadata, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (user_id) DO UPDATE
		SET plan_name = EXCLUDED.plan_name,
			status = EXCLUDED.status,
			subscription_id = EXCLUDED.subscription_id,
			started_at = EXCLUDED.started_at,
			ends_at = EXCLUDED.ends_at,
			cancelled_at = EXCLUDED.cancelled_at,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	if subscription.ID == uuid.Nil {
		subscription.ID = uuid.New()
	}
	if subscription.StartedAt.IsZero() {
		subscription.StartedAt = time.Now()
	}
	err := r.db.QueryRowContext(ctx, query,
		subscription.ID,
		subscription.UserID,
		subscription.PlanName,
		subscription.Status,
		subscription.SubscriptionID,
		subscription.StartedAt,
		subscription.EndsAt,
		subscription.CancelledAt,
		subscription.Metadata,
		time.Now(),
	).Scan(&subscription.ID, &subscription.CreatedAt, &subscription.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

// Cancel marks the user's subscription cancelled at the given time.
func (r *SubscriptionRepository) Cancel(ctx context.Context, userID uuid.UUID, cancelledAt time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = $2, cancelled_at = $3, updated_at = $4
		WHERE user_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID, models.SubscriptionStatusCancelled, cancelledAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("subscription not found: %w", sql.ErrNoRows)
	}

	return nil
}
