package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkammes/taskpilot/internal/models"
)

const defaultRatelimitConfigKey = "default"

// RatelimitConfigRepository stores the request rate applied by the
// rate limit middleware.
type RatelimitConfigRepository struct {
	db *DB
}

// NewRatelimitConfigRepository creates a new ratelimit config repository.
func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{db: db}
}

// Get retrieves the rate limit config, or (nil, nil) when none has
// been set.
func (r *RatelimitConfigRepository) Get(ctx context.Context) (*models.RatelimitConfig, error) {
	query := `
		SELECT config_key, rate, created_at, updated_at
		FROM ratelimit_config WHERE config_key = $1
	`

	config := &models.RatelimitConfig{}
	err := r.db.QueryRowContext(ctx, query, defaultRatelimitConfigKey).Scan(
		&config.ConfigKey,
		&config.Rate,
		&config.CreatedAt,
		&config.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ratelimit config: %w", err)
	}

	return config, nil
}

// Set upserts the rate limit config. Rate uses limiter notation, e.g.
// "5-S" for five per second or "100-M" for a hundred per minute.
func (r *RatelimitConfigRepository) Set(ctx context.Context, config *models.RatelimitConfig) error {
	rate := strings.TrimSpace(config.Rate)
	if rate == "" {
		return fmt.Errorf("rate cannot be empty")
	}

	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ratelimit_config (config_key, rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (config_key) DO UPDATE SET
			rate = EXCLUDED.rate,
			updated_at = EXCLUDED.updated_at
	`, defaultRatelimitConfigKey, rate, now, now)
	if err != nil {
		return fmt.Errorf("set ratelimit config: %w", err)
	}

	return nil
}
