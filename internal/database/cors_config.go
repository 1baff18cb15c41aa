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

// The CORS table holds a single row; config_key keeps room for
// per-environment rows later.
const defaultCorsConfigKey = "default"

// CorsConfigRepository stores the browser origin allowlist.
type CorsConfigRepository struct {
	db *DB
}

// NewCorsConfigRepository creates a new CORS config repository.
func NewCorsConfigRepository(db *DB) *CorsConfigRepository {
	return &CorsConfigRepository{db: db}
}

// Get retrieves the CORS config, or (nil, nil) when none has been set.
func (r *CorsConfigRepository) Get(ctx context.Context) (*models.CorsConfig, error) {
	query := `
		SELECT config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at
		FROM cors_config WHERE config_key = $1
	`

	config := &models.CorsConfig{}
	err := r.db.QueryRowContext(ctx, query, defaultCorsConfigKey).Scan(
		&config.ConfigKey,
		&config.AllowedOrigins,
		&config.AllowCredentials,
		&config.MaxAge,
		&config.CreatedAt,
		&config.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cors config: %w", err)
	}

	return config, nil
}

// Set upserts the CORS config. AllowedOrigins is a comma-separated
// origin list.
func (r *CorsConfigRepository) Set(ctx context.Context, config *models.CorsConfig) error {
	origins := strings.TrimSpace(config.AllowedOrigins)
	if origins == "" {
		return fmt.Errorf("allowed_origins cannot be empty")
	}

	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cors_config (config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (config_key) DO UPDATE SET
			allowed_origins = EXCLUDED.allowed_origins,
			allow_credentials = EXCLUDED.allow_credentials,
			max_age = EXCLUDED.max_age,
			updated_at = EXCLUDED.updated_at
	`, defaultCorsConfigKey, origins, config.AllowCredentials, config.MaxAge, now, now)
	if err != nil {
		return fmt.Errorf("set cors config: %w", err)
	}

	return nil
}

// AllowedOriginsSlice splits a comma-separated origin list, trimming
// whitespace and dropping duplicates and empty entries.
func AllowedOriginsSlice(raw string) []string {
	if raw == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		out = append(out, origin)
	}
	return out
}
