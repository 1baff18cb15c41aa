package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkammes/taskpilot/internal/models"
)

const oidcConfigColumns = `id, provider, issuer, domain, client_id, client_secret, redirect_uri, jwks_url, created_at, updated_at`

// OIDCConfigRepository stores per-provider OIDC settings.
type OIDCConfigRepository struct {
	db *DB
}

// NewOIDCConfigRepository creates a new OIDC config repository
func NewOIDCConfigRepository(db *DB) *OIDCConfigRepository {
	return &OIDCConfigRepository{db: db}
}

func scanOIDCConfig(row interface{ Scan(...any) error }) (*models.OIDCConfig, error) {
	config := &models.OIDCConfig{}
	err := row.Scan(
		&config.ID,
		&config.Provider,
		&config.Issuer,
		&config.Domain,
		&config.ClientID,
		&config.ClientSecret,
		&config.RedirectURI,
		&config.JWKSUrl,
		&config.CreatedAt,
		&config.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// Create inserts a new provider configuration.
func (r *OIDCConfigRepository) Create(ctx context.Context, config *models.OIDCConfig) error {
	query := `
		INSERT INTO oidc_config (` + oidcConfigColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		config.ID,
		config.Provider,
		config.Issuer,
		config.Domain,
		config.ClientID,
		config.ClientSecret,
		config.RedirectURI,
		config.JWKSUrl,
		now,
		now,
	).Scan(&config.CreatedAt, &config.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create OIDC config: %w", err)
	}

	return nil
}

// GetByProvider retrieves a provider's configuration by name.
func (r *OIDCConfigRepository) GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error) {
	query := `SELECT ` + oidcConfigColumns + ` FROM oidc_config WHERE provider = $1`

	config, err := scanOIDCConfig(r.db.QueryRowContext(ctx, query, provider))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("OIDC config not found for provider %s: %w", provider, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC config: %w", err)
	}

	return config, nil
}

// GetAll retrieves every configured provider, ordered by name.
func (r *OIDCConfigRepository) GetAll(ctx context.Context) ([]*models.OIDCConfig, error) {
	query := `SELECT ` + oidcConfigColumns + ` FROM oidc_config ORDER BY provider`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query OIDC configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.OIDCConfig
	for rows.Next() {
		config, err := scanOIDCConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan OIDC config: %w", err)
		}
		configs = append(configs, config)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating OIDC configs: %w", err)
	}

	return configs, nil
}

// Update replaces the settings for an existing provider.
func (r *OIDCConfigRepository) Update(ctx context.Context, config *models.OIDCConfig) error {
	query := `
		UPDATE oidc_config
		SET issuer = $2, domain = $3, client_id = $4, client_secret = $5, redirect_uri = $6, jwks_url = $7, updated_at = $8
		WHERE provider = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		config.Provider,
		config.Issuer,
		config.Domain,
		config.ClientID,
		config.ClientSecret,
		config.RedirectURI,
		config.JWKSUrl,
		time.Now(),
	).Scan(&config.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("OIDC config not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update OIDC config: %w", err)
	}

	return nil
}

// Delete removes a provider's configuration.
func (r *OIDCConfigRepository) Delete(ctx context.Context, provider string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM oidc_config WHERE provider = $1`, provider)
	if err != nil {
		return fmt.Errorf("failed to delete OIDC config: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("OIDC config not found")
	}

	return nil
}
