package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkammes/taskpilot/internal/models"
)

const userColumns = "id, email, provider_id, name, email_verified, created_at, updated_at"

// UserRepository persists user accounts. Accounts are provisioned from
// verified token claims; there is no password storage.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.ProviderID,
		&user.Name,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts a user and fills in the database-assigned timestamps.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, provider_id, name, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.ProviderID, user.Name, user.EmailVerified, now, now,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetByProviderID looks up a user by the OIDC subject claim.
func (r *UserRepository) GetByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE provider_id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, providerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by provider ID: %w", err)
	}
	return user, nil
}

// SyncFromClaims finds the user matching verified token claims, creating
// the record on first login and refreshing email or name when the
// identity provider reports new values.
func (r *UserRepository) SyncFromClaims(ctx context.Context, claims *models.JWTClaims) (*models.User, error) {
	user, err := r.GetByProviderID(ctx, claims.Sub)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		user = &models.User{
			ID:            uuid.New(),
			Email:         claims.Email,
			ProviderID:    &claims.Sub,
			EmailVerified: true,
		}
		if claims.Name != "" {
			name := claims.Name
			user.Name = &name
		}
		if err := r.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	changed := false
	if claims.Email != "" && user.Email != claims.Email {
		user.Email = claims.Email
		changed = true
	}
	if claims.Name != "" && (user.Name == nil || *user.Name != claims.Name) {
		name := claims.Name
		user.Name = &name
		changed = true
	}
	if changed {
		if err := r.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $2, provider_id = $3, name = $4, email_verified = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.ProviderID, user.Name, user.EmailVerified, time.Now(),
	).Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}
