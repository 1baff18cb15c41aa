package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkammes/taskpilot/internal/models"
)

// CategoryRepository handles category database operations
type CategoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts a new category
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (id, user_id, name, color, icon, description, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		category.ID,
		category.UserID,
		category.Name,
		category.Color,
		category.Icon,
		category.Description,
		category.Position,
		now,
		now,
	).Scan(&category.CreatedAt, &category.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category := &models.Category{}
	query := `
		SELECT id, user_id, name, color, icon, description, position, created_at, updated_at
		FROM categories
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.UserID,
		&category.Name,
		&category.Color,
		&category.Icon,
		&category.Description,
		&category.Position,
		&category.CreatedAt,
		&category.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return category, nil
}

// ListByUser retrieves the user's categories ordered by position
func (r *CategoryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Category, error) {
	query := `
		SELECT id, user_id, name, color, icon, description, position, created_at, updated_at
		FROM categories
		WHERE user_id = $1
		ORDER BY position ASC, name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category := &models.Category{}
		if err := rows.Scan(
			&category.ID,
			&category.UserID,
			&category.Name,
			&category.Color,
			&category.Icon,
			&category.Description,
			&category.Position,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, nil
}

// Update updates an existing category
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	query := `
		UPDATE categories
		SET name = $2, color = $3, icon = $4, description = $5, position = $6, updated_at = $7
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		category.ID,
		category.Name,
		category.Color,
		category.Icon,
		category.Description,
		category.Position,
		time.Now(),
	).Scan(&category.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("category not found: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}

	return nil
}

// Delete deletes a category owned by the user. Tasks in the category are
// detached by the schema's ON DELETE SET NULL.
func (r *CategoryRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM categories WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("category not found: %w", sql.ErrNoRows)
	}

	return nil
}

// TagRepository handles tag database operations
type TagRepository struct {
	db *DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *DB) *TagRepository {
	return &TagRepository{db: db}
}

// Upsert creates a tag or returns the existing one with the same name.
// Tag names are unique per user.
func (r *TagRepository) Upsert(ctx context.Context, tag *models.Tag) error {
	query := `
		INSERT INTO tags (id, user_id, name, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, name) DO UPDATE
		SET color = COALESCE(EXCLUDED.color, tags.color), updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx, query,
		tag.ID,
		tag.UserID,
		tag.Name,
		tag.Color,
		time.Now(),
	).Scan(&tag.ID, &tag.CreatedAt, &tag.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert tag: %w", err)
	}

	return nil
}

// ListByUser retrieves the user's tags alphabetically
func (r *TagRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Tag, error) {
	query := `
		SELECT id, user_id, name, color, created_at, updated_at
		FROM tags
		WHERE user_id = $1
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		tag := &models.Tag{}
		if err := rows.Scan(
			&tag.ID,
			&tag.UserID,
			&tag.Name,
			&tag.Color,
			&tag.CreatedAt,
			&tag.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	return tags, nil
}

// Delete deletes a tag owned by the user
func (r *TagRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM tags WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("tag not found: %w", sql.ErrNoRows)
	}

	return nil
}
