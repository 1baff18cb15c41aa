package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkammes/taskpilot/internal/models"
)

// ConversationRepository handles conversation and message database operations
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a new conversation
func (r *ConversationRepository) Create(ctx context.Context, conversation *models.Conversation) error {
	query := `
		INSERT INTO conversations (id, user_id, title, status, generated_goal_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	if conversation.ID == uuid.Nil {
		conversation.ID = uuid.New()
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		conversation.ID,
		conversation.UserID,
		conversation.Title,
		conversation.Status,
		conversation.GeneratedGoalID,
		conversation.Metadata,
		now,
		now,
	).Scan(&conversation.CreatedAt, &conversation.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

// GetByID retrieves a conversation by ID
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conversation := &models.Conversation{}
	query := `
		SELECT id, user_id, title, status, generated_goal_id, metadata, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&conversation.ID,
		&conversation.UserID,
		&conversation.Title,
		&conversation.Status,
		&conversation.GeneratedGoalID,
		&conversation.Metadata,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conversation not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conversation, nil
}

// ListByUser retrieves the user's conversations, most recently updated first
func (r *ConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID, status *models.ConversationStatus) ([]*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, status, generated_goal_id, metadata, created_at, updated_at
		FROM conversations
		WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		conversation := &models.Conversation{}
		if err := rows.Scan(
			&conversation.ID,
			&conversation.UserID,
			&conversation.Title,
			&conversation.Status,
			&conversation.GeneratedGoalID,
			&conversation.Metadata,
			&conversation.CreatedAt,
			&conversation.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return conversations, nil
}

// Update updates a conversation's title, status, linked goal, and metadata
func (r *ConversationRepository) Update(ctx context.Context, conversation *models.Conversation) error {
	query := `
		UPDATE conversations
		SET title = $2, status = $3, generated_goal_id = $4, metadata = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		conversation.ID,
		conversation.Title,
		conversation.Status,
		conversation.GeneratedGoalID,
		conversation.Metadata,
		time.Now(),
	).Scan(&conversation.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("conversation not found: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	return nil
}

// Delete deletes a conversation owned by the user along with its messages
func (r *ConversationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM conversations WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("conversation not found: %w", sql.ErrNoRows)
	}

	return nil
}

// AddMessage appends a message to a conversation and bumps the
// conversation's updated_at so listings sort by recent activity.
func (r *ConversationRepository) AddMessage(ctx context.Context, message *models.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	now := time.Now()

	insertQuery := `
		INSERT INTO messages (id, conversation_id, role, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err = tx.QueryRowContext(ctx, insertQuery,
		message.ID,
		message.ConversationID,
		message.Role,
		message.Content,
		message.Metadata,
		now,
	).Scan(&message.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}

	touchQuery := `UPDATE conversations SET updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, touchQuery, message.ConversationID, now); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}

	return nil
}

// ListMessages retrieves a conversation's messages oldest first
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, metadata, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		message := &models.Message{}
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.Role,
			&message.Content,
			&message.Metadata,
			&message.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}
