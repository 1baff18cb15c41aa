package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationStatus represents the state of a conversation
type ConversationStatus string

const (
	ConversationStatusActive    ConversationStatus = "active"
	ConversationStatusArchived  ConversationStatus = "archived"
	ConversationStatusCompleted ConversationStatus = "completed"
)

// MessageRole identifies the author of a message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Conversation is a threaded exchange with the AI assistant, optionally
// linked to a goal it produced.
type Conversation struct {
	ID              uuid.UUID          `json:"id"`
	UserID          uuid.UUID          `json:"user_id"`
	Title           string             `json:"title"`
	Status          ConversationStatus `json:"status"`
	GeneratedGoalID *uuid.UUID         `json:"generated_goal_id,omitempty"`
	Metadata        Metadata           `json:"metadata,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Message is a single entry in a conversation
type Message struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID uuid.UUID   `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	Metadata       Metadata    `json:"metadata,omitempty"` // tokens used, model version, etc.
	CreatedAt      time.Time   `json:"created_at"`
}

// IsFromUser reports whether the message was authored by the user.
func (m *Message) IsFromUser() bool {
	return m.Role == MessageRoleUser
}
