package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups tasks for a user (e.g. a Kanban board lane or project area)
type Category struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Color       *string   `json:"color,omitempty"` // Hex color code
	Icon        *string   `json:"icon,omitempty"`
	Description *string   `json:"description,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tag labels tasks; names are unique per user
type Tag struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color,omitempty"` // Hex color code
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
