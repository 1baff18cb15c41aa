package models

import (
	"time"

	"github.com/google/uuid"
)

// UserContext captures what a user is working on, fed into AI prompts to
// ground parsing and suggestions.
type UserContext struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	WorkDescription *string   `json:"work_description,omitempty"`
	ShortTermFocus  []string  `json:"short_term_focus,omitempty"`
	LongTermGoals   []string  `json:"long_term_goals,omitempty"`
	OtherContext    []string  `json:"other_context,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
