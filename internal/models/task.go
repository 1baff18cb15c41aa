package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusArchived   TaskStatus = "archived"
)

// IsActive reports whether a task in this status is eligible for
// priority scoring and recommendations.
func (s TaskStatus) IsActive() bool {
	return s == TaskStatusTodo || s == TaskStatusInProgress
}

// TaskPriority represents the user-assigned priority of a task
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Suggestions is the structured advisory output attached to a task by the
// priority engine. It is fully regenerated on every rescore, never merged,
// and is persisted as a JSONB document rather than rendered text.
type Suggestions struct {
	Recommendations []string `json:"recommendations,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	Tips            []string `json:"tips,omitempty"`
}

// IsEmpty reports whether no suggestion rule fired.
func (s Suggestions) IsEmpty() bool {
	return len(s.Recommendations) == 0 && len(s.Warnings) == 0 && len(s.Tips) == 0
}

// Task represents a task item
type Task struct {
	ID             uuid.UUID    `json:"id"`
	UserID         uuid.UUID    `json:"user_id"`
	Title          string       `json:"title"`
	Description    *string      `json:"description,omitempty"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	DueDate        *time.Time   `json:"due_date,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	EstimatedHours *float64     `json:"estimated_hours,omitempty"`
	ActualHours    *float64     `json:"actual_hours,omitempty"`
	Position       int          `json:"position"`
	CategoryID     *uuid.UUID   `json:"category_id,omitempty"`
	GoalID         *uuid.UUID   `json:"goal_id,omitempty"`
	Tags           []string     `json:"tags"`
	AIScore        *int         `json:"ai_score,omitempty"`
	AISuggestions  Suggestions  `json:"ai_suggestions"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
