package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/mkammes/taskpilot/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_priority", validateTaskPriority); err != nil {
		panic(fmt.Sprintf("failed to register task_priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("goal_status", validateGoalStatus); err != nil {
		panic(fmt.Sprintf("failed to register goal_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("goal_type", validateGoalType); err != nil {
		panic(fmt.Sprintf("failed to register goal_type validator: %v", err))
	}
}

// validateTaskStatus validates that a string is a valid TaskStatus enum value
func validateTaskStatus(fl validator.FieldLevel) bool {
	return ValidateTaskStatus(fl.Field().String()) == nil
}

// validateTaskPriority validates that a string is a valid TaskPriority enum value
func validateTaskPriority(fl validator.FieldLevel) bool {
	return ValidateTaskPriority(fl.Field().String()) == nil
}

// validateGoalStatus validates that a string is a valid GoalStatus enum value
func validateGoalStatus(fl validator.FieldLevel) bool {
	return ValidateGoalStatus(fl.Field().String()) == nil
}

// validateGoalType validates that a string is a valid GoalType enum value
func validateGoalType(fl validator.FieldLevel) bool {
	return ValidateGoalType(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	switch models.TaskStatus(value) {
	case models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusCompleted, models.TaskStatusArchived:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'todo', 'in_progress', 'completed', or 'archived')", value)
	}
}

// ValidateTaskPriority validates a TaskPriority string value
func ValidateTaskPriority(value string) error {
	switch models.TaskPriority(value) {
	case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh, models.TaskPriorityUrgent:
		return nil
	default:
		return fmt.Errorf("invalid priority: %s (must be 'low', 'medium', 'high', or 'urgent')", value)
	}
}

// ValidateGoalStatus validates a GoalStatus string value
func ValidateGoalStatus(value string) error {
	switch models.GoalStatus(value) {
	case models.GoalStatusPlanning, models.GoalStatusActive, models.GoalStatusCompleted,
		models.GoalStatusAbandoned, models.GoalStatusOnHold:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'planning', 'active', 'completed', 'abandoned', or 'on_hold')", value)
	}
}

// ValidateGoalType validates a GoalType string value
func ValidateGoalType(value string) error {
	switch models.GoalType(value) {
	case models.GoalTypePersonal, models.GoalTypeProfessional, models.GoalTypeHealth,
		models.GoalTypeFinancial, models.GoalTypeEducational, models.GoalTypeProject, models.GoalTypeOther:
		return nil
	default:
		return fmt.Errorf("invalid goal_type: %s", value)
	}
}
