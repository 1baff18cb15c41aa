package ai

import (
	"context"
	"time"

	"github.com/mkammes/taskpilot/internal/models"
)

// Provider is the interface for AI providers
type Provider interface {
	// ParseTask turns a natural-language description into a structured
	// task draft.
	ParseTask(ctx context.Context, description string, userContext *models.UserContext) (*ParsedTask, error)

	// SuggestSubtasks proposes smaller steps for an existing task.
	SuggestSubtasks(ctx context.Context, title, description string) ([]SubtaskSuggestion, error)

	// BreakDownGoal decomposes a goal into milestones, metrics, and risks.
	BreakDownGoal(ctx context.Context, goal *models.Goal, userContext *models.UserContext) (*models.GoalBreakdown, error)

	// Chat handles a goal-planning conversation turn and returns the AI
	// response.
	Chat(ctx context.Context, messages []ChatMessage, userContext *models.UserContext) (*ChatResponse, error)
}

// ParsedTask is the structured draft extracted from free text. Fields
// the model could not determine are left nil.
type ParsedTask struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Priority       models.TaskPriority `json:"priority"`
	DueDate        *time.Time          `json:"due_date,omitempty"`
	EstimatedHours *float64            `json:"estimated_hours,omitempty"`
	Tags           []string            `json:"tags"`
}

// SubtaskSuggestion is one proposed step for breaking a task down
type SubtaskSuggestion struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	EstimatedHours float64             `json:"estimated_hours"`
	Priority       models.TaskPriority `json:"priority"`
}

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatResponse represents a response from the AI chat
type ChatResponse struct {
	Message       string `json:"message"`
	GoalReady     bool   `json:"goal_ready,omitempty"`      // Whether the conversation has converged on a goal
	SuggestedGoal string `json:"suggested_goal,omitempty"` // Draft goal title once converged
}

// ProviderFactory creates an AI provider based on the provider type
type ProviderFactory func(config map[string]string) (Provider, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Provider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
