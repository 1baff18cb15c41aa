// Package goals layers goal lifecycle logic over the repositories:
// task-driven progress, auto-completion, and AI breakdown generation.
package goals

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/models"
	"github.com/mkammes/taskpilot/internal/services/ai"
)

// Service coordinates goal updates that span repositories.
type Service struct {
	goals    database.GoalRepositoryInterface
	tasks    database.TaskRepositoryInterface
	contexts database.UserContextRepositoryInterface
	provider ai.Provider
	logger   *zap.Logger
}

// NewService creates a goal service. The AI provider may be nil when no
// provider is configured; breakdown generation then fails cleanly.
func NewService(
	goals database.GoalRepositoryInterface,
	tasks database.TaskRepositoryInterface,
	contexts database.UserContextRepositoryInterface,
	provider ai.Provider,
	logger *zap.Logger,
) *Service {
	return &Service{
		goals:    goals,
		tasks:    tasks,
		contexts: contexts,
		provider: provider,
		logger:   logger,
	}
}

// ErrNoProvider is returned when an AI operation is requested but no
// provider is configured.
var ErrNoProvider = fmt.Errorf("no AI provider configured")

// RecomputeProgress recalculates a goal's progress as the completed
// fraction of its linked tasks, auto-completing an active goal that
// reaches 100%. A goal with no linked tasks reports zero progress.
func (s *Service) RecomputeProgress(ctx context.Context, userID, goalID uuid.UUID) (*models.Goal, error) {
	goal, err := s.goals.GetByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != userID {
		return nil, fmt.Errorf("goal not found for user")
	}

	tasks, err := s.tasks.ListByGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	progress := 0.0
	if len(tasks) > 0 {
		completed := 0
		for _, task := range tasks {
			if task.Status == models.TaskStatusCompleted {
				completed++
			}
		}
		progress = float64(completed) / float64(len(tasks))
	}

	goal.Progress = progress
	if progress >= 1.0 && goal.Status == models.GoalStatusActive {
		goal.Status = models.GoalStatusCompleted
	}

	if err := s.goals.Update(ctx, goal); err != nil {
		return nil, err
	}

	s.logger.Debug("recomputed_goal_progress",
		zap.String("goal_id", goalID.String()),
		zap.Float64("progress", progress),
		zap.Int("task_count", len(tasks)))

	return goal, nil
}

// GenerateBreakdown asks the AI provider to decompose the goal and
// persists the result, replacing any previous breakdown.
func (s *Service) GenerateBreakdown(ctx context.Context, userID, goalID uuid.UUID) (*models.GoalBreakdown, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}

	goal, err := s.goals.GetByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != userID {
		return nil, fmt.Errorf("goal not found for user")
	}

	userContext, err := s.contexts.GetByUserID(ctx, userID)
	if err != nil {
		// Personalization is best-effort; the breakdown still works
		// without it.
		s.logger.Warn("failed_to_load_user_context", zap.Error(err))
		userContext = nil
	}

	breakdown, err := s.provider.BreakDownGoal(ai.WithUserID(ctx, userID), goal, userContext)
	if err != nil {
		return nil, fmt.Errorf("failed to generate breakdown: %w", err)
	}

	if err := s.goals.SaveBreakdown(ctx, goalID, breakdown); err != nil {
		return nil, err
	}

	s.logger.Info("generated_goal_breakdown",
		zap.String("goal_id", goalID.String()),
		zap.Int("milestone_count", len(breakdown.Milestones)))

	return breakdown, nil
}
