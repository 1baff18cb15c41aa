package priority

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/models"
)

// DefaultRecommendationLimit is used when the caller does not specify
// how many tasks to recommend.
const DefaultRecommendationLimit = 5

// ErrInvalidLimit is returned when a recommendation limit is zero or
// negative.
var ErrInvalidLimit = errors.New("recommendation limit must be positive")

// TaskStore is the slice of task persistence the scoring service needs.
type TaskStore interface {
	// ListActiveByUser returns the user's todo and in-progress tasks.
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	// UpdateScoring persists a task's score and suggestions.
	UpdateScoring(ctx context.Context, taskID uuid.UUID, score int, suggestions models.Suggestions) error
}

// Service recomputes priority scores across a user's active tasks and
// produces ranked recommendations.
type Service struct {
	tasks  TaskStore
	engine *Engine
	logger *zap.Logger
}

// NewService creates a scoring service around the given store and engine.
func NewService(tasks TaskStore, engine *Engine, logger *zap.Logger) *Service {
	return &Service{
		tasks:  tasks,
		engine: engine,
		logger: logger,
	}
}

// RescoreAll recomputes and persists the score and suggestions for every
// active task of the user, returning the updated tasks. Completed and
// archived tasks are untouched.
func (s *Service) RescoreAll(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	tasks, err := s.tasks.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tasks: %w", err)
	}

	for _, task := range tasks {
		score := s.engine.Score(task)
		suggestions := s.engine.Suggest(task)

		if err := s.tasks.UpdateScoring(ctx, task.ID, score, suggestions); err != nil {
			return nil, fmt.Errorf("failed to update score for task %s: %w", task.ID, err)
		}

		task.AIScore = &score
		task.AISuggestions = suggestions
	}

	s.logger.Debug("rescored_tasks",
		zap.String("user_id", userID.String()),
		zap.Int("count", len(tasks)))

	return tasks, nil
}

// Recommend rescores the user's active tasks and returns the top limit
// tasks ordered by score descending, oldest first on ties. The limit
// must be positive; callers wanting the default pass
// DefaultRecommendationLimit.
func (s *Service) Recommend(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Task, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	tasks, err := s.RescoreAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		si, sj := scoreOf(tasks[i]), scoreOf(tasks[j])
		if si != sj {
			return si > sj
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func scoreOf(task *models.Task) int {
	if task.AIScore == nil {
		return 0
	}
	return *task.AIScore
}
