package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/queue"
)

// ActiveUserSource lists users who have tasks worth rescoring.
type ActiveUserSource interface {
	ListUserIDsWithActiveTasks(ctx context.Context) ([]uuid.UUID, error)
}

// Scheduler enqueues periodic rescoring jobs. Scores depend on due dates
// and task age, so they drift overnight even when nothing changes.
type Scheduler struct {
	jobQueue queue.JobQueue
	users    ActiveUserSource
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a rescore scheduler.
func NewScheduler(jobQueue queue.JobQueue, users ActiveUserSource, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		jobQueue: jobQueue,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}
}

// ScheduleRescoreJobs creates rescoring jobs for users with active tasks (2x/day)
func (s *Scheduler) ScheduleRescoreJobs(ctx context.Context) error {
	// Calculate next scheduled times (06:00 and 18:00)
	now := s.now()
	nextMorning := time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, now.Location())
	nextEvening := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location())

	// If we're past morning time today, schedule for tomorrow
	if now.After(nextMorning) {
		nextMorning = nextMorning.Add(24 * time.Hour)
	}

	// If we're past evening time today, schedule for tomorrow
	if now.After(nextEvening) {
		nextEvening = nextEvening.Add(24 * time.Hour)
	}

	userIDs, err := s.users.ListUserIDsWithActiveTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users with active tasks: %w", err)
	}

	for _, userID := range userIDs {
		if err := s.createRescoreJob(ctx, userID, nextMorning); err != nil {
			s.logger.Warn("failed_to_schedule_morning_rescore_job",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			// Continue with other users
		}

		if err := s.createRescoreJob(ctx, userID, nextEvening); err != nil {
			s.logger.Warn("failed_to_schedule_evening_rescore_job",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			// Continue with other users
		}
	}

	s.logger.Info("scheduled_rescore_jobs",
		zap.Int("user_count", len(userIDs)),
		zap.Time("next_morning", nextMorning),
		zap.Time("next_evening", nextEvening),
	)

	return nil
}

// createRescoreJob creates a rescoring job for a user
func (s *Scheduler) createRescoreJob(ctx context.Context, userID uuid.UUID, notBefore time.Time) error {
	job := queue.NewJob(queue.JobTypeRescoreUser, userID, nil)
	job.NotBefore = &notBefore

	// Set NotAfter to 1 day after scheduled time for garbage collection
	notAfter := notBefore.Add(24 * time.Hour)
	job.NotAfter = &notAfter

	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue rescore job: %w", err)
	}

	return nil
}
