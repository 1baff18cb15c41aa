package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/priority"
	"github.com/mkammes/taskpilot/internal/queue"
	"github.com/mkammes/taskpilot/internal/services/ai"
	"github.com/mkammes/taskpilot/internal/services/goals"
)

// Processor consumes queue jobs and dispatches them to the scoring and
// goal services.
type Processor struct {
	priorities *priority.Service
	goals      *goals.Service
	jobQueue   queue.JobQueue // For re-enqueueing jobs with delays
	logger     *zap.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(priorities *priority.Service, goalService *goals.Service, jobQueue queue.JobQueue, logger *zap.Logger) *Processor {
	return &Processor{
		priorities: priorities,
		goals:      goalService,
		jobQueue:   jobQueue,
		logger:     logger,
	}
}

// ProcessRescoreJob recomputes scores for every active task the user has.
func (p *Processor) ProcessRescoreJob(ctx context.Context, job *queue.Job) error {
	tasks, err := p.priorities.RescoreAll(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to rescore tasks: %w", err)
	}

	p.logger.Info("processed_rescore_job",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID.String()),
		zap.Int("task_count", len(tasks)))
	return nil
}

// ProcessGoalBreakdownJob generates and persists an AI milestone
// breakdown for the goal named by the job.
func (p *Processor) ProcessGoalBreakdownJob(ctx context.Context, job *queue.Job) error {
	if job.GoalID == nil {
		return fmt.Errorf("goal_id is required for goal breakdown job")
	}

	breakdown, err := p.goals.GenerateBreakdown(ctx, job.UserID, *job.GoalID)
	if err != nil {
		return fmt.Errorf("failed to generate goal breakdown: %w", err)
	}

	p.logger.Info("processed_goal_breakdown_job",
		zap.String("job_id", job.ID.String()),
		zap.String("goal_id", job.GoalID.String()),
		zap.Int("milestone_count", len(breakdown.Milestones)))
	return nil
}

// ProcessJob processes a job based on its type
func (p *Processor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		p.logger.Debug("job_not_ready",
			zap.String("job_id", job.ID.String()),
			zap.Timep("not_before", job.NotBefore))
		if ackErr := msg.Ack(); ackErr != nil {
			p.logger.Warn("failed_to_ack_deferred_job", zap.Error(ackErr))
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeRescoreUser:
		if err := p.ProcessRescoreJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "rescore")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeGoalBreakdown:
		if err := p.ProcessGoalBreakdownJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "goal breakdown")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			p.logger.Warn("failed_to_nack_unknown_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// retryBackoffStep spaces retries of plain failures; attempt N waits
// N steps.
const retryBackoffStep = 30 * time.Second

// handleJobError applies retry policy. Every retry goes through
// retryLater so the bumped count rides on a fresh message — a plain
// Nack(requeue) would redeliver the original body and reset the count,
// retrying a deterministic failure forever. Quota and rate-limit errors
// from the AI provider get the classifier's delay; everything else
// backs off linearly until the job dead-letters.
func (p *Processor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error, jobKind string) error {
	throttled := ai.IsQuotaError(err) || ai.IsRateLimitError(err)

	if job.CanRetry() && p.jobQueue != nil {
		delay := time.Duration(job.RetryCount+1) * retryBackoffStep
		if throttled {
			delay = ai.GetRetryDelay(err, job.RetryCount)
		}

		if enqueueErr := p.retryLater(ctx, msg, job, delay); enqueueErr != nil {
			p.logger.Error("failed_to_reenqueue_job",
				zap.String("job_id", job.ID.String()),
				zap.Error(enqueueErr))
			// Broker redelivery keeps the job alive, at the cost of a
			// reset retry count.
			if nackErr := msg.Nack(true); nackErr != nil {
				p.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
			}
			return fmt.Errorf("%s job failed, could not re-enqueue: %w", jobKind, enqueueErr)
		}

		if throttled {
			p.logger.Info("reenqueued_throttled_job",
				zap.String("job_id", job.ID.String()),
				zap.String("kind", jobKind),
				zap.Duration("delay", delay))
			return nil
		}

		p.logger.Warn("job_failed_will_retry",
			zap.String("job_id", job.ID.String()),
			zap.String("kind", jobKind),
			zap.Int("attempt", job.RetryCount+1),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err))
		return fmt.Errorf("%s job failed (will retry): %w", jobKind, err)
	}

	p.logger.Error("job_failed_dead_lettering",
		zap.String("job_id", job.ID.String()),
		zap.String("kind", jobKind),
		zap.Error(err))
	if nackErr := msg.Nack(false); nackErr != nil {
		p.logger.Warn("failed_to_nack_job_to_dlq", zap.Error(nackErr))
	}
	return fmt.Errorf("%s job failed (max retries): %w", jobKind, err)
}

// retryLater publishes a copy of the job with the retry count bumped
// and a NotBefore delay, then acks the original delivery. Enqueue comes
// first: a crash between the two at worst duplicates the job, never
// loses it.
func (p *Processor) retryLater(ctx context.Context, msg queue.MessageInterface, job *queue.Job, delay time.Duration) error {
	notBefore := time.Now().Add(delay)
	retried := *job
	retried.IncrementRetry()
	retried.NotBefore = &notBefore

	if err := p.jobQueue.Enqueue(ctx, &retried); err != nil {
		return err
	}
	if ackErr := msg.Ack(); ackErr != nil {
		p.logger.Warn("failed_to_ack_after_reenqueue", zap.Error(ackErr))
	}
	return nil
}
