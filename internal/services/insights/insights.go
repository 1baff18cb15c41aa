// Package insights computes productivity reports from a user's recent
// task history: completion rates, bottlenecks, and workflow suggestions.
package insights

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/models"
)

const (
	// DefaultPeriodDays is the report window when the caller does not
	// specify one
	DefaultPeriodDays = 30

	// highPriorityShareThreshold flags a backlog where most work claims
	// to be high priority
	highPriorityShareThreshold = 0.5
	// overdueRateThreshold (percent) flags deadline slippage
	overdueRateThreshold = 20.0
	// stalledAfter flags in-progress tasks untouched this long
	stalledAfter = 7 * 24 * time.Hour
	// slowCompletionDays flags an average cycle time worth breaking down
	slowCompletionDays = 7.0
	// todoBacklogShareThreshold flags a backlog that is mostly unscheduled
	todoBacklogShareThreshold = 0.7
)

// Bottleneck describes a pattern holding the user back
type Bottleneck struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Suggestion  string `json:"suggestion"`
}

// Optimization is a workflow improvement suggestion
type Optimization struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
	Priority    string `json:"priority"`
}

// Report is a productivity summary over a trailing window of tasks
type Report struct {
	ProductivityScore    float64                    `json:"productivity_score"`
	TotalTasks           int                        `json:"total_tasks"`
	CompletedTasks       int                        `json:"completed_tasks"`
	CompletionRate       float64                    `json:"completion_rate"`
	OverdueTasks         int                        `json:"overdue_tasks"`
	AvgCompletionDays    float64                    `json:"avg_completion_days"`
	PriorityDistribution map[models.TaskPriority]int `json:"priority_distribution"`
	StatusDistribution   map[models.TaskStatus]int   `json:"status_distribution"`
	Bottlenecks          []Bottleneck               `json:"bottlenecks"`
	Optimizations        []Optimization             `json:"optimizations"`
	PeriodDays           int                        `json:"period_days"`
	GeneratedAt          time.Time                  `json:"generated_at"`
}

// TaskSource is the slice of task persistence the insights service needs.
type TaskSource interface {
	ListCreatedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.Task, error)
}

// Service builds productivity reports.
type Service struct {
	tasks  TaskSource
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNow overrides the clock used for window and overdue calculations.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an insights service around the given task source.
func NewService(tasks TaskSource, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		tasks:  tasks,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report computes the productivity report over the trailing periodDays.
// Non-positive periods fall back to the default window.
func (s *Service) Report(ctx context.Context, userID uuid.UUID, periodDays int) (*Report, error) {
	if periodDays <= 0 {
		periodDays = DefaultPeriodDays
	}

	now := s.now().UTC()
	since := now.AddDate(0, 0, -periodDays)

	tasks, err := s.tasks.ListCreatedSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks for report: %w", err)
	}

	report := buildReport(tasks, now, periodDays)

	s.logger.Debug("built_productivity_report",
		zap.String("user_id", userID.String()),
		zap.Int("period_days", periodDays),
		zap.Int("total_tasks", report.TotalTasks),
		zap.Float64("productivity_score", report.ProductivityScore))

	return report, nil
}

// buildReport runs the whole analysis over an in-memory task set.
func buildReport(tasks []*models.Task, now time.Time, periodDays int) *Report {
	report := &Report{
		PriorityDistribution: make(map[models.TaskPriority]int),
		StatusDistribution:   make(map[models.TaskStatus]int),
		Bottlenecks:          []Bottleneck{},
		Optimizations:        []Optimization{},
		PeriodDays:           periodDays,
		GeneratedAt:          now,
	}

	var completionDaysSum float64
	var completionSamples int
	var stalledCount int
	completedByWeekday := make(map[time.Weekday]int)

	for _, task := range tasks {
		report.TotalTasks++
		report.PriorityDistribution[task.Priority]++
		report.StatusDistribution[task.Status]++

		if task.Status == models.TaskStatusCompleted {
			report.CompletedTasks++
			if task.CompletedAt != nil {
				completionDaysSum += task.CompletedAt.Sub(task.CreatedAt).Hours() / 24
				completionSamples++
				completedByWeekday[task.CompletedAt.Weekday()]++
			}
		}

		if task.DueDate != nil && task.DueDate.Before(now) && task.Status != models.TaskStatusCompleted {
			report.OverdueTasks++
		}

		if task.Status == models.TaskStatusInProgress && now.Sub(task.UpdatedAt) > stalledAfter {
			stalledCount++
		}
	}

	var overdueRate float64
	if report.TotalTasks > 0 {
		report.CompletionRate = round1(float64(report.CompletedTasks) / float64(report.TotalTasks) * 100)
		overdueRate = float64(report.OverdueTasks) / float64(report.TotalTasks) * 100
	}
	if completionSamples > 0 {
		report.AvgCompletionDays = round1(completionDaysSum / float64(completionSamples))
	}

	// Overdue work drags the score down at half weight.
	report.ProductivityScore = round1(clamp(report.CompletionRate-overdueRate*0.5, 0, 100))

	report.Bottlenecks = findBottlenecks(report, overdueRate, stalledCount)
	report.Optimizations = findOptimizations(report, completedByWeekday)

	return report
}

func findBottlenecks(report *Report, overdueRate float64, stalledCount int) []Bottleneck {
	bottlenecks := []Bottleneck{}

	highShare := 0.0
	if report.TotalTasks > 0 {
		highShare = float64(report.PriorityDistribution[models.TaskPriorityHigh]) / float64(report.TotalTasks)
	}
	if highShare > highPriorityShareThreshold {
		bottlenecks = append(bottlenecks, Bottleneck{
			Type:        "priority_imbalance",
			Description: "Over 50% of tasks are marked as high priority",
			Impact:      "high",
			Suggestion:  "Review and reprioritize tasks. Not everything can be urgent.",
		})
	}

	if overdueRate > overdueRateThreshold {
		bottlenecks = append(bottlenecks, Bottleneck{
			Type:        "overdue_tasks",
			Description: fmt.Sprintf("%.1f%% of tasks are overdue", overdueRate),
			Impact:      "high",
			Suggestion:  "Focus on clearing overdue tasks or adjusting unrealistic deadlines.",
		})
	}

	if stalledCount > 0 {
		bottlenecks = append(bottlenecks, Bottleneck{
			Type:        "stalled_tasks",
			Description: fmt.Sprintf("%d tasks have been in progress for over a week", stalledCount),
			Impact:      "medium",
			Suggestion:  "Review in-progress tasks and either complete or break them down.",
		})
	}

	return bottlenecks
}

func findOptimizations(report *Report, completedByWeekday map[time.Weekday]int) []Optimization {
	optimizations := []Optimization{}

	if report.AvgCompletionDays > slowCompletionDays {
		optimizations = append(optimizations, Optimization{
			Type:        "task_breakdown",
			Description: fmt.Sprintf("Tasks take an average of %.1f days to complete", report.AvgCompletionDays),
			Suggestion:  "Break down large tasks into smaller, manageable subtasks.",
			Priority:    "high",
		})
	}

	todoShare := 0.0
	if report.TotalTasks > 0 {
		todoShare = float64(report.StatusDistribution[models.TaskStatusTodo]) / float64(report.TotalTasks)
	}
	if todoShare > todoBacklogShareThreshold {
		optimizations = append(optimizations, Optimization{
			Type:        "task_backlog",
			Description: "Large backlog of unscheduled tasks",
			Suggestion:  "Prioritize and schedule tasks. Consider archiving or delegating low-priority items.",
			Priority:    "medium",
		})
	}

	if day, ok := mostProductiveDay(completedByWeekday); ok {
		optimizations = append(optimizations, Optimization{
			Type:        "time_pattern",
			Description: fmt.Sprintf("Most productive on %ss", day),
			Suggestion:  fmt.Sprintf("Schedule important tasks on %ss when you're most productive.", day),
			Priority:    "low",
		})
	}

	return optimizations
}

// mostProductiveDay returns the weekday with the most completions,
// breaking ties by weekday order so results are stable.
func mostProductiveDay(completedByWeekday map[time.Weekday]int) (time.Weekday, bool) {
	best := time.Sunday
	bestCount := 0
	for day := time.Sunday; day <= time.Saturday; day++ {
		if count := completedByWeekday[day]; count > bestCount {
			best = day
			bestCount = count
		}
	}
	return best, bestCount > 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
