package priority

import (
	"math"
	"time"

	"github.com/mkammes/taskpilot/internal/models"
)

const (
	// MaxScore is the upper bound of the priority score
	MaxScore = 100
	// MinScore is the lower bound of the priority score
	MinScore = 0

	// overrunFactor flags in-progress tasks whose actual effort exceeds
	// the estimate by this multiple
	overrunFactor = 1.5
	// largeTaskHours is the estimate above which a task should be split
	largeTaskHours = 8
	// staleTodoDays is the age after which an untouched todo should be
	// re-evaluated
	staleTodoDays = 30
)

// basePriorityScores maps user-assigned priority to the base contribution
// (0-40). Unknown priorities contribute nothing.
var basePriorityScores = map[models.TaskPriority]int{
	models.TaskPriorityUrgent: 40,
	models.TaskPriorityHigh:   30,
	models.TaskPriorityMedium: 20,
	models.TaskPriorityLow:    10,
}

// dueDateBand is one step of the due-date urgency cascade. Bands are
// evaluated top to bottom and only the first match contributes.
type dueDateBand struct {
	maxDays int
	points  int
}

// dueDateBands covers 0-30 points. Overdue (days < 0) is handled before
// the cascade.
var dueDateBands = []dueDateBand{
	{maxDays: 0, points: 25},  // due today
	{maxDays: 1, points: 20},  // due tomorrow
	{maxDays: 3, points: 15},  // due within 3 days
	{maxDays: 7, points: 10},  // due this week
	{maxDays: 14, points: 5},  // due within two weeks
}

// ageBands cover 0-15 points, rewarding tasks that have lingered.
var ageBands = []struct {
	minDays int
	points  int
}{
	{minDays: 30, points: 15},
	{minDays: 14, points: 10},
	{minDays: 7, points: 5},
}

// Engine computes priority scores and advisory suggestions for tasks.
// It is pure with respect to its inputs except for the clock, which is
// injected so callers (and tests) control "now".
type Engine struct {
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithNow overrides the clock used for due-date and age calculations.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a scoring engine using the wall clock.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score computes the priority score for a task, clamped to [0,100].
// The clock is read once per invocation; within a batch each task may
// observe a marginally different "now", which is acceptable against
// day-granularity bands.
func (e *Engine) Score(task *models.Task) int {
	now := e.now().UTC()
	score := basePriorityScores[task.Priority]
	score += dueDatePoints(task.DueDate, now)
	score += agePoints(task.CreatedAt, now)

	switch task.Status {
	case models.TaskStatusInProgress:
		score += 10
	case models.TaskStatusTodo:
		score += 5
	}

	if task.EstimatedHours != nil {
		switch {
		case *task.EstimatedHours <= 1:
			score += 5 // quick win
		case *task.EstimatedHours <= 2:
			score += 3
		}
	}

	if score > MaxScore {
		return MaxScore
	}
	if score < MinScore {
		return MinScore
	}
	return score
}

// Suggest evaluates the advisory rules against a task. Every rule is
// checked independently; the returned set replaces any previous one.
func (e *Engine) Suggest(task *models.Task) models.Suggestions {
	now := e.now().UTC()
	var s models.Suggestions

	if due, ok := normalizeInstant(task.DueDate); ok && due.Before(now) && task.Status != models.TaskStatusCompleted {
		s.Warnings = append(s.Warnings, "This task is overdue. Consider updating the due date or escalating priority.")
	}

	if task.Status == models.TaskStatusInProgress && task.ActualHours != nil && task.EstimatedHours != nil {
		if *task.ActualHours > *task.EstimatedHours*overrunFactor {
			s.Warnings = append(s.Warnings, "Task is taking longer than estimated. Consider breaking it down or seeking help.")
		}
	}

	if task.EstimatedHours != nil && *task.EstimatedHours > largeTaskHours {
		s.Recommendations = append(s.Recommendations, "This is a large task. Consider breaking it into smaller subtasks.")
	}

	if task.EstimatedHours != nil && *task.EstimatedHours <= 1 &&
		(task.Priority == models.TaskPriorityLow || task.Priority == models.TaskPriorityMedium) {
		s.Tips = append(s.Tips, "Quick win! This task can be completed quickly.")
	}

	if task.Description == nil || *task.Description == "" {
		s.Recommendations = append(s.Recommendations, "Add a description to provide more context for this task.")
	}

	if task.Status == models.TaskStatusTodo && wholeDays(now.Sub(task.CreatedAt.UTC())) > staleTodoDays {
		s.Recommendations = append(s.Recommendations, "This task has been pending for over a month. Consider archiving or re-evaluating its importance.")
	}

	return s
}

// dueDatePoints returns the due-date urgency contribution (0-30). The
// bands form an ordered cascade: the first match wins, so a task due in
// exactly one day never also receives the three-day bonus.
func dueDatePoints(dueDate *time.Time, now time.Time) int {
	due, ok := normalizeInstant(dueDate)
	if !ok {
		return 0
	}

	days := wholeDays(due.Sub(now))
	if days < 0 {
		return 30 // overdue
	}
	for _, band := range dueDateBands {
		if days <= band.maxDays {
			return band.points
		}
	}
	return 0
}

// agePoints returns the age contribution (0-15) based on whole days
// since creation.
func agePoints(createdAt time.Time, now time.Time) int {
	if createdAt.IsZero() {
		return 0
	}
	days := wholeDays(now.Sub(createdAt.UTC()))
	for _, band := range ageBands {
		if days > band.minDays {
			return band.points
		}
	}
	return 0
}

// normalizeInstant converts an optional timestamp to a canonical UTC
// instant. Unresolvable timestamps (nil or zero) report !ok so they make
// no contribution rather than failing the comparison.
func normalizeInstant(t *time.Time) (time.Time, bool) {
	if t == nil || t.IsZero() {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// wholeDays floors a duration to whole days, so negative durations round
// toward more negative (an hour overdue counts as day -1).
func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}
