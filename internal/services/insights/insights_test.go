package insights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/models"
)

var reportNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type mockTaskSource struct {
	tasks []*models.Task
	err   error
}

func (m *mockTaskSource) ListCreatedSince(_ context.Context, _ uuid.UUID, _ time.Time) ([]*models.Task, error) {
	return m.tasks, m.err
}

func testService(tasks []*models.Task) *Service {
	return NewService(&mockTaskSource{tasks: tasks}, zap.NewNop(),
		WithNow(func() time.Time { return reportNow }))
}

func task(status models.TaskStatus, priority models.TaskPriority, mutate func(*models.Task)) *models.Task {
	t := &models.Task{
		ID:        uuid.New(),
		Status:    status,
		Priority:  priority,
		CreatedAt: reportNow.AddDate(0, 0, -10),
		UpdatedAt: reportNow.AddDate(0, 0, -1),
	}
	if mutate != nil {
		mutate(t)
	}
	return t
}

func TestService_Report_Empty(t *testing.T) {
	t.Parallel()

	report, err := testService(nil).Report(context.Background(), uuid.New(), 30)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	if report.TotalTasks != 0 || report.CompletionRate != 0 || report.ProductivityScore != 0 {
		t.Errorf("expected zeroed report, got %+v", report)
	}
	if report.PeriodDays != 30 {
		t.Errorf("PeriodDays = %d, expected 30", report.PeriodDays)
	}
	if len(report.Bottlenecks) != 0 || len(report.Optimizations) != 0 {
		t.Errorf("expected no findings for empty history")
	}
}

func TestService_Report_SourceError(t *testing.T) {
	t.Parallel()

	svc := NewService(&mockTaskSource{err: errors.New("connection refused")}, zap.NewNop())
	if _, err := svc.Report(context.Background(), uuid.New(), 30); err == nil {
		t.Fatal("expected error when task source fails")
	}
}

func TestService_Report_Rates(t *testing.T) {
	t.Parallel()

	completedAt := reportNow.AddDate(0, 0, -2)
	overdueDate := reportNow.AddDate(0, 0, -1)
	tasks := []*models.Task{
		task(models.TaskStatusCompleted, models.TaskPriorityMedium, func(tk *models.Task) {
			tk.CompletedAt = &completedAt
		}),
		task(models.TaskStatusCompleted, models.TaskPriorityMedium, func(tk *models.Task) {
			tk.CompletedAt = &completedAt
		}),
		task(models.TaskStatusTodo, models.TaskPriorityLow, func(tk *models.Task) {
			tk.DueDate = &overdueDate
		}),
		task(models.TaskStatusTodo, models.TaskPriorityLow, nil),
	}

	report, err := testService(tasks).Report(context.Background(), uuid.New(), 30)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	if report.TotalTasks != 4 || report.CompletedTasks != 2 || report.OverdueTasks != 1 {
		t.Fatalf("counts wrong: %+v", report)
	}
	if report.CompletionRate != 50 {
		t.Errorf("CompletionRate = %v, expected 50", report.CompletionRate)
	}
	// 50% completion minus half of the 25% overdue rate.
	if report.ProductivityScore != 37.5 {
		t.Errorf("ProductivityScore = %v, expected 37.5", report.ProductivityScore)
	}
	// Completed tasks were created 10 days before completion minus 2: 8 days.
	if report.AvgCompletionDays != 8 {
		t.Errorf("AvgCompletionDays = %v, expected 8", report.AvgCompletionDays)
	}
}

func TestService_Report_ScoreBounds(t *testing.T) {
	t.Parallel()

	// Everything overdue, nothing completed: score floors at 0.
	overdueDate := reportNow.AddDate(0, 0, -3)
	var tasks []*models.Task
	for i := 0; i < 4; i++ {
		tasks = append(tasks, task(models.TaskStatusTodo, models.TaskPriorityMedium, func(tk *models.Task) {
			tk.DueDate = &overdueDate
		}))
	}

	report, err := testService(tasks).Report(context.Background(), uuid.New(), 30)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if report.ProductivityScore != 0 {
		t.Errorf("ProductivityScore = %v, expected 0", report.ProductivityScore)
	}
}

func TestService_Report_Bottlenecks(t *testing.T) {
	t.Parallel()

	overdueDate := reportNow.AddDate(0, 0, -2)
	tasks := []*models.Task{
		task(models.TaskStatusTodo, models.TaskPriorityHigh, func(tk *models.Task) {
			tk.DueDate = &overdueDate
		}),
		task(models.TaskStatusInProgress, models.TaskPriorityHigh, func(tk *models.Task) {
			tk.UpdatedAt = reportNow.AddDate(0, 0, -9)
		}),
		task(models.TaskStatusTodo, models.TaskPriorityHigh, nil),
	}

	report, err := testService(tasks).Report(context.Background(), uuid.New(), 30)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	types := make(map[string]bool)
	for _, b := range report.Bottlenecks {
		types[b.Type] = true
	}
	for _, want := range []string{"priority_imbalance", "overdue_tasks", "stalled_tasks"} {
		if !types[want] {
			t.Errorf("missing bottleneck %q, got %v", want, report.Bottlenecks)
		}
	}
}

func TestService_Report_Optimizations(t *testing.T) {
	t.Parallel()

	// Completions averaging well over a week, all landing on a Friday.
	friday := time.Date(2025, 6, 13, 10, 0, 0, 0, time.UTC)
	tasks := []*models.Task{
		task(models.TaskStatusCompleted, models.TaskPriorityMedium, func(tk *models.Task) {
			tk.CreatedAt = friday.AddDate(0, 0, -12)
			tk.CompletedAt = &friday
		}),
	}

	report, err := testService(tasks).Report(context.Background(), uuid.New(), 30)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	types := make(map[string]string)
	for _, o := range report.Optimizations {
		types[o.Type] = o.Description
	}
	if _, ok := types["task_breakdown"]; !ok {
		t.Errorf("missing task_breakdown optimization, got %v", report.Optimizations)
	}
	if desc, ok := types["time_pattern"]; !ok || desc != "Most productive on Fridays" {
		t.Errorf("time_pattern = %q, expected Friday pattern", desc)
	}
}

func TestService_Report_DefaultPeriod(t *testing.T) {
	t.Parallel()

	for _, period := range []int{0, -5} {
		report, err := testService(nil).Report(context.Background(), uuid.New(), period)
		if err != nil {
			t.Fatalf("Report failed: %v", err)
		}
		if report.PeriodDays != DefaultPeriodDays {
			t.Errorf("PeriodDays = %d, expected default %d", report.PeriodDays, DefaultPeriodDays)
		}
	}
}
