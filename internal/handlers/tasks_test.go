package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/middleware"
	"github.com/mkammes/taskpilot/internal/models"
	"github.com/mkammes/taskpilot/internal/queue"
)

// mockTaskRepo is an in-memory TaskRepositoryInterface for handler tests
type mockTaskRepo struct {
	tasks     map[uuid.UUID]*models.Task
	createErr error
	updateErr error
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
}

func (m *mockTaskRepo) Create(ctx context.Context, task *models.Task) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return task, nil
}

func (m *mockTaskRepo) ListByUser(ctx context.Context, userID uuid.UUID, filter database.TaskFilter, page, pageSize int) ([]*models.Task, int, error) {
	var out []*models.Task
	for _, task := range m.tasks {
		if task.UserID != userID {
			continue
		}
		if filter.Status != nil && task.Status != *filter.Status {
			continue
		}
		out = append(out, task)
	}
	return out, len(out), nil
}

func (m *mockTaskRepo) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	var out []*models.Task
	for _, task := range m.tasks {
		if task.UserID == userID && (task.Status == models.TaskStatusTodo || task.Status == models.TaskStatusInProgress) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) ListCreatedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.Task, error) {
	return nil, nil
}

func (m *mockTaskRepo) ListByGoal(ctx context.Context, userID, goalID uuid.UUID) ([]*models.Task, error) {
	var out []*models.Task
	for _, task := range m.tasks {
		if task.UserID == userID && task.GoalID != nil && *task.GoalID == goalID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) ListUserIDsWithActiveTasks(ctx context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *models.Task) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) UpdateScoring(ctx context.Context, taskID uuid.UUID, score int, suggestions models.Suggestions) error {
	if task, ok := m.tasks[taskID]; ok {
		task.AIScore = &score
		task.AISuggestions = suggestions
	}
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return sql.ErrNoRows
	}
	delete(m.tasks, id)
	return nil
}

var _ database.TaskRepositoryInterface = (*mockTaskRepo)(nil)

// mockEnqueuer records enqueued jobs
type mockEnqueuer struct {
	enqueued []*queue.Job
	err      error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockEnqueuer) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}
func (m *mockEnqueuer) Close() error                          { return nil }
func (m *mockEnqueuer) HealthCheck(ctx context.Context) error { return nil }

var _ queue.JobQueue = (*mockEnqueuer)(nil)

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "test@example.com"}
}

func newTaskRouter(repo database.TaskRepositoryInterface, jobQueue queue.JobQueue) *mux.Router {
	r := mux.NewRouter()
	handler := NewTaskHandler(repo, jobQueue)
	handler.RegisterRoutes(r.PathPrefix("/api/v1/tasks").Subrouter())
	return r
}

func doRequest(t *testing.T, router *mux.Router, user *models.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := newTestRequest(method, path, body)
	if user != nil {
		req = req.WithContext(middleware.SetUserInContext(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// decodeData unwraps the response envelope into out
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	user := testUser()

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()

		repo := newMockTaskRepo()
		jobs := &mockEnqueuer{}
		router := newTaskRouter(repo, jobs)

		rec := doRequest(t, router, user, http.MethodPost, "/api/v1/tasks", map[string]any{
			"title": "Write quarterly report",
		})

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var task models.Task
		decodeData(t, rec, &task)
		if task.Priority != models.TaskPriorityMedium {
			t.Errorf("expected default priority medium, got %s", task.Priority)
		}
		if task.Status != models.TaskStatusTodo {
			t.Errorf("expected default status todo, got %s", task.Status)
		}
		if task.Tags == nil {
			t.Error("expected tags to default to empty slice, got nil")
		}

		if len(jobs.enqueued) != 1 {
			t.Fatalf("expected 1 rescore job, got %d", len(jobs.enqueued))
		}
		if jobs.enqueued[0].Type != queue.JobTypeRescoreUser {
			t.Errorf("expected rescore_user job, got %s", jobs.enqueued[0].Type)
		}
	})

	t.Run("missing title rejected", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(newMockTaskRepo(), nil)
		rec := doRequest(t, router, user, http.MethodPost, "/api/v1/tasks", map[string]any{
			"description": "no title here",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("invalid priority rejected", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(newMockTaskRepo(), nil)
		rec := doRequest(t, router, user, http.MethodPost, "/api/v1/tasks", map[string]any{
			"title":    "task",
			"priority": "critical",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(newMockTaskRepo(), nil)
		rec := doRequest(t, router, nil, http.MethodPost, "/api/v1/tasks", map[string]any{"title": "task"})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})
}

func TestGetTask_Ownership(t *testing.T) {
	t.Parallel()

	owner := testUser()
	other := testUser()
	repo := newMockTaskRepo()
	task := &models.Task{ID: uuid.New(), UserID: owner.ID, Title: "private", Status: models.TaskStatusTodo}
	repo.tasks[task.ID] = task

	router := newTaskRouter(repo, nil)

	rec := doRequest(t, router, owner, http.MethodGet, "/api/v1/tasks/"+task.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("owner expected status 200, got %d", rec.Code)
	}

	rec = doRequest(t, router, other, http.MethodGet, "/api/v1/tasks/"+task.ID.String(), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-owner expected status 403, got %d", rec.Code)
	}

	rec = doRequest(t, router, owner, http.MethodGet, "/api/v1/tasks/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown ID expected status 404, got %d", rec.Code)
	}

	rec = doRequest(t, router, owner, http.MethodGet, "/api/v1/tasks/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed ID expected status 400, got %d", rec.Code)
	}
}

func TestUpdateTask_PartialSemantics(t *testing.T) {
	t.Parallel()

	user := testUser()

	newTaskWithDueDate := func(repo *mockTaskRepo) *models.Task {
		due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		desc := "original description"
		task := &models.Task{
			ID:          uuid.New(),
			UserID:      user.ID,
			Title:       "original title",
			Description: &desc,
			Status:      models.TaskStatusTodo,
			Priority:    models.TaskPriorityHigh,
			DueDate:     &due,
			Tags:        []string{"work"},
		}
		repo.tasks[task.ID] = task
		return task
	}

	t.Run("omitted fields unchanged", func(t *testing.T) {
		t.Parallel()

		repo := newMockTaskRepo()
		task := newTaskWithDueDate(repo)
		router := newTaskRouter(repo, nil)

		rec := doRequest(t, router, user, http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), map[string]any{
			"title": "renamed",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		updated := repo.tasks[task.ID]
		if updated.Title != "renamed" {
			t.Errorf("expected title renamed, got %q", updated.Title)
		}
		if updated.DueDate == nil {
			t.Error("due date should be unchanged when omitted")
		}
		if updated.Description == nil || *updated.Description != "original description" {
			t.Error("description should be unchanged when omitted")
		}
	})

	t.Run("explicit null clears due date", func(t *testing.T) {
		t.Parallel()

		repo := newMockTaskRepo()
		task := newTaskWithDueDate(repo)
		router := newTaskRouter(repo, nil)

		rec := doRequest(t, router, user, http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), map[string]any{
			"due_date": nil,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		if repo.tasks[task.ID].DueDate != nil {
			t.Error("explicit null should clear the due date")
		}
	})

	t.Run("null title rejected", func(t *testing.T) {
		t.Parallel()

		repo := newMockTaskRepo()
		task := newTaskWithDueDate(repo)
		router := newTaskRouter(repo, nil)

		rec := doRequest(t, router, user, http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), map[string]any{
			"title": nil,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("null tags resets to empty", func(t *testing.T) {
		t.Parallel()

		repo := newMockTaskRepo()
		task := newTaskWithDueDate(repo)
		router := newTaskRouter(repo, nil)

		rec := doRequest(t, router, user, http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), map[string]any{
			"tags": nil,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		updated := repo.tasks[task.ID]
		if updated.Tags == nil || len(updated.Tags) != 0 {
			t.Errorf("expected empty tags, got %v", updated.Tags)
		}
	})
}

func TestUpdateTaskStatus_CompletedAt(t *testing.T) {
	t.Parallel()

	user := testUser()
	repo := newMockTaskRepo()
	jobs := &mockEnqueuer{}
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "finish me", Status: models.TaskStatusInProgress}
	repo.tasks[task.ID] = task

	router := newTaskRouter(repo, jobs)

	rec := doRequest(t, router, user, http.MethodPatch, "/api/v1/tasks/"+task.ID.String()+"/status", map[string]any{
		"status": "completed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.tasks[task.ID].CompletedAt == nil {
		t.Fatal("completing a task should stamp completed_at")
	}

	rec = doRequest(t, router, user, http.MethodPatch, "/api/v1/tasks/"+task.ID.String()+"/status", map[string]any{
		"status": "todo",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if repo.tasks[task.ID].CompletedAt != nil {
		t.Fatal("reopening a task should clear completed_at")
	}

	if len(jobs.enqueued) != 2 {
		t.Errorf("expected a rescore job per status change, got %d", len(jobs.enqueued))
	}
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	user := testUser()
	repo := newMockTaskRepo()
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "doomed", Status: models.TaskStatusTodo}
	repo.tasks[task.ID] = task

	router := newTaskRouter(repo, nil)

	rec := doRequest(t, router, user, http.MethodDelete, "/api/v1/tasks/"+task.ID.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	rec = doRequest(t, router, user, http.MethodDelete, "/api/v1/tasks/"+task.ID.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete expected status 404, got %d", rec.Code)
	}
}

func TestListTasks_InvalidFilter(t *testing.T) {
	t.Parallel()

	user := testUser()
	router := newTaskRouter(newMockTaskRepo(), nil)

	rec := doRequest(t, router, user, http.MethodGet, "/api/v1/tasks?status=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}

	rec = doRequest(t, router, user, http.MethodGet, "/api/v1/tasks?category_id=nope", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}
