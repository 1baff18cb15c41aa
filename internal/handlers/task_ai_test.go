package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/models"
	"github.com/mkammes/taskpilot/internal/priority"
	"github.com/mkammes/taskpilot/internal/services/ai"
	"github.com/mkammes/taskpilot/internal/services/subscription"
)

// mockProvider is a canned-response ai.Provider
type mockProvider struct {
	parsed    *ai.ParsedTask
	subtasks  []ai.SubtaskSuggestion
	chatResp  *ai.ChatResponse
	breakdown *models.GoalBreakdown
	err       error
}

func (m *mockProvider) ParseTask(ctx context.Context, description string, userContext *models.UserContext) (*ai.ParsedTask, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.parsed, nil
}

func (m *mockProvider) SuggestSubtasks(ctx context.Context, title, description string) ([]ai.SubtaskSuggestion, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.subtasks, nil
}

func (m *mockProvider) BreakDownGoal(ctx context.Context, goal *models.Goal, userContext *models.UserContext) (*models.GoalBreakdown, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.breakdown, nil
}

func (m *mockProvider) Chat(ctx context.Context, messages []ai.ChatMessage, userContext *models.UserContext) (*ai.ChatResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.chatResp, nil
}

var _ ai.Provider = (*mockProvider)(nil)

// mockTagRepo records upserted tags
type mockTagRepo struct {
	upserted []*models.Tag
	err      error
}

func (m *mockTagRepo) Upsert(ctx context.Context, tag *models.Tag) error {
	if m.err != nil {
		return m.err
	}
	m.upserted = append(m.upserted, tag)
	return nil
}

func (m *mockTagRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Tag, error) {
	return m.upserted, nil
}

func (m *mockTagRepo) Delete(ctx context.Context, id, userID uuid.UUID) error { return m.err }

// mockContextRepo serves a fixed user context
type mockContextRepo struct {
	uc  *models.UserContext
	err error
}

func (m *mockContextRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserContext, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.uc, nil
}

func (m *mockContextRepo) Upsert(ctx context.Context, uc *models.UserContext) error {
	m.uc = uc
	return nil
}

// mockAIGate counts consumed uses and can run out
type mockAIGate struct {
	consumed int
	err      error
}

func (m *mockAIGate) ConsumeAIUse(ctx context.Context, userID uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.consumed++
	return nil
}

func newTaskAIRouter(repo *mockTaskRepo, tags *mockTagRepo, provider ai.Provider, gate AIGate) *mux.Router {
	engine := priority.NewEngine(priority.WithNow(func() time.Time {
		return time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	}))
	priorities := priority.NewService(repo, engine, zap.NewNop())
	handler := NewTaskAIHandler(repo, tags, &mockContextRepo{}, provider, priorities, gate)

	r := mux.NewRouter()
	handler.RegisterRoutes(r.PathPrefix("/api/v1/tasks").Subrouter())
	return r
}

func TestParseTask(t *testing.T) {
	t.Parallel()

	user := testUser()

	t.Run("returns parsed draft", func(t *testing.T) {
		t.Parallel()

		provider := &mockProvider{parsed: &ai.ParsedTask{
			Title:    "Buy groceries",
			Priority: models.TaskPriorityLow,
			Tags:     []string{"errands"},
		}}
		gate := &mockAIGate{}
		router := newTaskAIRouter(newMockTaskRepo(), &mockTagRepo{}, provider, gate)

		rec := doRequest(t, router, user, http.MethodPost, "/api/v1/tasks/parse-ai", map[string]any{
			"description": "buy groceries tomorrow",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var parsed ai.ParsedTask
		decodeData(t, rec, &parsed)
		if parsed.Title != "Buy groceries" {
			t.Errorf("expected parsed title, got %q", parsed.Title)
		}
		if gate.consumed != 1 {
			t.Errorf("expected 1 AI use consumed, got %d", gate.consumed)
		}
	})

	t.Run("no provider configured", func(t *testing.T) {
		t.Parallel()

		router := newTaskAIRouter(newMockTaskRepo(), &mockTagRepo{}, nil, &mockAIGate{})
		rec := doRequest(t, router, user, http.MethodPost, "/api/v1/tasks/parse-ai", map[string]any{
			"description": "anything",
		})
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rec.Code)
		}
	})

	t.Run("daily limit exhausted", func(t *testing.T) {
		t.Parallel()

		gate := &mockAIGate{err: subscription.ErrAILimitExceeded}
		router := newTaskAIRouter(newMockTaskRepo(), &mockTagRepo{}, &mockProvider{}, gate)
		rec := doRequest(t, router, user, http.MethodPost, "/api/v1/tasks/parse-ai", map[string]any{
			"description": "anything",
		})
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected status 429, got %d", rec.Code)
		}
	})

	t.Run("provider throttled", func(t *testing.T) {
		t.Parallel()

		provider := &mockProvider{err: &ai.APIError{StatusCode: 429, Type: "rate_limit_error", Message: "slow down"}}
		router := newTaskAIRouter(newMockTaskRepo(), &mockTagRepo{}, provider, &mockAIGate{})
		rec := doRequest(t, router, user, http.MethodPost, "/api/v1/tasks/parse-ai", map[string]any{
			"description": "anything",
		})
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected status 429, got %d", rec.Code)
		}
	})
}

func TestCreateFromAI(t *testing.T) {
	t.Parallel()

	user := testUser()
	repo := newMockTaskRepo()
	tags := &mockTagRepo{}
	router := newTaskAIRouter(repo, tags, &mockProvider{}, &mockAIGate{})

	rec := doRequest(t, router, user, http.MethodPost, "/api/v1/tasks/create-from-ai", map[string]any{
		"title":    "Prepare slides",
		"priority": "high",
		"tags":     []string{"work", "presentation"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var task models.Task
	decodeData(t, rec, &task)
	if task.AIScore == nil || *task.AIScore != CreateFromAISeedScore {
		t.Errorf("expected seed score %d, got %v", CreateFromAISeedScore, task.AIScore)
	}
	if task.Status != models.TaskStatusTodo {
		t.Errorf("expected status todo, got %s", task.Status)
	}
	if len(tags.upserted) != 2 {
		t.Errorf("expected 2 tags upserted, got %d", len(tags.upserted))
	}
}

func TestRecommendations(t *testing.T) {
	t.Parallel()

	user := testUser()

	newSeededRepo := func() *mockTaskRepo {
		repo := newMockTaskRepo()
		due := time.Date(2026, 1, 15, 17, 0, 0, 0, time.UTC)
		for i, p := range []models.TaskPriority{models.TaskPriorityUrgent, models.TaskPriorityLow, models.TaskPriorityHigh} {
			task := &models.Task{
				ID:       uuid.New(),
				UserID:   user.ID,
				Title:    "task",
				Status:   models.TaskStatusTodo,
				Priority: p,
				Tags:     []string{},
			}
			if i == 0 {
				task.DueDate = &due
			}
			repo.tasks[task.ID] = task
		}
		return repo
	}

	t.Run("default limit", func(t *testing.T) {
		t.Parallel()

		router := newTaskAIRouter(newSeededRepo(), &mockTagRepo{}, nil, nil)
		rec := doRequest(t, router, user, http.MethodGet, "/api/v1/tasks/recommendations", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var data struct {
			Recommendations []*models.Task `json:"recommendations"`
		}
		decodeData(t, rec, &data)
		if len(data.Recommendations) != 3 {
			t.Fatalf("expected 3 recommendations, got %d", len(data.Recommendations))
		}
		first := data.Recommendations[0]
		if first.Priority != models.TaskPriorityUrgent {
			t.Errorf("expected urgent task first, got %s", first.Priority)
		}
		if first.AIScore == nil {
			t.Error("recommendations should carry fresh scores")
		}
	})

	t.Run("limit trims results", func(t *testing.T) {
		t.Parallel()

		router := newTaskAIRouter(newSeededRepo(), &mockTagRepo{}, nil, nil)
		rec := doRequest(t, router, user, http.MethodGet, "/api/v1/tasks/recommendations?limit=1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		var data struct {
			Recommendations []*models.Task `json:"recommendations"`
		}
		decodeData(t, rec, &data)
		if len(data.Recommendations) != 1 {
			t.Errorf("expected 1 recommendation, got %d", len(data.Recommendations))
		}
	})

	t.Run("invalid limits rejected", func(t *testing.T) {
		t.Parallel()

		router := newTaskAIRouter(newSeededRepo(), &mockTagRepo{}, nil, nil)
		for _, limit := range []string{"0", "-3", "abc"} {
			rec := doRequest(t, router, user, http.MethodGet, "/api/v1/tasks/recommendations?limit="+limit, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("limit %q: expected status 400, got %d", limit, rec.Code)
			}
		}
	})
}

func TestSuggestSubtasks_OwnershipBeforeAIUse(t *testing.T) {
	t.Parallel()

	owner := testUser()
	other := testUser()
	repo := newMockTaskRepo()
	task := &models.Task{ID: uuid.New(), UserID: owner.ID, Title: "big task", Status: models.TaskStatusTodo}
	repo.tasks[task.ID] = task

	gate := &mockAIGate{}
	provider := &mockProvider{subtasks: []ai.SubtaskSuggestion{{Title: "step one"}}}
	router := newTaskAIRouter(repo, &mockTagRepo{}, provider, gate)

	rec := doRequest(t, router, other, http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/suggest-subtasks", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
	if gate.consumed != 0 {
		t.Error("ownership failures must not consume the AI allowance")
	}

	rec = doRequest(t, router, owner, http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/suggest-subtasks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gate.consumed != 1 {
		t.Errorf("expected 1 AI use consumed, got %d", gate.consumed)
	}
}

func TestUpdateScores(t *testing.T) {
	t.Parallel()

	user := testUser()
	repo := newMockTaskRepo()
	task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "score me", Status: models.TaskStatusTodo, Priority: models.TaskPriorityMedium}
	repo.tasks[task.ID] = task

	router := newTaskAIRouter(repo, &mockTagRepo{}, nil, nil)

	rec := doRequest(t, router, user, http.MethodPost, "/api/v1/tasks/update-scores", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var data struct {
		UpdatedCount int `json:"updated_count"`
	}
	decodeData(t, rec, &data)
	if data.UpdatedCount != 1 {
		t.Errorf("expected 1 task updated, got %d", data.UpdatedCount)
	}
	if repo.tasks[task.ID].AIScore == nil {
		t.Error("expected score to be persisted")
	}
}

func TestRespondAIError_Unknown(t *testing.T) {
	t.Parallel()

	user := testUser()
	provider := &mockProvider{err: errors.New("boom")}
	router := newTaskAIRouter(newMockTaskRepo(), &mockTagRepo{}, provider, &mockAIGate{})

	rec := doRequest(t, router, user, http.MethodPost, "/api/v1/tasks/parse-ai", map[string]any{
		"description": "anything",
	})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rec.Code)
	}
}
