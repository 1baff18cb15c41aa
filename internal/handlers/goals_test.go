package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/models"
	"github.com/mkammes/taskpilot/internal/services/goals"
)

// mockGoalRepo is an in-memory GoalRepositoryInterface for handler tests
type mockGoalRepo struct {
	goals      map[uuid.UUID]*models.Goal
	reordered  []uuid.UUID
	statistics *models.GoalStatistics
}

func newMockGoalRepo() *mockGoalRepo {
	return &mockGoalRepo{goals: make(map[uuid.UUID]*models.Goal)}
}

func (m *mockGoalRepo) Create(ctx context.Context, goal *models.Goal) error {
	m.goals[goal.ID] = goal
	return nil
}

func (m *mockGoalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Goal, error) {
	goal, ok := m.goals[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return goal, nil
}

func (m *mockGoalRepo) ListByUser(ctx context.Context, userID uuid.UUID, status *models.GoalStatus) ([]*models.Goal, error) {
	var out []*models.Goal
	for _, goal := range m.goals {
		if goal.UserID != userID {
			continue
		}
		if status != nil && goal.Status != *status {
			continue
		}
		out = append(out, goal)
	}
	return out, nil
}

func (m *mockGoalRepo) Update(ctx context.Context, goal *models.Goal) error {
	m.goals[goal.ID] = goal
	return nil
}

func (m *mockGoalRepo) UpdateProgress(ctx context.Context, goalID uuid.UUID, progress float64) error {
	if goal, ok := m.goals[goalID]; ok {
		goal.Progress = progress
	}
	return nil
}

func (m *mockGoalRepo) SaveBreakdown(ctx context.Context, goalID uuid.UUID, breakdown *models.GoalBreakdown) error {
	if goal, ok := m.goals[goalID]; ok {
		goal.Breakdown = breakdown
	}
	return nil
}

func (m *mockGoalRepo) Reorder(ctx context.Context, userID uuid.UUID, orderedIDs []uuid.UUID) error {
	m.reordered = orderedIDs
	return nil
}

func (m *mockGoalRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	goal, ok := m.goals[id]
	if !ok || goal.UserID != userID {
		return sql.ErrNoRows
	}
	delete(m.goals, id)
	return nil
}

func (m *mockGoalRepo) Statistics(ctx context.Context, userID uuid.UUID) (*models.GoalStatistics, error) {
	if m.statistics != nil {
		return m.statistics, nil
	}
	return &models.GoalStatistics{GoalsByType: map[models.GoalType]int{}}, nil
}

var _ database.GoalRepositoryInterface = (*mockGoalRepo)(nil)

func newGoalRouter(goalRepo *mockGoalRepo, taskRepo *mockTaskRepo) *mux.Router {
	service := goals.NewService(goalRepo, taskRepo, &mockContextRepo{}, nil, zap.NewNop())
	handler := NewGoalHandler(goalRepo, service)

	r := mux.NewRouter()
	handler.RegisterRoutes(r.PathPrefix("/api/v1/goals").Subrouter())
	return r
}

func TestCreateGoal(t *testing.T) {
	t.Parallel()

	user := testUser()

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()

		repo := newMockGoalRepo()
		router := newGoalRouter(repo, newMockTaskRepo())

		rec := doRequest(t, router, user, http.MethodPost, "/api/v1/goals", map[string]any{
			"title": "Run a marathon",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var goal models.Goal
		decodeData(t, rec, &goal)
		if goal.Status != models.GoalStatusPlanning {
			t.Errorf("expected default status planning, got %s", goal.Status)
		}
		if goal.GoalType != models.GoalTypeOther {
			t.Errorf("expected default type other, got %s", goal.GoalType)
		}
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		t.Parallel()

		router := newGoalRouter(newMockGoalRepo(), newMockTaskRepo())
		rec := doRequest(t, router, user, http.MethodPost, "/api/v1/goals", map[string]any{
			"title":  "goal",
			"status": "done",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestUpdateGoal_TriState(t *testing.T) {
	t.Parallel()

	user := testUser()
	repo := newMockGoalRepo()
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	specific := "run 42km without stopping"
	goal := &models.Goal{
		ID:        uuid.New(),
		UserID:    user.ID,
		Title:     "Run a marathon",
		Specific:  &specific,
		TimeBound: &deadline,
		Status:    models.GoalStatusActive,
		GoalType:  models.GoalTypeHealth,
	}
	repo.goals[goal.ID] = goal

	router := newGoalRouter(repo, newMockTaskRepo())

	rec := doRequest(t, router, user, http.MethodPatch, "/api/v1/goals/"+goal.ID.String(), map[string]any{
		"time_bound": nil,
		"status":     "on_hold",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	updated := repo.goals[goal.ID]
	if updated.TimeBound != nil {
		t.Error("explicit null should clear time_bound")
	}
	if updated.Status != models.GoalStatusOnHold {
		t.Errorf("expected status on_hold, got %s", updated.Status)
	}
	if updated.Specific == nil || *updated.Specific != specific {
		t.Error("omitted specific should be unchanged")
	}
}

func TestRecomputeProgress(t *testing.T) {
	t.Parallel()

	user := testUser()
	goalRepo := newMockGoalRepo()
	taskRepo := newMockTaskRepo()

	goal := &models.Goal{ID: uuid.New(), UserID: user.ID, Title: "Ship the rewrite", Status: models.GoalStatusActive}
	goalRepo.goals[goal.ID] = goal

	for _, status := range []models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusCompleted, models.TaskStatusTodo, models.TaskStatusInProgress} {
		task := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "step", Status: status, GoalID: &goal.ID}
		taskRepo.tasks[task.ID] = task
	}

	router := newGoalRouter(goalRepo, taskRepo)

	rec := doRequest(t, router, user, http.MethodPost, "/api/v1/goals/"+goal.ID.String()+"/progress", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var updated models.Goal
	decodeData(t, rec, &updated)
	if updated.Progress != 0.5 {
		t.Errorf("expected progress 0.5 with 2 of 4 tasks done, got %v", updated.Progress)
	}
}

func TestDueSoon(t *testing.T) {
	t.Parallel()

	user := testUser()
	repo := newMockGoalRepo()

	soon := time.Now().AddDate(0, 0, 3)
	far := time.Now().AddDate(0, 0, 60)

	dueGoal := &models.Goal{ID: uuid.New(), UserID: user.ID, Title: "due", TimeBound: &soon, Status: models.GoalStatusActive}
	farGoal := &models.Goal{ID: uuid.New(), UserID: user.ID, Title: "far", TimeBound: &far, Status: models.GoalStatusActive}
	doneGoal := &models.Goal{ID: uuid.New(), UserID: user.ID, Title: "done", TimeBound: &soon, Status: models.GoalStatusCompleted}
	openEnded := &models.Goal{ID: uuid.New(), UserID: user.ID, Title: "open", Status: models.GoalStatusActive}
	for _, g := range []*models.Goal{dueGoal, farGoal, doneGoal, openEnded} {
		repo.goals[g.ID] = g
	}

	router := newGoalRouter(repo, newMockTaskRepo())

	rec := doRequest(t, router, user, http.MethodGet, "/api/v1/goals/due-soon", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var data struct {
		Goals []*models.Goal `json:"goals"`
	}
	decodeData(t, rec, &data)
	if len(data.Goals) != 1 {
		t.Fatalf("expected 1 due-soon goal, got %d", len(data.Goals))
	}
	if data.Goals[0].ID != dueGoal.ID {
		t.Errorf("expected goal %s, got %s", dueGoal.ID, data.Goals[0].ID)
	}
}

func TestReorderGoals(t *testing.T) {
	t.Parallel()

	user := testUser()
	repo := newMockGoalRepo()
	router := newGoalRouter(repo, newMockTaskRepo())

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	rec := doRequest(t, router, user, http.MethodPost, "/api/v1/goals/reorder", map[string]any{
		"goal_ids": ids,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.reordered) != 3 {
		t.Fatalf("expected 3 reordered IDs, got %d", len(repo.reordered))
	}
	for i, id := range ids {
		if repo.reordered[i] != id {
			t.Errorf("position %d: expected %s, got %s", i, id, repo.reordered[i])
		}
	}

	rec = doRequest(t, router, user, http.MethodPost, "/api/v1/goals/reorder", map[string]any{
		"goal_ids": []uuid.UUID{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty list expected status 400, got %d", rec.Code)
	}
}

func TestDeleteGoal_Ownership(t *testing.T) {
	t.Parallel()

	owner := testUser()
	other := testUser()
	repo := newMockGoalRepo()
	goal := &models.Goal{ID: uuid.New(), UserID: owner.ID, Title: "mine", Status: models.GoalStatusActive}
	repo.goals[goal.ID] = goal

	router := newGoalRouter(repo, newMockTaskRepo())

	rec := doRequest(t, router, other, http.MethodDelete, "/api/v1/goals/"+goal.ID.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("non-owner delete expected status 404, got %d", rec.Code)
	}

	rec = doRequest(t, router, owner, http.MethodDelete, "/api/v1/goals/"+goal.ID.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("owner delete expected status 204, got %d", rec.Code)
	}
}
