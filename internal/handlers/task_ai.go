package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/middleware"
	"github.com/mkammes/taskpilot/internal/models"
	"github.com/mkammes/taskpilot/internal/priority"
	"github.com/mkammes/taskpilot/internal/services/ai"
	"github.com/mkammes/taskpilot/internal/services/subscription"
	"github.com/mkammes/taskpilot/internal/validation"
)

// aiContext tags the request context so provider logs can correlate
// calls with the user and inbound request.
func aiContext(r *http.Request, userID uuid.UUID) context.Context {
	ctx := ai.WithUserID(r.Context(), userID)
	if reqID := r.Header.Get("X-Request-Id"); reqID != "" {
		ctx = ai.WithRequestID(ctx, reqID)
	}
	return ctx
}

// CreateFromAISeedScore is the score a freshly AI-created task carries
// until the next rescore runs.
const CreateFromAISeedScore = 90

// AIGate meters AI-assisted operations per the user's plan.
// subscription.Service implements it.
type AIGate interface {
	ConsumeAIUse(ctx context.Context, userID uuid.UUID) error
}

// TaskAIHandler handles AI-assisted task operations: natural-language
// parsing, subtask suggestions, scoring, and recommendations.
type TaskAIHandler struct {
	taskRepo    database.TaskRepositoryInterface
	tagRepo     database.TagRepositoryInterface
	contextRepo database.UserContextRepositoryInterface
	provider    ai.Provider
	priorities  *priority.Service
	aiGate      AIGate
}

// NewTaskAIHandler creates a new task AI handler
func NewTaskAIHandler(
	taskRepo database.TaskRepositoryInterface,
	tagRepo database.TagRepositoryInterface,
	contextRepo database.UserContextRepositoryInterface,
	provider ai.Provider,
	priorities *priority.Service,
	aiGate AIGate,
) *TaskAIHandler {
	return &TaskAIHandler{
		taskRepo:    taskRepo,
		tagRepo:     tagRepo,
		contextRepo: contextRepo,
		provider:    provider,
		priorities:  priorities,
		aiGate:      aiGate,
	}
}

// RegisterRoutes registers AI task routes on the given router
// The router should already have the /tasks prefix
func (h *TaskAIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/parse-ai", h.ParseTask).Methods("POST")
	r.HandleFunc("/create-from-ai", h.CreateFromAI).Methods("POST")
	r.HandleFunc("/update-scores", h.UpdateScores).Methods("POST")
	r.HandleFunc("/recommendations", h.Recommendations).Methods("GET")
	r.HandleFunc("/{id}/suggest-subtasks", h.SuggestSubtasks).Methods("POST")
}

// ParseTaskRequest carries the natural-language description to parse
type ParseTaskRequest struct {
	Description string `json:"description" validate:"required,min=1,max=2000"`
}

// ParseTask turns a natural-language description into a structured task
// draft without persisting anything
func (h *TaskAIHandler) ParseTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	if h.provider == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "AI features are not configured")
		return
	}

	var req ParseTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	req.Description = validation.SanitizeText(req.Description)
	if req.Description == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Description is required")
		return
	}

	ctx := aiContext(r, user.ID)
	if !h.consumeAIUse(w, ctx, user.ID) {
		return
	}

	userContext, err := h.contextRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		// Personalization is best-effort
		userContext = nil
	}

	parsed, err := h.provider.ParseTask(ctx, req.Description, userContext)
	if err != nil {
		respondAIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, parsed)
}

// CreateFromAIRequest is a parsed draft to persist as a real task
type CreateFromAIRequest struct {
	ai.ParsedTask
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	GoalID     *uuid.UUID `json:"goal_id,omitempty"`
}

// CreateFromAI persists a previously parsed draft, creating any missing
// tags and seeding the AI score until the next rescore
func (h *TaskAIHandler) CreateFromAI(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateFromAIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required")
		return
	}

	priorityValue := req.Priority
	if priorityValue == "" {
		priorityValue = models.TaskPriorityMedium
	}
	if err := validation.ValidateTaskPriority(string(priorityValue)); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	ctx := r.Context()

	// Create any tags the draft references that the user doesn't have yet
	for _, name := range req.Tags {
		tag := &models.Tag{ID: uuid.New(), UserID: user.ID, Name: name}
		if err := h.tagRepo.Upsert(ctx, tag); err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create tags")
			return
		}
	}

	var description *string
	if req.Description != "" {
		description = &req.Description
	}

	seedScore := CreateFromAISeedScore
	task := &models.Task{
		ID:             uuid.New(),
		UserID:         user.ID,
		Title:          req.Title,
		Description:    description,
		Status:         models.TaskStatusTodo,
		Priority:       priorityValue,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		CategoryID:     req.CategoryID,
		GoalID:         req.GoalID,
		Tags:           req.Tags,
		AIScore:        &seedScore,
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}

	if err := h.taskRepo.Create(ctx, task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// SuggestSubtasks proposes 3-5 steps for breaking the task down
func (h *TaskAIHandler) SuggestSubtasks(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	if h.provider == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "AI features are not configured")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}

	ctx := aiContext(r, user.ID)
	task, err := h.taskRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return
	}

	if !h.consumeAIUse(w, ctx, user.ID) {
		return
	}

	description := ""
	if task.Description != nil {
		description = *task.Description
	}

	subtasks, err := h.provider.SuggestSubtasks(ctx, task.Title, description)
	if err != nil {
		respondAIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"subtasks": subtasks})
}

// UpdateScores recomputes scores and suggestions for all the user's
// active tasks
func (h *TaskAIHandler) UpdateScores(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	tasks, err := h.priorities.RescoreAll(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update scores")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"updated_count": len(tasks),
		"tasks":         tasks,
	})
}

// Recommendations returns the top-priority active tasks, rescored
// in-flight
func (h *TaskAIHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	limit := priority.DefaultRecommendationLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	tasks, err := h.priorities.Recommend(r.Context(), user.ID, limit)
	if err != nil {
		if errors.Is(err, priority.ErrInvalidLimit) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Limit must be positive")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to compute recommendations")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"recommendations": tasks})
}

// consumeAIUse spends one unit of the daily allowance, writing the 429
// itself when the user is out. Returns false if the request must stop.
func (h *TaskAIHandler) consumeAIUse(w http.ResponseWriter, ctx context.Context, userID uuid.UUID) bool {
	if h.aiGate == nil {
		return true
	}
	if err := h.aiGate.ConsumeAIUse(ctx, userID); err != nil {
		if errors.Is(err, subscription.ErrAILimitExceeded) {
			respondJSONError(w, http.StatusTooManyRequests, "Too Many Requests", "Daily AI usage limit reached; upgrade to Pro for unlimited AI features")
			return false
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to check AI usage")
		return false
	}
	return true
}

// respondAIError maps provider failures onto HTTP statuses
func respondAIError(w http.ResponseWriter, err error) {
	switch {
	case ai.IsRateLimitError(err), ai.IsQuotaError(err):
		respondJSONError(w, http.StatusTooManyRequests, "Too Many Requests", "AI provider is throttling requests; try again shortly")
	default:
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "AI provider request failed")
	}
}
