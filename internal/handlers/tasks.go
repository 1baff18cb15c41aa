package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/middleware"
	"github.com/mkammes/taskpilot/internal/models"
	"github.com/mkammes/taskpilot/internal/queue"
	"github.com/mkammes/taskpilot/internal/validation"
)

const (
	// MaxTitleLength is the maximum length for task titles
	MaxTitleLength = 500
	// MaxDescriptionLength is the maximum length for task descriptions
	MaxDescriptionLength = 10000
	// DefaultPageSize is the default page size for pagination
	DefaultPageSize = 100
	// MaxPageSize is the maximum page size for pagination
	MaxPageSize = 500
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskRepo database.TaskRepositoryInterface
	jobQueue queue.JobQueue
}

// NewTaskHandler creates a new task handler. The queue may be nil; task
// mutations then skip the background rescore.
func NewTaskHandler(taskRepo database.TaskRepositoryInterface, jobQueue queue.JobQueue) *TaskHandler {
	return &TaskHandler{taskRepo: taskRepo, jobQueue: jobQueue}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/status", h.UpdateTaskStatus).Methods("PATCH")
	r.HandleFunc("/{id}/position", h.UpdateTaskPosition).Methods("PATCH")
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title          string     `json:"title" validate:"required,min=1,max=500"`
	Description    *string    `json:"description,omitempty"`
	Priority       string     `json:"priority,omitempty"`
	Status         string     `json:"status,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	CategoryID     *uuid.UUID `json:"category_id,omitempty"`
	GoalID         *uuid.UUID `json:"goal_id,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
}

// UpdateTaskRequest represents a partial task update. Each field is
// tri-state: absent leaves the value unchanged, null clears it.
type UpdateTaskRequest struct {
	Title          models.Field[string]    `json:"title"`
	Description    models.Field[string]    `json:"description"`
	Priority       models.Field[string]    `json:"priority"`
	Status         models.Field[string]    `json:"status"`
	DueDate        models.Field[time.Time] `json:"due_date"`
	EstimatedHours models.Field[float64]   `json:"estimated_hours"`
	ActualHours    models.Field[float64]   `json:"actual_hours"`
	CategoryID     models.Field[uuid.UUID] `json:"category_id"`
	GoalID         models.Field[uuid.UUID] `json:"goal_id"`
	Tags           models.Field[[]string]  `json:"tags"`
}

// ListTasksResponse represents the paginated response for listing tasks
type ListTasksResponse struct {
	Tasks      []*models.Task `json:"tasks"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// ListTasks lists tasks for the authenticated user with filters and pagination
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	query := r.URL.Query()

	page := 1
	if p := query.Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	pageSize := DefaultPageSize
	if ps := query.Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			if parsed > MaxPageSize {
				pageSize = MaxPageSize
			} else {
				pageSize = parsed
			}
		}
	}

	var filter database.TaskFilter

	if s := query.Get("status"); s != "" {
		if err := validation.ValidateTaskStatus(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		status := models.TaskStatus(s)
		filter.Status = &status
	}

	if p := query.Get("priority"); p != "" {
		if err := validation.ValidateTaskPriority(p); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		priority := models.TaskPriority(p)
		filter.Priority = &priority
	}

	if c := query.Get("category_id"); c != "" {
		categoryID, err := uuid.Parse(c)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid category ID")
			return
		}
		filter.CategoryID = &categoryID
	}

	if g := query.Get("goal_id"); g != "" {
		goalID, err := uuid.Parse(g)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid goal ID")
			return
		}
		filter.GoalID = &goalID
	}

	if tag := query.Get("tag"); tag != "" {
		filter.Tag = &tag
	}

	if search := strings.TrimSpace(query.Get("search")); search != "" {
		filter.Search = &search
	}

	tasks, total, err := h.taskRepo.ListByUser(ctx, user.ID, filter, page, pageSize)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	respondJSON(w, http.StatusOK, ListTasksResponse{
		Tasks:      tasks,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}

	priority := models.TaskPriorityMedium
	if req.Priority != "" {
		if err := validation.ValidateTaskPriority(req.Priority); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		priority = models.TaskPriority(req.Priority)
	}

	status := models.TaskStatusTodo
	if req.Status != "" {
		if err := validation.ValidateTaskStatus(req.Status); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		status = models.TaskStatus(req.Status)
	}

	ctx := r.Context()
	task := &models.Task{
		ID:             uuid.New(),
		UserID:         user.ID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         status,
		Priority:       priority,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		CategoryID:     req.CategoryID,
		GoalID:         req.GoalID,
		Tags:           req.Tags,
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}

	if err := h.taskRepo.Create(ctx, task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	h.enqueueRescore(r, user.ID)
	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.loadOwnedTask(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateTask applies a partial update to a task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.loadOwnedTask(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if req.Title.Set {
		if !req.Title.Valid {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be null")
			return
		}
		sanitized := validation.SanitizeText(req.Title.Value)
		if sanitized == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty after sanitization")
			return
		}
		if len(sanitized) > MaxTitleLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Title exceeds maximum length of %d characters", MaxTitleLength))
			return
		}
		task.Title = sanitized
	}

	if req.Description.Set {
		task.Description = req.Description.Ptr()
	}

	if req.Priority.Set {
		if !req.Priority.Valid {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Priority cannot be null")
			return
		}
		if err := validation.ValidateTaskPriority(req.Priority.Value); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		task.Priority = models.TaskPriority(req.Priority.Value)
	}

	if req.Status.Set {
		if !req.Status.Valid {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Status cannot be null")
			return
		}
		if err := validation.ValidateTaskStatus(req.Status.Value); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		applyStatus(task, models.TaskStatus(req.Status.Value))
	}

	if req.DueDate.Set {
		task.DueDate = req.DueDate.Ptr()
	}
	if req.EstimatedHours.Set {
		task.EstimatedHours = req.EstimatedHours.Ptr()
	}
	if req.ActualHours.Set {
		task.ActualHours = req.ActualHours.Ptr()
	}
	if req.CategoryID.Set {
		task.CategoryID = req.CategoryID.Ptr()
	}
	if req.GoalID.Set {
		task.GoalID = req.GoalID.Ptr()
	}
	if req.Tags.Set {
		if req.Tags.Valid {
			task.Tags = req.Tags.Value
		} else {
			task.Tags = []string{}
		}
	}

	if err := h.taskRepo.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	h.enqueueRescore(r, user.ID)
	respondJSON(w, http.StatusOK, task)
}

// UpdateTaskStatusRequest represents a quick status change
type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,task_status"`
}

// UpdateTaskStatus changes only the task's status
func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.loadOwnedTask(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateTaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.ValidateTaskStatus(req.Status); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	applyStatus(task, models.TaskStatus(req.Status))

	if err := h.taskRepo.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task status")
		return
	}

	h.enqueueRescore(r, user.ID)
	respondJSON(w, http.StatusOK, task)
}

// UpdateTaskPositionRequest represents a reorder within a status column
type UpdateTaskPositionRequest struct {
	Position int `json:"position" validate:"min=0"`
}

// UpdateTaskPosition changes only the task's position
func (h *TaskHandler) UpdateTaskPosition(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.loadOwnedTask(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateTaskPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if req.Position < 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Position must be non-negative")
		return
	}

	task.Position = req.Position

	if err := h.taskRepo.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task position")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}

	if err := h.taskRepo.Delete(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadOwnedTask parses the path ID, loads the task, and enforces
// ownership, writing the error response itself on failure.
func (h *TaskHandler) loadOwnedTask(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Task, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return nil, false
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return nil, false
	}

	if task.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return nil, false
	}

	return task, true
}

// applyStatus sets the task status, keeping completed_at consistent:
// entering completed stamps it, leaving completed clears it.
func applyStatus(task *models.Task, status models.TaskStatus) {
	if status == models.TaskStatusCompleted && task.Status != models.TaskStatusCompleted {
		now := time.Now()
		task.CompletedAt = &now
	}
	if status != models.TaskStatusCompleted {
		task.CompletedAt = nil
	}
	task.Status = status
}

// enqueueRescore schedules a background rescore after a task mutation.
// Failures are logged, never surfaced to the client.
func (h *TaskHandler) enqueueRescore(r *http.Request, userID uuid.UUID) {
	if h.jobQueue == nil {
		return
	}
	job := queue.NewJob(queue.JobTypeRescoreUser, userID, nil)
	if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
		log.Printf("Failed to enqueue rescore job for user %s: %v", userID, err)
	}
}
