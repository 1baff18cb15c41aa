package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/middleware"
	"github.com/mkammes/taskpilot/internal/models"
	"github.com/mkammes/taskpilot/internal/services/goals"
	"github.com/mkammes/taskpilot/internal/validation"
)

// DueSoonWindowDays bounds the due-soon goal listing.
const DueSoonWindowDays = 14

// GoalHandler handles goal-related requests
type GoalHandler struct {
	goalRepo    database.GoalRepositoryInterface
	goalService *goals.Service
}

// NewGoalHandler creates a new goal handler
func NewGoalHandler(goalRepo database.GoalRepositoryInterface, goalService *goals.Service) *GoalHandler {
	return &GoalHandler{goalRepo: goalRepo, goalService: goalService}
}

// RegisterRoutes registers goal routes on the given router
// The router should already have the /goals prefix
func (h *GoalHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListGoals).Methods("GET")
	r.HandleFunc("", h.CreateGoal).Methods("POST")
	r.HandleFunc("/statistics", h.Statistics).Methods("GET")
	r.HandleFunc("/due-soon", h.DueSoon).Methods("GET")
	r.HandleFunc("/reorder", h.Reorder).Methods("POST")
	r.HandleFunc("/{id}", h.GetGoal).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateGoal).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteGoal).Methods("DELETE")
	r.HandleFunc("/{id}/progress", h.RecomputeProgress).Methods("POST")
}

// CreateGoalRequest represents a create goal request
type CreateGoalRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=500"`
	Description *string    `json:"description,omitempty"`
	Specific    *string    `json:"specific,omitempty"`
	Measurable  *string    `json:"measurable,omitempty"`
	Achievable  *string    `json:"achievable,omitempty"`
	Relevant    *string    `json:"relevant,omitempty"`
	TimeBound   *time.Time `json:"time_bound,omitempty"`
	Status      string     `json:"status,omitempty"`
	GoalType    string     `json:"goal_type,omitempty"`
}

// UpdateGoalRequest represents a partial goal update with tri-state fields
type UpdateGoalRequest struct {
	Title       models.Field[string]    `json:"title"`
	Description models.Field[string]    `json:"description"`
	Specific    models.Field[string]    `json:"specific"`
	Measurable  models.Field[string]    `json:"measurable"`
	Achievable  models.Field[string]    `json:"achievable"`
	Relevant    models.Field[string]    `json:"relevant"`
	TimeBound   models.Field[time.Time] `json:"time_bound"`
	Status      models.Field[string]    `json:"status"`
	GoalType    models.Field[string]    `json:"goal_type"`
}

// ListGoals lists the user's goals, optionally filtered by status
func (h *GoalHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var status *models.GoalStatus
	if s := r.URL.Query().Get("status"); s != "" {
		if err := validation.ValidateGoalStatus(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		sEnum := models.GoalStatus(s)
		status = &sEnum
	}

	goalList, err := h.goalRepo.ListByUser(r.Context(), user.ID, status)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve goals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"goals": goalList})
}

// CreateGoal creates a new goal
func (h *GoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
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

	status := models.GoalStatusPlanning
	if req.Status != "" {
		if err := validation.ValidateGoalStatus(req.Status); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		status = models.GoalStatus(req.Status)
	}

	goalType := models.GoalTypeOther
	if req.GoalType != "" {
		if err := validation.ValidateGoalType(req.GoalType); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		goalType = models.GoalType(req.GoalType)
	}

	goal := &models.Goal{
		ID:          uuid.New(),
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		Specific:    req.Specific,
		Measurable:  req.Measurable,
		Achievable:  req.Achievable,
		Relevant:    req.Relevant,
		TimeBound:   req.TimeBound,
		Status:      status,
		GoalType:    goalType,
	}

	if err := h.goalRepo.Create(r.Context(), goal); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create goal")
		return
	}

	respondJSON(w, http.StatusCreated, goal)
}

// GetGoal retrieves a goal by ID
func (h *GoalHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	goal, ok := h.loadOwnedGoal(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, goal)
}

// UpdateGoal applies a partial update to a goal
func (h *GoalHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	goal, ok := h.loadOwnedGoal(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
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
		goal.Title = sanitized
	}

	if req.Description.Set {
		goal.Description = req.Description.Ptr()
	}
	if req.Specific.Set {
		goal.Specific = req.Specific.Ptr()
	}
	if req.Measurable.Set {
		goal.Measurable = req.Measurable.Ptr()
	}
	if req.Achievable.Set {
		goal.Achievable = req.Achievable.Ptr()
	}
	if req.Relevant.Set {
		goal.Relevant = req.Relevant.Ptr()
	}
	if req.TimeBound.Set {
		goal.TimeBound = req.TimeBound.Ptr()
	}

	if req.Status.Set {
		if !req.Status.Valid {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Status cannot be null")
			return
		}
		if err := validation.ValidateGoalStatus(req.Status.Value); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		goal.Status = models.GoalStatus(req.Status.Value)
	}

	if req.GoalType.Set {
		if !req.GoalType.Valid {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Goal type cannot be null")
			return
		}
		if err := validation.ValidateGoalType(req.GoalType.Value); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		goal.GoalType = models.GoalType(req.GoalType.Value)
	}

	if err := h.goalRepo.Update(r.Context(), goal); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update goal")
		return
	}

	respondJSON(w, http.StatusOK, goal)
}

// DeleteGoal deletes a goal
func (h *GoalHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid goal ID")
		return
	}

	if err := h.goalRepo.Delete(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Goal not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete goal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RecomputeProgress recalculates progress from the goal's linked tasks
func (h *GoalHandler) RecomputeProgress(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid goal ID")
		return
	}

	goal, err := h.goalService.RecomputeProgress(r.Context(), user.ID, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Goal not found")
		return
	}

	respondJSON(w, http.StatusOK, goal)
}

// Statistics summarizes the user's goals
func (h *GoalHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	stats, err := h.goalRepo.Statistics(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to compute statistics")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// DueSoon lists non-completed goals whose time_bound falls within the
// next two weeks
func (h *GoalHandler) DueSoon(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	goalList, err := h.goalRepo.ListByUser(r.Context(), user.ID, nil)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve goals")
		return
	}

	now := time.Now()
	cutoff := now.AddDate(0, 0, DueSoonWindowDays)

	dueSoon := make([]*models.Goal, 0)
	for _, goal := range goalList {
		if goal.TimeBound == nil {
			continue
		}
		if goal.Status == models.GoalStatusCompleted || goal.Status == models.GoalStatusAbandoned {
			continue
		}
		if goal.TimeBound.Before(cutoff) {
			dueSoon = append(dueSoon, goal)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"goals": dueSoon})
}

// ReorderGoalsRequest carries the full ordered list of goal IDs
type ReorderGoalsRequest struct {
	GoalIDs []uuid.UUID `json:"goal_ids" validate:"required,min=1"`
}

// Reorder persists a new goal ordering
func (h *GoalHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req ReorderGoalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if len(req.GoalIDs) == 0 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "goal_ids is required")
		return
	}

	if err := h.goalRepo.Reorder(r.Context(), user.ID, req.GoalIDs); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to reorder goals")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadOwnedGoal parses the path ID, loads the goal, and enforces ownership
func (h *GoalHandler) loadOwnedGoal(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Goal, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid goal ID")
		return nil, false
	}

	goal, err := h.goalRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Goal not found")
		return nil, false
	}

	if goal.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Goal does not belong to user")
		return nil, false
	}

	return goal, true
}
