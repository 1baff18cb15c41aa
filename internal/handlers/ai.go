package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mkammes/taskpilot/internal/middleware"
	"github.com/mkammes/taskpilot/internal/services/goals"
	"github.com/mkammes/taskpilot/internal/services/insights"
)

// AIHandler handles the pro-gated AI analysis endpoints: goal breakdown
// and productivity insights.
type AIHandler struct {
	goalService *goals.Service
	insights    *insights.Service
}

// NewAIHandler creates a new AI handler
func NewAIHandler(goalService *goals.Service, insightsService *insights.Service) *AIHandler {
	return &AIHandler{goalService: goalService, insights: insightsService}
}

// RegisterRoutes registers AI analysis routes on the given router.
// The router should already have the /ai prefix and the pro gate applied.
func (h *AIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/break-down-goal", h.BreakDownGoal).Methods("POST")
	r.HandleFunc("/insights", h.Insights).Methods("GET")
}

// BreakDownGoalRequest names the goal to decompose
type BreakDownGoalRequest struct {
	GoalID uuid.UUID `json:"goal_id" validate:"required"`
}

// BreakDownGoal generates and persists an AI milestone breakdown
func (h *AIHandler) BreakDownGoal(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req BreakDownGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if req.GoalID == uuid.Nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "goal_id is required")
		return
	}

	breakdown, err := h.goalService.GenerateBreakdown(r.Context(), user.ID, req.GoalID)
	if err != nil {
		if errors.Is(err, goals.ErrNoProvider) {
			respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "AI features are not configured")
			return
		}
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to generate goal breakdown")
		return
	}

	respondJSON(w, http.StatusOK, breakdown)
}

// Insights returns the productivity report for the requested period
func (h *AIHandler) Insights(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	periodDays := 0 // service applies its default
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid days parameter")
			return
		}
		periodDays = parsed
	}

	report, err := h.insights.Report(r.Context(), user.ID, periodDays)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to compute insights")
		return
	}

	respondJSON(w, http.StatusOK, report)
}
