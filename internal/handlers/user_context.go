package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/middleware"
	"github.com/mkammes/taskpilot/internal/models"
	"github.com/mkammes/taskpilot/internal/validation"
)

// UserContextHandler manages the personalization context the AI
// features feed into their prompts
type UserContextHandler struct {
	contextRepo database.UserContextRepositoryInterface
}

// NewUserContextHandler creates a new user context handler
func NewUserContextHandler(contextRepo database.UserContextRepositoryInterface) *UserContextHandler {
	return &UserContextHandler{contextRepo: contextRepo}
}

// RegisterRoutes registers user context routes on the given router
// The router should already have the /user-context prefix
func (h *UserContextHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetUserContext).Methods("GET")
	r.HandleFunc("", h.UpsertUserContext).Methods("PUT")
}

// UserContextRequest replaces the user's personalization context
type UserContextRequest struct {
	WorkDescription *string  `json:"work_description,omitempty"`
	ShortTermFocus  []string `json:"short_term_focus,omitempty"`
	LongTermGoals   []string `json:"long_term_goals,omitempty"`
	OtherContext    []string `json:"other_context,omitempty"`
}

// GetUserContext returns the user's context, or an empty one when none
// has been saved yet
func (h *UserContextHandler) GetUserContext(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	uc, err := h.contextRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve user context")
		return
	}
	if uc == nil {
		uc = &models.UserContext{
			UserID:         user.ID,
			ShortTermFocus: []string{},
			LongTermGoals:  []string{},
			OtherContext:   []string{},
		}
	}

	respondJSON(w, http.StatusOK, uc)
}

// UpsertUserContext replaces the user's context wholesale
func (h *UserContextHandler) UpsertUserContext(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req UserContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if req.WorkDescription != nil {
		sanitized := validation.SanitizeText(*req.WorkDescription)
		req.WorkDescription = &sanitized
	}
	req.ShortTermFocus = sanitizeList(req.ShortTermFocus)
	req.LongTermGoals = sanitizeList(req.LongTermGoals)
	req.OtherContext = sanitizeList(req.OtherContext)

	uc := &models.UserContext{
		ID:              uuid.New(),
		UserID:          user.ID,
		WorkDescription: req.WorkDescription,
		ShortTermFocus:  req.ShortTermFocus,
		LongTermGoals:   req.LongTermGoals,
		OtherContext:    req.OtherContext,
	}

	if err := h.contextRepo.Upsert(r.Context(), uc); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save user context")
		return
	}

	respondJSON(w, http.StatusOK, uc)
}

// sanitizeList sanitizes each entry and drops any that come back empty
func sanitizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := validation.SanitizeText(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
