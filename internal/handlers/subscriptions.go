package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/middleware"
	"github.com/mkammes/taskpilot/internal/models"
	"github.com/mkammes/taskpilot/internal/services/subscription"
)

// SubscriptionHandler exposes the user's plan and AI allowance status.
// Plans are administered out of band via the configure CLI.
type SubscriptionHandler struct {
	subRepo database.SubscriptionRepositoryInterface
	subs    *subscription.Service
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subRepo database.SubscriptionRepositoryInterface, subs *subscription.Service) *SubscriptionHandler {
	return &SubscriptionHandler{subRepo: subRepo, subs: subs}
}

// RegisterRoutes registers subscription routes on the given router
// The router should already have the /subscription prefix
func (h *SubscriptionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetSubscription).Methods("GET")
	r.HandleFunc("/ai-limit", h.GetAILimit).Methods("GET")
}

// GetSubscription returns the user's current plan and subscription
// record, if any
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	plan, err := h.subs.Plan(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to resolve plan")
		return
	}

	sub, err := h.subRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve subscription")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"plan":         plan,
		"is_pro":       plan == models.SubscriptionPlanPro,
		"subscription": sub,
	})
}

// GetAILimit reports the user's remaining daily AI allowance without
// consuming any of it
func (h *SubscriptionHandler) GetAILimit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	status, err := h.subs.CheckAILimit(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to check AI limit")
		return
	}

	respondJSON(w, http.StatusOK, status)
}
