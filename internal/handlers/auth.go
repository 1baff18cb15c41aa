package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mkammes/taskpilot/internal/middleware"
	"github.com/mkammes/taskpilot/internal/services/oidc"
)

// AuthHandler exposes the login configuration and the current-user
// endpoint. Token verification itself happens in the auth middleware.
type AuthHandler struct {
	oidcProvider *oidc.Provider
}

func NewAuthHandler(oidcProvider *oidc.Provider) *AuthHandler {
	return &AuthHandler{oidcProvider: oidcProvider}
}

// RegisterRoutes mounts the auth routes. The router is expected to
// carry the /api/v1/auth prefix already.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/oidc/login", h.GetOIDCLogin).Methods("GET")
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// GetOIDCLogin hands the frontend what it needs to start a login:
// issuer, client ID, and redirect URI for the default provider.
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	loginConfig, err := h.oidcProvider.GetLoginConfig(r.Context(), oidc.DefaultProviderName)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Failed to get OIDC configuration", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, loginConfig)
}

// GetMe returns the authenticated user's profile.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
