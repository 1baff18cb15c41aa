package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/middleware"
	"github.com/mkammes/taskpilot/internal/models"
	"github.com/mkammes/taskpilot/internal/validation"
)

// CategoryHandler handles category and tag requests
type CategoryHandler struct {
	categoryRepo database.CategoryRepositoryInterface
	tagRepo      database.TagRepositoryInterface
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryRepo database.CategoryRepositoryInterface, tagRepo database.TagRepositoryInterface) *CategoryHandler {
	return &CategoryHandler{categoryRepo: categoryRepo, tagRepo: tagRepo}
}

// RegisterCategoryRoutes registers category routes on the given router
// The router should already have the /categories prefix
func (h *CategoryHandler) RegisterCategoryRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListCategories).Methods("GET")
	r.HandleFunc("", h.CreateCategory).Methods("POST")
	r.HandleFunc("/{id}", h.UpdateCategory).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteCategory).Methods("DELETE")
}

// RegisterTagRoutes registers tag routes on the given router
// The router should already have the /tags prefix
func (h *CategoryHandler) RegisterTagRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTags).Methods("GET")
	r.HandleFunc("", h.CreateTag).Methods("POST")
	r.HandleFunc("/{id}", h.DeleteTag).Methods("DELETE")
}

// CategoryRequest is shared by create and update
type CategoryRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Color       *string `json:"color,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Description *string `json:"description,omitempty"`
	Position    *int    `json:"position,omitempty"`
}

// ListCategories lists the user's categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	categories, err := h.categoryRepo.ListByUser(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve categories")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// CreateCategory creates a new category
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CategoryRequest
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

	req.Name = validation.SanitizeText(req.Name)
	if req.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}

	category := &models.Category{
		ID:          uuid.New(),
		UserID:      user.ID,
		Name:        req.Name,
		Color:       req.Color,
		Icon:        req.Icon,
		Description: req.Description,
	}
	if req.Position != nil {
		category.Position = *req.Position
	}

	if err := h.categoryRepo.Create(r.Context(), category); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create category")
		return
	}

	respondJSON(w, http.StatusCreated, category)
}

// UpdateCategory updates an existing category
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid category ID")
		return
	}

	ctx := r.Context()
	category, err := h.categoryRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Category not found")
		return
	}
	if category.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Category does not belong to user")
		return
	}

	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if req.Name != "" {
		sanitized := validation.SanitizeText(req.Name)
		if sanitized == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty after sanitization")
			return
		}
		category.Name = sanitized
	}
	if req.Color != nil {
		category.Color = req.Color
	}
	if req.Icon != nil {
		category.Icon = req.Icon
	}
	if req.Description != nil {
		category.Description = req.Description
	}
	if req.Position != nil {
		category.Position = *req.Position
	}

	if err := h.categoryRepo.Update(ctx, category); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update category")
		return
	}

	respondJSON(w, http.StatusOK, category)
}

// DeleteCategory deletes a category; task references are nulled by the
// schema's ON DELETE SET NULL
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid category ID")
		return
	}

	if err := h.categoryRepo.Delete(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Category not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TagRequest creates or recolors a tag
type TagRequest struct {
	Name  string  `json:"name" validate:"required,min=1,max=100"`
	Color *string `json:"color,omitempty"`
}

// ListTags lists the user's tags
func (h *CategoryHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	tags, err := h.tagRepo.ListByUser(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tags")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// CreateTag creates a tag, or recolors it if the name already exists
func (h *CategoryHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	req.Name = validation.SanitizeText(req.Name)
	if req.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}

	tag := &models.Tag{
		ID:     uuid.New(),
		UserID: user.ID,
		Name:   req.Name,
		Color:  req.Color,
	}

	if err := h.tagRepo.Upsert(r.Context(), tag); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create tag")
		return
	}

	respondJSON(w, http.StatusCreated, tag)
}

// DeleteTag deletes a tag
func (h *CategoryHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid tag ID")
		return
	}

	if err := h.tagRepo.Delete(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Tag not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete tag")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
