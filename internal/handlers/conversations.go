package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"database/sql"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/middleware"
	"github.com/mkammes/taskpilot/internal/models"
	"github.com/mkammes/taskpilot/internal/services/ai"
	"github.com/mkammes/taskpilot/internal/validation"
)

// ConversationHandler handles goal-planning conversations with the AI
// assistant
type ConversationHandler struct {
	conversationRepo database.ConversationRepositoryInterface
	contextRepo      database.UserContextRepositoryInterface
	provider         ai.Provider
	aiGate           AIGate
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(
	conversationRepo database.ConversationRepositoryInterface,
	contextRepo database.UserContextRepositoryInterface,
	provider ai.Provider,
	aiGate AIGate,
) *ConversationHandler {
	return &ConversationHandler{
		conversationRepo: conversationRepo,
		contextRepo:      contextRepo,
		provider:         provider,
		aiGate:           aiGate,
	}
}

// RegisterRoutes registers conversation routes on the given router
// The router should already have the /conversations prefix
func (h *ConversationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListConversations).Methods("GET")
	r.HandleFunc("", h.CreateConversation).Methods("POST")
	r.HandleFunc("/{id}", h.GetConversation).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateConversation).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteConversation).Methods("DELETE")
	r.HandleFunc("/{id}/messages", h.ListMessages).Methods("GET")
	r.HandleFunc("/{id}/messages", h.SendMessage).Methods("POST")
}

// CreateConversationRequest starts a new conversation
type CreateConversationRequest struct {
	Title string `json:"title" validate:"required,min=1,max=500"`
}

// UpdateConversationRequest renames or archives a conversation
type UpdateConversationRequest struct {
	Title  *string `json:"title,omitempty"`
	Status *string `json:"status,omitempty"`
}

// SendMessageRequest appends a user message and requests a reply
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=10000"`
}

// ListConversations lists the user's conversations, optionally filtered
// by status
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var status *models.ConversationStatus
	if s := r.URL.Query().Get("status"); s != "" {
		sEnum := models.ConversationStatus(s)
		switch sEnum {
		case models.ConversationStatusActive, models.ConversationStatusArchived, models.ConversationStatusCompleted:
			status = &sEnum
		default:
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid conversation status")
			return
		}
	}

	conversations, err := h.conversationRepo.ListByUser(r.Context(), user.ID, status)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve conversations")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

// CreateConversation starts a new conversation
func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}

	conversation := &models.Conversation{
		ID:       uuid.New(),
		UserID:   user.ID,
		Title:    req.Title,
		Status:   models.ConversationStatusActive,
		Metadata: models.Metadata{},
	}

	if err := h.conversationRepo.Create(r.Context(), conversation); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create conversation")
		return
	}

	respondJSON(w, http.StatusCreated, conversation)
}

// GetConversation retrieves a conversation by ID
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	conversation, ok := h.loadOwnedConversation(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, conversation)
}

// UpdateConversation renames a conversation or changes its status
func (h *ConversationHandler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	conversation, ok := h.loadOwnedConversation(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty after sanitization")
			return
		}
		conversation.Title = title
	}

	if req.Status != nil {
		status := models.ConversationStatus(*req.Status)
		switch status {
		case models.ConversationStatusActive, models.ConversationStatusArchived, models.ConversationStatusCompleted:
			conversation.Status = status
		default:
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid conversation status")
			return
		}
	}

	if err := h.conversationRepo.Update(r.Context(), conversation); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update conversation")
		return
	}

	respondJSON(w, http.StatusOK, conversation)
}

// DeleteConversation deletes a conversation and its messages
func (h *ConversationHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid conversation ID")
		return
	}

	if err := h.conversationRepo.Delete(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Conversation not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMessages lists a conversation's messages in chronological order
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	conversation, ok := h.loadOwnedConversation(w, r, user.ID)
	if !ok {
		return
	}

	messages, err := h.conversationRepo.ListMessages(r.Context(), conversation.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve messages")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// SendMessage appends the user's message and, when an AI provider is
// configured, the assistant's reply
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	conversation, ok := h.loadOwnedConversation(w, r, user.ID)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	req.Content = validation.SanitizeText(req.Content)
	if req.Content == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Content is required and cannot be empty after sanitization")
		return
	}

	ctx := aiContext(r, user.ID)

	userMessage := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		Role:           models.MessageRoleUser,
		Content:        req.Content,
		Metadata:       models.Metadata{},
	}
	if err := h.conversationRepo.AddMessage(ctx, userMessage); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to store message")
		return
	}

	if h.provider == nil {
		respondJSON(w, http.StatusCreated, map[string]any{"message": userMessage})
		return
	}

	if !h.consumeChatUse(w, r, user.ID) {
		return
	}

	history, err := h.conversationRepo.ListMessages(ctx, conversation.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load conversation history")
		return
	}

	chatHistory := make([]ai.ChatMessage, 0, len(history))
	for _, m := range history {
		chatHistory = append(chatHistory, ai.ChatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	userContext, err := h.contextRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		userContext = nil
	}

	reply, err := h.provider.Chat(ctx, chatHistory, userContext)
	if err != nil {
		respondAIError(w, err)
		return
	}

	assistantMessage := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		Role:           models.MessageRoleAssistant,
		Content:        reply.Message,
		Metadata:       models.Metadata{},
	}
	if reply.GoalReady {
		assistantMessage.Metadata["goal_ready"] = true
		assistantMessage.Metadata["suggested_goal"] = reply.SuggestedGoal
	}

	if err := h.conversationRepo.AddMessage(ctx, assistantMessage); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to store assistant reply")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":        userMessage,
		"reply":          assistantMessage,
		"goal_ready":     reply.GoalReady,
		"suggested_goal": reply.SuggestedGoal,
	})
}

// consumeChatUse applies the daily AI allowance to chat replies
func (h *ConversationHandler) consumeChatUse(w http.ResponseWriter, r *http.Request, userID uuid.UUID) bool {
	if h.aiGate == nil {
		return true
	}
	if err := h.aiGate.ConsumeAIUse(r.Context(), userID); err != nil {
		respondJSONError(w, http.StatusTooManyRequests, "Too Many Requests", "Daily AI usage limit reached; upgrade to Pro for unlimited AI features")
		return false
	}
	return true
}

// loadOwnedConversation parses the path ID, loads the conversation, and
// enforces ownership
func (h *ConversationHandler) loadOwnedConversation(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Conversation, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid conversation ID")
		return nil, false
	}

	conversation, err := h.conversationRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Conversation not found")
		return nil, false
	}

	if conversation.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Conversation does not belong to user")
		return nil, false
	}

	return conversation, true
}
