package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/models"
	"github.com/mkammes/taskpilot/internal/services/ai"
)

// mockConversationRepo is an in-memory ConversationRepositoryInterface
type mockConversationRepo struct {
	conversations map[uuid.UUID]*models.Conversation
	messages      map[uuid.UUID][]*models.Message
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{
		conversations: make(map[uuid.UUID]*models.Conversation),
		messages:      make(map[uuid.UUID][]*models.Message),
	}
}

func (m *mockConversationRepo) Create(ctx context.Context, conversation *models.Conversation) error {
	m.conversations[conversation.ID] = conversation
	return nil
}

func (m *mockConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conversation, ok := m.conversations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return conversation, nil
}

func (m *mockConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, status *models.ConversationStatus) ([]*models.Conversation, error) {
	var out []*models.Conversation
	for _, conversation := range m.conversations {
		if conversation.UserID != userID {
			continue
		}
		if status != nil && conversation.Status != *status {
			continue
		}
		out = append(out, conversation)
	}
	return out, nil
}

func (m *mockConversationRepo) Update(ctx context.Context, conversation *models.Conversation) error {
	m.conversations[conversation.ID] = conversation
	return nil
}

func (m *mockConversationRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	conversation, ok := m.conversations[id]
	if !ok || conversation.UserID != userID {
		return sql.ErrNoRows
	}
	delete(m.conversations, id)
	delete(m.messages, id)
	return nil
}

func (m *mockConversationRepo) AddMessage(ctx context.Context, message *models.Message) error {
	m.messages[message.ConversationID] = append(m.messages[message.ConversationID], message)
	return nil
}

func (m *mockConversationRepo) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error) {
	return m.messages[conversationID], nil
}

var _ database.ConversationRepositoryInterface = (*mockConversationRepo)(nil)

func newConversationRouter(repo *mockConversationRepo, provider ai.Provider, gate AIGate) *mux.Router {
	handler := NewConversationHandler(repo, &mockContextRepo{}, provider, gate)
	r := mux.NewRouter()
	handler.RegisterRoutes(r.PathPrefix("/api/v1/conversations").Subrouter())
	return r
}

func TestCreateConversation(t *testing.T) {
	t.Parallel()

	user := testUser()
	repo := newMockConversationRepo()
	router := newConversationRouter(repo, nil, nil)

	rec := doRequest(t, router, user, http.MethodPost, "/api/v1/conversations", map[string]any{
		"title": "Plan my career change",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var conversation models.Conversation
	decodeData(t, rec, &conversation)
	if conversation.Status != models.ConversationStatusActive {
		t.Errorf("expected status active, got %s", conversation.Status)
	}
	if len(repo.conversations) != 1 {
		t.Errorf("expected 1 stored conversation, got %d", len(repo.conversations))
	}
}

func TestListConversations_StatusFilter(t *testing.T) {
	t.Parallel()

	user := testUser()
	repo := newMockConversationRepo()
	active := &models.Conversation{ID: uuid.New(), UserID: user.ID, Title: "active", Status: models.ConversationStatusActive}
	archived := &models.Conversation{ID: uuid.New(), UserID: user.ID, Title: "archived", Status: models.ConversationStatusArchived}
	repo.conversations[active.ID] = active
	repo.conversations[archived.ID] = archived

	router := newConversationRouter(repo, nil, nil)

	rec := doRequest(t, router, user, http.MethodGet, "/api/v1/conversations?status=archived", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var data struct {
		Conversations []*models.Conversation `json:"conversations"`
	}
	decodeData(t, rec, &data)
	if len(data.Conversations) != 1 || data.Conversations[0].ID != archived.ID {
		t.Errorf("expected only the archived conversation, got %d", len(data.Conversations))
	}

	rec = doRequest(t, router, user, http.MethodGet, "/api/v1/conversations?status=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status expected 400, got %d", rec.Code)
	}
}

func TestSendMessage_ChatFlow(t *testing.T) {
	t.Parallel()

	user := testUser()

	t.Run("assistant reply persisted", func(t *testing.T) {
		t.Parallel()

		repo := newMockConversationRepo()
		conversation := &models.Conversation{ID: uuid.New(), UserID: user.ID, Title: "plan", Status: models.ConversationStatusActive}
		repo.conversations[conversation.ID] = conversation

		provider := &mockProvider{chatResp: &ai.ChatResponse{
			Message:       "How about aiming for a spring race?",
			GoalReady:     true,
			SuggestedGoal: "Run a half marathon by May",
		}}
		gate := &mockAIGate{}
		router := newConversationRouter(repo, provider, gate)

		rec := doRequest(t, router, user, http.MethodPost, "/api/v1/conversations/"+conversation.ID.String()+"/messages", map[string]any{
			"content": "I want to get into running",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		messages := repo.messages[conversation.ID]
		if len(messages) != 2 {
			t.Fatalf("expected user message plus reply, got %d messages", len(messages))
		}
		if messages[0].Role != models.MessageRoleUser {
			t.Errorf("expected first message from user, got %s", messages[0].Role)
		}
		if messages[1].Role != models.MessageRoleAssistant {
			t.Errorf("expected second message from assistant, got %s", messages[1].Role)
		}
		if ready, _ := messages[1].Metadata["goal_ready"].(bool); !ready {
			t.Error("expected goal_ready recorded on the assistant message")
		}
		if gate.consumed != 1 {
			t.Errorf("expected 1 AI use consumed, got %d", gate.consumed)
		}

		var data struct {
			GoalReady     bool   `json:"goal_ready"`
			SuggestedGoal string `json:"suggested_goal"`
		}
		decodeData(t, rec, &data)
		if !data.GoalReady || data.SuggestedGoal != "Run a half marathon by May" {
			t.Errorf("expected suggested goal surfaced, got %+v", data)
		}
	})

	t.Run("no provider still stores message", func(t *testing.T) {
		t.Parallel()

		repo := newMockConversationRepo()
		conversation := &models.Conversation{ID: uuid.New(), UserID: user.ID, Title: "plan", Status: models.ConversationStatusActive}
		repo.conversations[conversation.ID] = conversation

		router := newConversationRouter(repo, nil, nil)

		rec := doRequest(t, router, user, http.MethodPost, "/api/v1/conversations/"+conversation.ID.String()+"/messages", map[string]any{
			"content": "hello",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", rec.Code)
		}
		if len(repo.messages[conversation.ID]) != 1 {
			t.Errorf("expected 1 stored message, got %d", len(repo.messages[conversation.ID]))
		}
	})

	t.Run("other user's conversation", func(t *testing.T) {
		t.Parallel()

		repo := newMockConversationRepo()
		conversation := &models.Conversation{ID: uuid.New(), UserID: uuid.New(), Title: "theirs", Status: models.ConversationStatusActive}
		repo.conversations[conversation.ID] = conversation

		router := newConversationRouter(repo, nil, nil)

		rec := doRequest(t, router, user, http.MethodPost, "/api/v1/conversations/"+conversation.ID.String()+"/messages", map[string]any{
			"content": "hello",
		})
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected status 403, got %d", rec.Code)
		}
	})
}

func TestUpdateConversation(t *testing.T) {
	t.Parallel()

	user := testUser()
	repo := newMockConversationRepo()
	conversation := &models.Conversation{ID: uuid.New(), UserID: user.ID, Title: "plan", Status: models.ConversationStatusActive}
	repo.conversations[conversation.ID] = conversation

	router := newConversationRouter(repo, nil, nil)

	rec := doRequest(t, router, user, http.MethodPatch, "/api/v1/conversations/"+conversation.ID.String(), map[string]any{
		"status": "archived",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var updated models.Conversation
	decodeData(t, rec, &updated)
	if updated.Status != models.ConversationStatusArchived {
		t.Errorf("expected status archived, got %s", updated.Status)
	}
	if updated.Title != "plan" {
		t.Errorf("expected title unchanged, got %q", updated.Title)
	}

	rec = doRequest(t, router, user, http.MethodPatch, "/api/v1/conversations/"+conversation.ID.String(), map[string]any{
		"status": "bogus",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status expected 400, got %d", rec.Code)
	}
}

func TestDeleteConversation(t *testing.T) {
	t.Parallel()

	user := testUser()
	repo := newMockConversationRepo()
	conversation := &models.Conversation{ID: uuid.New(), UserID: user.ID, Title: "old", Status: models.ConversationStatusActive}
	repo.conversations[conversation.ID] = conversation
	repo.messages[conversation.ID] = []*models.Message{{ID: uuid.New(), ConversationID: conversation.ID, Role: models.MessageRoleUser, Content: "hi"}}

	router := newConversationRouter(repo, nil, nil)

	rec := doRequest(t, router, user, http.MethodDelete, "/api/v1/conversations/"+conversation.ID.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if len(repo.conversations) != 0 || len(repo.messages[conversation.ID]) != 0 {
		t.Error("expected conversation and messages removed")
	}
}
