package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mkammes/taskpilot/internal/models"
)

// TaskRepositoryInterface defines the interface for task repository operations
// This interface enables better testability by allowing mock implementations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter TaskFilter, page, pageSize int) ([]*models.Task, int, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	ListCreatedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.Task, error)
	ListByGoal(ctx context.Context, userID, goalID uuid.UUID) ([]*models.Task, error)
	ListUserIDsWithActiveTasks(ctx context.Context) ([]uuid.UUID, error)
	Update(ctx context.Context, task *models.Task) error
	UpdateScoring(ctx context.Context, taskID uuid.UUID, score int, suggestions models.Suggestions) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// GoalRepositoryInterface defines the interface for goal repository operations
type GoalRepositoryInterface interface {
	Create(ctx context.Context, goal *models.Goal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Goal, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status *models.GoalStatus) ([]*models.Goal, error)
	Update(ctx context.Context, goal *models.Goal) error
	UpdateProgress(ctx context.Context, goalID uuid.UUID, progress float64) error
	SaveBreakdown(ctx context.Context, goalID uuid.UUID, breakdown *models.GoalBreakdown) error
	Reorder(ctx context.Context, userID uuid.UUID, orderedIDs []uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	Statistics(ctx context.Context, userID uuid.UUID) (*models.GoalStatistics, error)
}

// CategoryRepositoryInterface defines the interface for category repository operations
type CategoryRepositoryInterface interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// TagRepositoryInterface defines the interface for tag repository operations
type TagRepositoryInterface interface {
	Upsert(ctx context.Context, tag *models.Tag) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Tag, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// ConversationRepositoryInterface defines the interface for conversation repository operations
type ConversationRepositoryInterface interface {
	Create(ctx context.Context, conversation *models.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status *models.ConversationStatus) ([]*models.Conversation, error)
	Update(ctx context.Context, conversation *models.Conversation) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	AddMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error)
}

// SubscriptionRepositoryInterface defines the interface for subscription repository operations
type SubscriptionRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	Upsert(ctx context.Context, subscription *models.Subscription) error
	Cancel(ctx context.Context, userID uuid.UUID, cancelledAt time.Time) error
}

// UserContextRepositoryInterface defines the interface for user context repository operations
type UserContextRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserContext, error)
	Upsert(ctx context.Context, uc *models.UserContext) error
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	SyncFromClaims(ctx context.Context, claims *models.JWTClaims) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface         = (*TaskRepository)(nil)
	_ GoalRepositoryInterface         = (*GoalRepository)(nil)
	_ CategoryRepositoryInterface     = (*CategoryRepository)(nil)
	_ TagRepositoryInterface          = (*TagRepository)(nil)
	_ ConversationRepositoryInterface = (*ConversationRepository)(nil)
	_ SubscriptionRepositoryInterface = (*SubscriptionRepository)(nil)
	_ UserContextRepositoryInterface  = (*UserContextRepository)(nil)
	_ UserRepositoryInterface         = (*UserRepository)(nil)
)
