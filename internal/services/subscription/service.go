// Package subscription resolves a user's plan tier and enforces the
// free-tier daily allowance for AI-assisted operations.
package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/models"
)

// FreeDailyAILimit is how many AI-assisted operations a free-plan user
// gets per calendar day.
const FreeDailyAILimit = 3

// ErrAILimitExceeded is returned when a free-plan user has used up
// today's AI allowance.
var ErrAILimitExceeded = errors.New("daily AI usage limit exceeded")

// UsageCounter tracks per-user daily AI usage. Counts reset at the day
// boundary.
type UsageCounter interface {
	// IncrAIUsage increments today's count and returns the new value.
	IncrAIUsage(ctx context.Context, userID uuid.UUID) (int64, error)
	// AIUsage returns today's count without incrementing.
	AIUsage(ctx context.Context, userID uuid.UUID) (int64, error)
}

// AILimitStatus reports a user's standing against the AI allowance.
// Limit and Remaining are -1 for unlimited plans.
type AILimitStatus struct {
	Allowed   bool                    `json:"allowed"`
	Remaining int64                   `json:"remaining"`
	Limit     int64                   `json:"limit"`
	Plan      models.SubscriptionPlan `json:"plan"`
}

// Service answers plan and allowance questions for the rest of the API.
type Service struct {
	subs   database.SubscriptionRepositoryInterface
	usage  UsageCounter
	logger *zap.Logger
}

// NewService creates a subscription service.
func NewService(subs database.SubscriptionRepositoryInterface, usage UsageCounter, logger *zap.Logger) *Service {
	return &Service{
		subs:   subs,
		usage:  usage,
		logger: logger,
	}
}

// Plan returns the user's current plan, defaulting to free when no
// active subscription exists.
func (s *Service) Plan(ctx context.Context, userID uuid.UUID) (models.SubscriptionPlan, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve plan: %w", err)
	}
	if sub == nil || !sub.IsActive() {
		return models.SubscriptionPlanFree, nil
	}
	return sub.PlanName, nil
}

// IsPro reports whether the user has an active Pro-tier subscription.
func (s *Service) IsPro(ctx context.Context, userID uuid.UUID) (bool, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve plan: %w", err)
	}
	return sub.IsPro(), nil
}

// CheckAILimit reports the user's standing against the daily AI
// allowance without consuming any of it.
func (s *Service) CheckAILimit(ctx context.Context, userID uuid.UUID) (*AILimitStatus, error) {
	pro, err := s.IsPro(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pro {
		return &AILimitStatus{Allowed: true, Remaining: -1, Limit: -1, Plan: models.SubscriptionPlanPro}, nil
	}

	used, err := s.usage.AIUsage(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read AI usage: %w", err)
	}

	remaining := int64(FreeDailyAILimit) - used
	if remaining < 0 {
		remaining = 0
	}

	return &AILimitStatus{
		Allowed:   remaining > 0,
		Remaining: remaining,
		Limit:     FreeDailyAILimit,
		Plan:      models.SubscriptionPlanFree,
	}, nil
}

// ConsumeAIUse spends one unit of the daily AI allowance, returning
// ErrAILimitExceeded once a free-plan user runs out. Pro users are never
// limited and never counted.
func (s *Service) ConsumeAIUse(ctx context.Context, userID uuid.UUID) error {
	pro, err := s.IsPro(ctx, userID)
	if err != nil {
		return err
	}
	if pro {
		return nil
	}

	used, err := s.usage.IncrAIUsage(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to record AI usage: %w", err)
	}
	if used > FreeDailyAILimit {
		s.logger.Info("ai_limit_exceeded",
			zap.String("user_id", userID.String()),
			zap.Int64("used", used))
		return ErrAILimitExceeded
	}

	return nil
}
