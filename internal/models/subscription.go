package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors the billing provider's subscription state
type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusCancelled  SubscriptionStatus = "cancelled"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
)

// SubscriptionPlan is the plan tier a user is on
type SubscriptionPlan string

const (
	SubscriptionPlanFree       SubscriptionPlan = "free"
	SubscriptionPlanPro        SubscriptionPlan = "pro"
	SubscriptionPlanEnterprise SubscriptionPlan = "enterprise"
)

// Subscription records a user's plan as reported by the billing provider
type Subscription struct {
	ID             uuid.UUID          `json:"id"`
	UserID         uuid.UUID          `json:"user_id"`
	PlanName       SubscriptionPlan   `json:"plan_name"`
	Status         SubscriptionStatus `json:"status"`
	SubscriptionID *string            `json:"subscription_id,omitempty"` // External billing identifier
	StartedAt      time.Time          `json:"started_at"`
	EndsAt         *time.Time         `json:"ends_at,omitempty"`
	CancelledAt    *time.Time         `json:"cancelled_at,omitempty"`
	Metadata       Metadata           `json:"metadata,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// IsPro reports whether the subscription grants Pro-tier features.
func (s *Subscription) IsPro() bool {
	if s == nil {
		return false
	}
	return (s.PlanName == SubscriptionPlanPro || s.PlanName == SubscriptionPlanEnterprise) &&
		s.Status == SubscriptionStatusActive
}

// IsActive reports whether the subscription is in a usable state.
func (s *Subscription) IsActive() bool {
	if s == nil {
		return false
	}
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusTrialing
}
