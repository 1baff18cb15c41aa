package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/models"
)

type mockSubscriptionRepo struct {
	sub *models.Subscription
	err error
}

func (m *mockSubscriptionRepo) GetByUserID(_ context.Context, _ uuid.UUID) (*models.Subscription, error) {
	return m.sub, m.err
}

func (m *mockSubscriptionRepo) Upsert(_ context.Context, _ *models.Subscription) error { return nil }

func (m *mockSubscriptionRepo) Cancel(_ context.Context, _ uuid.UUID, _ time.Time) error { return nil }

type mockUsageCounter struct {
	count int64
	err   error
}

func (m *mockUsageCounter) IncrAIUsage(_ context.Context, _ uuid.UUID) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.count++
	return m.count, nil
}

func (m *mockUsageCounter) AIUsage(_ context.Context, _ uuid.UUID) (int64, error) {
	return m.count, m.err
}

func proSub() *models.Subscription {
	return &models.Subscription{
		PlanName: models.SubscriptionPlanPro,
		Status:   models.SubscriptionStatusActive,
	}
}

func TestService_Plan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sub  *models.Subscription
		want models.SubscriptionPlan
	}{
		{"no subscription defaults to free", nil, models.SubscriptionPlanFree},
		{"active pro", proSub(), models.SubscriptionPlanPro},
		{
			"cancelled pro falls back to free",
			&models.Subscription{PlanName: models.SubscriptionPlanPro, Status: models.SubscriptionStatusCancelled},
			models.SubscriptionPlanFree,
		},
		{
			"trialing keeps its plan",
			&models.Subscription{PlanName: models.SubscriptionPlanPro, Status: models.SubscriptionStatusTrialing},
			models.SubscriptionPlanPro,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewService(&mockSubscriptionRepo{sub: tt.sub}, &mockUsageCounter{}, zap.NewNop())
			got, err := svc.Plan(context.Background(), uuid.New())
			if err != nil {
				t.Fatalf("Plan failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Plan() = %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestService_CheckAILimit_Pro(t *testing.T) {
	t.Parallel()

	svc := NewService(&mockSubscriptionRepo{sub: proSub()}, &mockUsageCounter{count: 100}, zap.NewNop())
	status, err := svc.CheckAILimit(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("CheckAILimit failed: %v", err)
	}
	if !status.Allowed || status.Remaining != -1 || status.Limit != -1 {
		t.Errorf("expected unlimited pro status, got %+v", status)
	}
}

func TestService_CheckAILimit_Free(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		used          int64
		wantAllowed   bool
		wantRemaining int64
	}{
		{"fresh day", 0, true, 3},
		{"one left", 2, true, 1},
		{"exhausted", 3, false, 0},
		{"over the line", 5, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewService(&mockSubscriptionRepo{}, &mockUsageCounter{count: tt.used}, zap.NewNop())
			status, err := svc.CheckAILimit(context.Background(), uuid.New())
			if err != nil {
				t.Fatalf("CheckAILimit failed: %v", err)
			}
			if status.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, expected %v", status.Allowed, tt.wantAllowed)
			}
			if status.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, expected %d", status.Remaining, tt.wantRemaining)
			}
			if status.Limit != FreeDailyAILimit {
				t.Errorf("Limit = %d, expected %d", status.Limit, FreeDailyAILimit)
			}
		})
	}
}

func TestService_ConsumeAIUse(t *testing.T) {
	t.Parallel()

	t.Run("free user within limit", func(t *testing.T) {
		t.Parallel()
		counter := &mockUsageCounter{}
		svc := NewService(&mockSubscriptionRepo{}, counter, zap.NewNop())

		for i := 0; i < FreeDailyAILimit; i++ {
			if err := svc.ConsumeAIUse(context.Background(), uuid.New()); err != nil {
				t.Fatalf("use %d failed: %v", i+1, err)
			}
		}
		if err := svc.ConsumeAIUse(context.Background(), uuid.New()); !errors.Is(err, ErrAILimitExceeded) {
			t.Errorf("expected ErrAILimitExceeded after limit, got %v", err)
		}
	})

	t.Run("pro user never counted", func(t *testing.T) {
		t.Parallel()
		counter := &mockUsageCounter{}
		svc := NewService(&mockSubscriptionRepo{sub: proSub()}, counter, zap.NewNop())

		for i := 0; i < 20; i++ {
			if err := svc.ConsumeAIUse(context.Background(), uuid.New()); err != nil {
				t.Fatalf("pro use failed: %v", err)
			}
		}
		if counter.count != 0 {
			t.Errorf("pro usage was counted: %d", counter.count)
		}
	})

	t.Run("counter error surfaces", func(t *testing.T) {
		t.Parallel()
		svc := NewService(&mockSubscriptionRepo{}, &mockUsageCounter{err: errors.New("redis down")}, zap.NewNop())
		if err := svc.ConsumeAIUse(context.Background(), uuid.New()); err == nil {
			t.Fatal("expected error when counter fails")
		}
	})
}
