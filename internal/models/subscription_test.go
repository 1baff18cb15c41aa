package models

import "testing"

func TestSubscription_IsPro(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sub  *Subscription
		pro  bool
	}{
		{"nil subscription", nil, false},
		{"active pro", &Subscription{PlanName: SubscriptionPlanPro, Status: SubscriptionStatusActive}, true},
		{"active enterprise", &Subscription{PlanName: SubscriptionPlanEnterprise, Status: SubscriptionStatusActive}, true},
		{"cancelled pro", &Subscription{PlanName: SubscriptionPlanPro, Status: SubscriptionStatusCancelled}, false},
		{"active free", &Subscription{PlanName: SubscriptionPlanFree, Status: SubscriptionStatusActive}, false},
		{"trialing pro is not pro", &Subscription{PlanName: SubscriptionPlanPro, Status: SubscriptionStatusTrialing}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.sub.IsPro(); got != tt.pro {
				t.Errorf("IsPro() = %v, expected %v", got, tt.pro)
			}
		})
	}
}

func TestSubscription_IsActive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sub    *Subscription
		active bool
	}{
		{"nil subscription", nil, false},
		{"active", &Subscription{Status: SubscriptionStatusActive}, true},
		{"trialing", &Subscription{Status: SubscriptionStatusTrialing}, true},
		{"cancelled", &Subscription{Status: SubscriptionStatusCancelled}, false},
		{"past due", &Subscription{Status: SubscriptionStatusPastDue}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.sub.IsActive(); got != tt.active {
				t.Errorf("IsActive() = %v, expected %v", got, tt.active)
			}
		})
	}
}
