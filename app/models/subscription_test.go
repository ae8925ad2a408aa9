package models

import "testing"

func TestSubscriptionIsTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{status: SubscriptionStatusDraft, want: false},
		{status: SubscriptionStatusPendingApproval, want: false},
		{status: SubscriptionStatusActive, want: false},
		{status: SubscriptionStatusSuspended, want: false},
		{status: SubscriptionStatusExpired, want: true},
		{status: SubscriptionStatusWithdrawn, want: true},
		{status: SubscriptionStatusRejected, want: true},
	}

	for _, tt := range tests {
		sub := &Subscription{Status: tt.status}
		if got := sub.IsTerminal(); got != tt.want {
			t.Fatalf("IsTerminal() for %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}
