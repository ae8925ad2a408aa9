package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartinKoehl/OfficeBase/app/models"
)

func newSub(status string) *models.Subscription {
	return &models.Subscription{ID: 42, UserID: 7, Status: status}
}

func activeSubEnding(end time.Time) *models.Subscription {
	sub := newSub(models.SubscriptionStatusActive)
	start := end.AddDate(-1, 0, 0)
	sub.StartDate = &start
	sub.EndDate = &end
	sub.NextPaymentDate = &end
	return sub
}

func TestApplyPaymentSucceededFromDraft(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	sub := newSub(models.SubscriptionStatusDraft)

	out, err := Apply(sub, PaymentSucceeded{
		AmountMinorUnits:  12900,
		Currency:          "gbp",
		ExternalIntentRef: "pi_123",
		Method:            models.PaymentMethodCard,
	}, now)
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionStatusPendingApproval, out.Status)
	require.NotNil(t, out.StartDate)
	require.NotNil(t, out.EndDate)
	assert.Equal(t, now, *out.StartDate)
	assert.Equal(t, now.AddDate(1, 0, 0), *out.EndDate)
	assert.Equal(t, out.EndDate, out.NextPaymentDate)
	assert.Equal(t, 0, out.RetryCount)
	assert.Equal(t, models.PaymentMethodCard, out.PaymentMethod)

	// owner gets a payment confirmation, admins get a review prompt
	require.Len(t, out.Notifications, 2)
	assert.True(t, out.Notifications[0].ToOwner)
	assert.Equal(t, models.NotificationTypePaymentConfirmed, out.Notifications[0].Type)
	assert.Contains(t, out.Notifications[0].Message, "129.00 GBP")
	assert.False(t, out.Notifications[1].ToOwner)
	assert.Equal(t, models.NotificationTypeNewApplication, out.Notifications[1].Type)
	require.Len(t, out.Emails, 1)
}

func TestApplyPaymentSucceededOnlyFromDraft(t *testing.T) {
	for _, status := range []string{
		models.SubscriptionStatusPendingApproval,
		models.SubscriptionStatusActive,
		models.SubscriptionStatusSuspended,
		models.SubscriptionStatusExpired,
		models.SubscriptionStatusWithdrawn,
		models.SubscriptionStatusRejected,
	} {
		_, err := Apply(newSub(status), PaymentSucceeded{}, time.Now())
		if !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("PaymentSucceeded in %s: got %v, want ErrIllegalTransition", status, err)
		}
	}
}

func TestApplyPaymentFailedIncrementsRetryCount(t *testing.T) {
	sub := newSub(models.SubscriptionStatusActive)
	sub.RetryCount = 0

	out, err := Apply(sub, PaymentFailed{ExternalIntentRef: "pi_x"}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionStatusActive, out.Status)
	assert.Equal(t, 1, out.RetryCount)
	require.Len(t, out.Notifications, 1)
	assert.Equal(t, models.NotificationTypePaymentFailed, out.Notifications[0].Type)
	assert.Contains(t, out.Notifications[0].Message, "attempt 1 of 3")
}

func TestApplyPaymentFailedSuspendsOnThirdFailure(t *testing.T) {
	tests := []struct {
		retryCount  int
		wantStatus  string
		wantRetries int
	}{
		{retryCount: 0, wantStatus: models.SubscriptionStatusActive, wantRetries: 1},
		{retryCount: 1, wantStatus: models.SubscriptionStatusActive, wantRetries: 2},
		{retryCount: 2, wantStatus: models.SubscriptionStatusSuspended, wantRetries: 3},
	}

	for _, tt := range tests {
		sub := newSub(models.SubscriptionStatusActive)
		sub.RetryCount = tt.retryCount

		out, err := Apply(sub, PaymentFailed{}, time.Now())
		require.NoError(t, err)
		assert.Equal(t, tt.wantStatus, out.Status, "retryCount=%d", tt.retryCount)
		assert.Equal(t, tt.wantRetries, out.RetryCount, "retryCount=%d", tt.retryCount)
	}
}

func TestApplyPaymentFailedSuspensionNotification(t *testing.T) {
	sub := newSub(models.SubscriptionStatusActive)
	sub.RetryCount = MaxPaymentRetries - 1

	out, err := Apply(sub, PaymentFailed{}, time.Now())
	require.NoError(t, err)

	require.Len(t, out.Notifications, 1)
	assert.Equal(t, models.NotificationTypeSuspended, out.Notifications[0].Type)
	assert.NotContains(t, out.Notifications[0].Message, "attempt")
}

func TestApplyPaymentFailedOnlyFromActive(t *testing.T) {
	for _, status := range []string{
		models.SubscriptionStatusDraft,
		models.SubscriptionStatusPendingApproval,
		models.SubscriptionStatusSuspended,
		models.SubscriptionStatusExpired,
		models.SubscriptionStatusWithdrawn,
		models.SubscriptionStatusRejected,
	} {
		_, err := Apply(newSub(status), PaymentFailed{}, time.Now())
		if !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("PaymentFailed in %s: got %v, want ErrIllegalTransition", status, err)
		}
	}
}

func TestApplyAdminCommandTransitions(t *testing.T) {
	tests := []struct {
		name       string
		from       string
		command    string
		wantStatus string
	}{
		{name: "approve pending", from: models.SubscriptionStatusPendingApproval, command: CommandApprove, wantStatus: models.SubscriptionStatusActive},
		{name: "reject pending", from: models.SubscriptionStatusPendingApproval, command: CommandReject, wantStatus: models.SubscriptionStatusRejected},
		{name: "suspend active", from: models.SubscriptionStatusActive, command: CommandSuspend, wantStatus: models.SubscriptionStatusSuspended},
		{name: "reactivate suspended", from: models.SubscriptionStatusSuspended, command: CommandReactivate, wantStatus: models.SubscriptionStatusActive},
		{name: "withdraw pending", from: models.SubscriptionStatusPendingApproval, command: CommandWithdraw, wantStatus: models.SubscriptionStatusWithdrawn},
		{name: "withdraw active", from: models.SubscriptionStatusActive, command: CommandWithdraw, wantStatus: models.SubscriptionStatusWithdrawn},
		{name: "withdraw suspended", from: models.SubscriptionStatusSuspended, command: CommandWithdraw, wantStatus: models.SubscriptionStatusWithdrawn},
		{name: "cancel active", from: models.SubscriptionStatusActive, command: CommandCancel, wantStatus: models.SubscriptionStatusWithdrawn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(newSub(tt.from), AdminCommand{Type: tt.command}, time.Now())
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, out.Status)
			require.NotEmpty(t, out.Notifications)
		})
	}
}

func TestApplyAdminCommandIllegalPairs(t *testing.T) {
	tests := []struct {
		from    string
		command string
	}{
		{from: models.SubscriptionStatusDraft, command: CommandApprove},
		{from: models.SubscriptionStatusActive, command: CommandApprove},
		{from: models.SubscriptionStatusDraft, command: CommandReject},
		{from: models.SubscriptionStatusSuspended, command: CommandReject},
		{from: models.SubscriptionStatusPendingApproval, command: CommandSuspend},
		{from: models.SubscriptionStatusSuspended, command: CommandSuspend},
		{from: models.SubscriptionStatusActive, command: CommandReactivate},
		{from: models.SubscriptionStatusExpired, command: CommandReactivate},
		{from: models.SubscriptionStatusDraft, command: CommandWithdraw},
		{from: models.SubscriptionStatusExpired, command: CommandWithdraw},
		{from: models.SubscriptionStatusWithdrawn, command: CommandCancel},
		{from: models.SubscriptionStatusRejected, command: CommandCancel},
	}

	for _, tt := range tests {
		_, err := Apply(newSub(tt.from), AdminCommand{Type: tt.command}, time.Now())
		if !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("%s in %s: got %v, want ErrIllegalTransition", tt.command, tt.from, err)
		}
	}
}

func TestApplyAdminCommandUnknownType(t *testing.T) {
	_, err := Apply(newSub(models.SubscriptionStatusActive), AdminCommand{Type: "escalate"}, time.Now())
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestApplyRejectIncludesReason(t *testing.T) {
	out, err := Apply(newSub(models.SubscriptionStatusPendingApproval),
		AdminCommand{Type: CommandReject, Reason: "address not eligible"}, time.Now())
	require.NoError(t, err)
	require.Len(t, out.Notifications, 1)
	assert.Contains(t, out.Notifications[0].Message, "address not eligible")
}

func TestApplyReactivateResetsRetryCount(t *testing.T) {
	sub := newSub(models.SubscriptionStatusSuspended)
	sub.RetryCount = MaxPaymentRetries

	out, err := Apply(sub, AdminCommand{Type: CommandReactivate}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, out.Status)
	assert.Equal(t, 0, out.RetryCount)
}

func TestApplyApproveKeepsPaymentDates(t *testing.T) {
	paidAt := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	end := paidAt.AddDate(1, 0, 0)
	sub := newSub(models.SubscriptionStatusPendingApproval)
	sub.StartDate = &paidAt
	sub.EndDate = &end
	sub.NextPaymentDate = &end

	approvedAt := paidAt.AddDate(0, 0, 3)
	out, err := Apply(sub, AdminCommand{Type: CommandApprove}, approvedAt)
	require.NoError(t, err)

	// the service year starts at payment time, not at approval time
	assert.Equal(t, paidAt, *out.StartDate)
	assert.Equal(t, end, *out.EndDate)
}

func TestApplyRenewalTickExpires(t *testing.T) {
	asOf := time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)

	for _, end := range []time.Time{asOf, asOf.Add(-time.Hour), asOf.AddDate(0, 0, -30)} {
		out, err := Apply(activeSubEnding(end), RenewalCheckTick{AsOf: asOf}, asOf)
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionStatusExpired, out.Status)
		require.Len(t, out.Notifications, 1)
		assert.Equal(t, models.NotificationTypeExpired, out.Notifications[0].Type)
		assert.Equal(t, 0, out.ReminderBucket)
	}
}

func TestApplyRenewalTickReminderBuckets(t *testing.T) {
	asOf := time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)

	tests := []struct {
		daysLeft   int
		wantBucket int
	}{
		{daysLeft: 90, wantBucket: 0},
		{daysLeft: 61, wantBucket: 0},
		{daysLeft: 60, wantBucket: 60},
		{daysLeft: 45, wantBucket: 60},
		{daysLeft: 31, wantBucket: 60},
		{daysLeft: 30, wantBucket: 30},
		{daysLeft: 8, wantBucket: 30},
		{daysLeft: 7, wantBucket: 7},
		{daysLeft: 1, wantBucket: 7},
	}

	for _, tt := range tests {
		end := asOf.AddDate(0, 0, tt.daysLeft)
		out, err := Apply(activeSubEnding(end), RenewalCheckTick{AsOf: asOf}, asOf)
		require.NoError(t, err, "daysLeft=%d", tt.daysLeft)
		assert.Equal(t, models.SubscriptionStatusActive, out.Status, "daysLeft=%d", tt.daysLeft)
		assert.Equal(t, tt.wantBucket, out.ReminderBucket, "daysLeft=%d", tt.daysLeft)
		if tt.wantBucket > 0 {
			require.NotNil(t, out.ReminderNotification, "daysLeft=%d", tt.daysLeft)
			require.NotNil(t, out.ReminderEmail, "daysLeft=%d", tt.daysLeft)
		} else {
			assert.Nil(t, out.ReminderNotification, "daysLeft=%d", tt.daysLeft)
		}
	}
}

func TestApplyRenewalTickIgnoresTimeOfDay(t *testing.T) {
	// 7 whole calendar days apart regardless of clock times
	asOf := time.Date(2026, 6, 1, 23, 50, 0, 0, time.UTC)
	end := time.Date(2026, 6, 8, 0, 10, 0, 0, time.UTC)

	out, err := Apply(activeSubEnding(end), RenewalCheckTick{AsOf: asOf}, asOf)
	require.NoError(t, err)
	assert.Equal(t, 7, out.ReminderBucket)
}

func TestApplyRenewalTickWithoutEndDate(t *testing.T) {
	sub := newSub(models.SubscriptionStatusActive)

	out, err := Apply(sub, RenewalCheckTick{AsOf: time.Now()}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, out.Status)
	assert.Equal(t, 0, out.ReminderBucket)
	assert.Empty(t, out.Notifications)
}

func TestApplyRenewalTickOnlyFromActive(t *testing.T) {
	for _, status := range []string{
		models.SubscriptionStatusDraft,
		models.SubscriptionStatusPendingApproval,
		models.SubscriptionStatusSuspended,
		models.SubscriptionStatusExpired,
		models.SubscriptionStatusWithdrawn,
		models.SubscriptionStatusRejected,
	} {
		_, err := Apply(newSub(status), RenewalCheckTick{AsOf: time.Now()}, time.Now())
		if !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("RenewalCheckTick in %s: got %v, want ErrIllegalTransition", status, err)
		}
	}
}

func TestApplyDoesNotMutateSubscription(t *testing.T) {
	sub := newSub(models.SubscriptionStatusDraft)
	_, err := Apply(sub, PaymentSucceeded{AmountMinorUnits: 100, Currency: "gbp"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusDraft, sub.Status)
	assert.Nil(t, sub.StartDate)
}

func TestIsValidAdminCommand(t *testing.T) {
	for _, cmd := range []string{CommandApprove, CommandReject, CommandSuspend, CommandReactivate, CommandWithdraw, CommandCancel} {
		assert.True(t, IsValidAdminCommand(cmd), cmd)
	}
	for _, cmd := range []string{"", "APPROVE", "delete", "renew"} {
		assert.False(t, IsValidAdminCommand(cmd), cmd)
	}
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		asOf string
		end  string
		want int
	}{
		{asOf: "2026-06-01T00:00:00Z", end: "2026-06-01T23:00:00Z", want: 0},
		{asOf: "2026-06-01T23:00:00Z", end: "2026-06-02T01:00:00Z", want: 1},
		{asOf: "2026-06-01T00:00:00Z", end: "2026-07-01T00:00:00Z", want: 30},
		{asOf: "2026-06-02T00:00:00Z", end: "2026-06-01T00:00:00Z", want: -1},
	}

	for _, tt := range tests {
		asOf, _ := time.Parse(time.RFC3339, tt.asOf)
		end, _ := time.Parse(time.RFC3339, tt.end)
		if got := daysUntil(asOf, end); got != tt.want {
			t.Fatalf("daysUntil(%s, %s) = %d, want %d", tt.asOf, tt.end, got, tt.want)
		}
	}
}
