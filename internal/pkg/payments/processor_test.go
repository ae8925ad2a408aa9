package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MartinKoehl/OfficeBase/app/models"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/lifecycle"
)

const testSecret = "whsec_test"

type fakeRepo struct {
	subscriptions map[uint]*models.Subscription

	processedEventIDs map[string]bool
	payments          map[string]*models.Payment
	notifications     []models.Notification
	saveErr           error
}

func newFakeRepo(subs ...*models.Subscription) *fakeRepo {
	r := &fakeRepo{
		subscriptions:     map[uint]*models.Subscription{},
		processedEventIDs: map[string]bool{},
		payments:          map[string]*models.Payment{},
	}
	for _, sub := range subs {
		r.subscriptions[sub.ID] = sub
	}
	return r
}

func (r *fakeRepo) InTransaction(ctx context.Context, fn func(tx lifecycle.Repository) error) error {
	// A failed transaction discards its writes, like a rollback would.
	snapshotEvents := map[string]bool{}
	for k, v := range r.processedEventIDs {
		snapshotEvents[k] = v
	}
	snapshotSubs := map[uint]models.Subscription{}
	for id, sub := range r.subscriptions {
		snapshotSubs[id] = *sub
	}
	snapshotPayments := map[string]models.Payment{}
	for ref, payment := range r.payments {
		snapshotPayments[ref] = *payment
	}
	snapshotNotifications := len(r.notifications)

	if err := fn(r); err != nil {
		r.processedEventIDs = snapshotEvents
		for id, sub := range snapshotSubs {
			*r.subscriptions[id] = sub
		}
		r.payments = map[string]*models.Payment{}
		for ref := range snapshotPayments {
			payment := snapshotPayments[ref]
			r.payments[ref] = &payment
		}
		r.notifications = r.notifications[:snapshotNotifications]
		return err
	}
	return nil
}

func (r *fakeRepo) GetSubscriptionForUpdate(id uint) (*models.Subscription, error) {
	sub, ok := r.subscriptions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return sub, nil
}

func (r *fakeRepo) GetSubscriptionByUser(userID uint) (*models.Subscription, error) {
	for _, sub := range r.subscriptions {
		if sub.UserID == userID {
			return sub, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) SaveSubscription(sub *models.Subscription) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.subscriptions[sub.ID] = sub
	return nil
}

func (r *fakeRepo) ListActiveSubscriptionIDs() ([]uint, error) { return nil, nil }
func (r *fakeRepo) ListAdminUserIDs() ([]uint, error)          { return nil, nil }

func (r *fakeRepo) CreateProcessedEventIfNew(event *models.ProcessedEvent) (bool, error) {
	if r.processedEventIDs[event.ExternalEventID] {
		return false, nil
	}
	r.processedEventIDs[event.ExternalEventID] = true
	return true, nil
}

func (r *fakeRepo) GetPaymentByIntentRef(ref string) (*models.Payment, error) {
	payment, ok := r.payments[ref]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return payment, nil
}

func (r *fakeRepo) CreatePayment(payment *models.Payment) error {
	r.payments[payment.ExternalIntentRef] = payment
	return nil
}

func (r *fakeRepo) SavePayment(payment *models.Payment) error {
	r.payments[payment.ExternalIntentRef] = payment
	return nil
}

func (r *fakeRepo) ListPaymentsBySubscription(subscriptionID uint) ([]models.Payment, error) {
	return nil, nil
}

func (r *fakeRepo) CreateAdminAction(action *models.AdminAction) error { return nil }

func (r *fakeRepo) ListAdminActionsBySubscription(subscriptionID uint) ([]models.AdminAction, error) {
	return nil, nil
}

func (r *fakeRepo) CreateNotification(notification *models.Notification) error {
	r.notifications = append(r.notifications, *notification)
	return nil
}

func (r *fakeRepo) MarkReminderSentIfNew(subscriptionID uint, bucket int) (bool, error) {
	return true, nil
}

type recordingDispatcher struct {
	sent []string
}

func (d *recordingDispatcher) DispatchEmail(userID uint, subject, body string) {
	d.sent = append(d.sent, fmt.Sprintf("%d:%s", userID, subject))
}

func signedPayload(eventID, eventType, intentRef string, userID uint, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": %q,
		"data": {"object": {"id": %q, "amount": %d, "currency": "gbp", "payment_method": "card", "customer": "cus_1", "metadata": {"user_id": "%d"}}}
	}`, eventID, eventType, intentRef, amount, userID))
}

func TestHandleRejectsBadSignature(t *testing.T) {
	repo := newFakeRepo()
	p := NewProcessor(repo, testSecret, &recordingDispatcher{})

	payload := signedPayload("evt_1", "payment.succeeded", "pi_1", 7, 12900)
	err := p.Handle(context.Background(), payload, signPayload(payload, "wrong"))

	assert.ErrorIs(t, err, lifecycle.ErrAuthentication)
	assert.Empty(t, repo.processedEventIDs, "no dedup record for unauthenticated payloads")
}

func TestHandleCheckoutCompletedActivatesDraft(t *testing.T) {
	sub := &models.Subscription{ID: 1, UserID: 7, Status: models.SubscriptionStatusDraft}
	repo := newFakeRepo(sub)
	dispatcher := &recordingDispatcher{}
	p := NewProcessor(repo, testSecret, dispatcher)

	payload := signedPayload("evt_1", "checkout.completed", "pi_1", 7, 12900)
	err := p.Handle(context.Background(), payload, signPayload(payload, testSecret))
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionStatusPendingApproval, sub.Status)
	assert.Equal(t, "cus_1", sub.ExternalCustomerRef)
	require.Contains(t, repo.payments, "pi_1")
	payment := repo.payments["pi_1"]
	assert.Equal(t, models.PaymentStatusSucceeded, payment.Status)
	assert.Equal(t, int64(12900), payment.AmountMinorUnits)
	require.NotNil(t, payment.PaidAt)
	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, "7:Payment confirmed", dispatcher.sent[0])
}

func TestHandleReplayIsIdempotent(t *testing.T) {
	sub := &models.Subscription{ID: 1, UserID: 7, Status: models.SubscriptionStatusDraft}
	repo := newFakeRepo(sub)
	dispatcher := &recordingDispatcher{}
	p := NewProcessor(repo, testSecret, dispatcher)

	payload := signedPayload("evt_1", "checkout.completed", "pi_1", 7, 12900)
	sig := signPayload(payload, testSecret)

	require.NoError(t, p.Handle(context.Background(), payload, sig))
	require.NoError(t, p.Handle(context.Background(), payload, sig))
	require.NoError(t, p.Handle(context.Background(), payload, sig))

	// one transition, one notification set, one email
	assert.Equal(t, models.SubscriptionStatusPendingApproval, sub.Status)
	assert.Len(t, repo.notifications, 1)
	assert.Len(t, dispatcher.sent, 1)
}

func TestHandleUnknownEventTypeAckedAndDeduped(t *testing.T) {
	sub := &models.Subscription{ID: 1, UserID: 7, Status: models.SubscriptionStatusActive}
	repo := newFakeRepo(sub)
	p := NewProcessor(repo, testSecret, &recordingDispatcher{})

	payload := signedPayload("evt_9", "customer.updated", "", 7, 0)
	err := p.Handle(context.Background(), payload, signPayload(payload, testSecret))
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.True(t, repo.processedEventIDs["evt_9"], "ignored events keep their dedup record")
	assert.Empty(t, repo.notifications)
}

func TestHandleMalformedPayloadAcked(t *testing.T) {
	repo := newFakeRepo()
	p := NewProcessor(repo, testSecret, &recordingDispatcher{})

	payload := []byte(`{"truncated":`)
	err := p.Handle(context.Background(), payload, signPayload(payload, testSecret))
	assert.NoError(t, err)
}

func TestHandleNoSubscriptionAcked(t *testing.T) {
	repo := newFakeRepo()
	p := NewProcessor(repo, testSecret, &recordingDispatcher{})

	payload := signedPayload("evt_1", "payment.succeeded", "pi_1", 99, 500)
	err := p.Handle(context.Background(), payload, signPayload(payload, testSecret))
	assert.NoError(t, err)
}

func TestHandleIllegalTransitionAcked(t *testing.T) {
	// succeeded charge against an already-withdrawn subscription
	sub := &models.Subscription{ID: 1, UserID: 7, Status: models.SubscriptionStatusWithdrawn}
	repo := newFakeRepo(sub)
	p := NewProcessor(repo, testSecret, &recordingDispatcher{})

	payload := signedPayload("evt_1", "payment.succeeded", "pi_1", 7, 12900)
	err := p.Handle(context.Background(), payload, signPayload(payload, testSecret))

	assert.NoError(t, err, "ordering bugs are acked, not redelivered")
	assert.Equal(t, models.SubscriptionStatusWithdrawn, sub.Status)
}

func TestHandlePersistenceErrorRedelivered(t *testing.T) {
	sub := &models.Subscription{ID: 1, UserID: 7, Status: models.SubscriptionStatusDraft}
	repo := newFakeRepo(sub)
	repo.saveErr = errors.New("connection reset")
	dispatcher := &recordingDispatcher{}
	p := NewProcessor(repo, testSecret, dispatcher)

	payload := signedPayload("evt_1", "checkout.completed", "pi_1", 7, 12900)
	err := p.Handle(context.Background(), payload, signPayload(payload, testSecret))
	require.Error(t, err)

	// rollback leaves no dedup record, so the redelivery can succeed
	assert.False(t, repo.processedEventIDs["evt_1"])
	assert.Empty(t, dispatcher.sent)

	repo.saveErr = nil
	require.NoError(t, p.Handle(context.Background(), payload, signPayload(payload, testSecret)))
	assert.Equal(t, models.SubscriptionStatusPendingApproval, repo.subscriptions[1].Status)
}

func TestHandlePaymentFailedIncrementsAndSuspends(t *testing.T) {
	sub := &models.Subscription{ID: 1, UserID: 7, Status: models.SubscriptionStatusActive}
	repo := newFakeRepo(sub)
	p := NewProcessor(repo, testSecret, &recordingDispatcher{})

	for i := 1; i <= 3; i++ {
		payload := signedPayload(fmt.Sprintf("evt_%d", i), "payment.failed", "pi_x", 7, 0)
		require.NoError(t, p.Handle(context.Background(), payload, signPayload(payload, testSecret)))
	}

	assert.Equal(t, 3, sub.RetryCount)
	assert.Equal(t, models.SubscriptionStatusSuspended, sub.Status)
}

func TestHandleFailedEventMarksPendingPayment(t *testing.T) {
	sub := &models.Subscription{ID: 1, UserID: 7, Status: models.SubscriptionStatusActive}
	repo := newFakeRepo(sub)
	repo.payments["pi_1"] = &models.Payment{
		SubscriptionID:    1,
		UserID:            7,
		Status:            models.PaymentStatusPending,
		ExternalIntentRef: "pi_1",
	}
	p := NewProcessor(repo, testSecret, &recordingDispatcher{})

	payload := signedPayload("evt_1", "payment.failed", "pi_1", 7, 0)
	require.NoError(t, p.Handle(context.Background(), payload, signPayload(payload, testSecret)))

	assert.Equal(t, models.PaymentStatusFailed, repo.payments["pi_1"].Status)
}

func TestHandleEventWithoutIDUsesPayloadHash(t *testing.T) {
	sub := &models.Subscription{ID: 1, UserID: 7, Status: models.SubscriptionStatusDraft}
	repo := newFakeRepo(sub)
	p := NewProcessor(repo, testSecret, &recordingDispatcher{})

	payload := []byte(`{"type":"checkout.completed","data":{"object":{"id":"pi_1","amount":100,"currency":"gbp","metadata":{"user_id":"7"}}}}`)
	sig := signPayload(payload, testSecret)
	require.NoError(t, p.Handle(context.Background(), payload, sig))
	require.NoError(t, p.Handle(context.Background(), payload, sig))

	// identical payloads share a hash id, so the replay is deduped
	assert.Len(t, repo.notifications, 1)

	var hashIDs int
	for id := range repo.processedEventIDs {
		if len(id) > 5 && id[:5] == "hash:" {
			hashIDs++
		}
	}
	assert.Equal(t, 1, hashIDs)
}

func TestHandleSucceededIsTerminalForPaymentRow(t *testing.T) {
	sub := &models.Subscription{ID: 1, UserID: 7, Status: models.SubscriptionStatusDraft}
	repo := newFakeRepo(sub)
	paidAt := time.Now().Add(-time.Hour)
	repo.payments["pi_1"] = &models.Payment{
		SubscriptionID:    1,
		UserID:            7,
		Status:            models.PaymentStatusSucceeded,
		ExternalIntentRef: "pi_1",
		PaidAt:            &paidAt,
	}
	p := NewProcessor(repo, testSecret, &recordingDispatcher{})

	payload := signedPayload("evt_2", "payment.succeeded", "pi_1", 7, 100)
	require.NoError(t, p.Handle(context.Background(), payload, signPayload(payload, testSecret)))

	// a second success on the same intent must not touch paid_at again
	assert.Equal(t, paidAt, *repo.payments["pi_1"].PaidAt)
}
