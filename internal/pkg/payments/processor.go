package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/MartinKoehl/OfficeBase/app/models"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/lifecycle"
)

// EmailDispatcher sends outbound email fire-and-forget after a transition
// commits. Implementations must never block webhook handling.
type EmailDispatcher interface {
	DispatchEmail(userID uint, subject, body string)
}

// Processor adapts inbound gateway webhook events into state-machine inputs.
// It owns the idempotency boundary (processed-event dedup), payment-row
// bookkeeping and the swallow-vs-redeliver decision per error class.
type Processor struct {
	repo   lifecycle.Repository
	secret string
	emails EmailDispatcher
}

// NewProcessor creates a payment event processor.
func NewProcessor(repo lifecycle.Repository, webhookSecret string, emails EmailDispatcher) *Processor {
	return &Processor{repo: repo, secret: webhookSecret, emails: emails}
}

// errNoSubscription aborts the transaction when the event cannot be tied to
// a local subscription; the delivery is acknowledged anyway.
var errNoSubscription = errors.New("no subscription for gateway event")

// Handle processes one raw webhook delivery. A nil return tells the caller
// to acknowledge; a non-nil return other than ErrAuthentication tells the
// caller to request redelivery.
func (p *Processor) Handle(ctx context.Context, payload []byte, signatureHeader string) error {
	if !VerifyWebhookSignature(payload, signatureHeader, p.secret) {
		return lifecycle.ErrAuthentication
	}

	ev, err := ParseGatewayEvent(payload)
	if err != nil {
		// Authentic but malformed; redelivery cannot fix it.
		log.Warnf("[Payments] Dropping unparseable gateway payload: %v", err)
		return nil
	}

	eventID := ev.ID
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	kind := classifyEventType(ev.Type)

	var emails []lifecycle.OwnerEmail
	err = p.repo.InTransaction(ctx, func(tx lifecycle.Repository) error {
		created, err := tx.CreateProcessedEventIfNew(&models.ProcessedEvent{
			ExternalEventID: eventID,
			EventType:       ev.Type,
			PayloadJSON:     string(payload),
		})
		if err != nil {
			return err
		}
		if !created {
			return lifecycle.ErrAlreadyProcessed
		}
		if kind == eventKindIgnored {
			// Dedup row is kept so redeliveries short-circuit.
			return nil
		}

		userID, err := ev.OwnerUserID()
		if err != nil {
			log.Warnf("[Payments] Event %s has no usable owner metadata: %v", eventID, err)
			return errNoSubscription
		}
		sub, err := tx.GetSubscriptionByUser(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNoSubscription
			}
			return err
		}
		locked, err := tx.GetSubscriptionForUpdate(sub.ID)
		if err != nil {
			return err
		}
		if locked.ExternalCustomerRef == "" && ev.Data.Object.Customer != "" {
			locked.ExternalCustomerRef = ev.Data.Object.Customer
		}

		machineEvent, err := p.reconcilePayment(tx, locked, ev, kind)
		if err != nil {
			return err
		}

		result, err := lifecycle.ApplyTransition(tx, locked, machineEvent, time.Now())
		if err != nil {
			return err
		}
		emails = result.Emails
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, lifecycle.ErrAlreadyProcessed):
		return nil
	case errors.Is(err, errNoSubscription):
		log.Warnf("[Payments] Acknowledging event %s without a matching subscription", eventID)
		return nil
	case errors.Is(err, lifecycle.ErrIllegalTransition):
		// Logic/ordering bug, not a transient fault; ack so the gateway
		// does not redeliver forever.
		log.Errorf("[Payments] Event %s dropped: %v", eventID, err)
		return nil
	default:
		return fmt.Errorf("processing gateway event %s: %w", eventID, err)
	}

	for _, email := range emails {
		p.emails.DispatchEmail(email.UserID, email.Subject, email.Body)
	}
	return nil
}

// reconcilePayment creates or updates the payment row referenced by the
// event and returns the mapped state-machine input. Rows are created only
// for succeeded events; later events touching the same intent ref mutate
// status in place and never re-create.
func (p *Processor) reconcilePayment(tx lifecycle.Repository, sub *models.Subscription, ev *GatewayEvent, kind eventKind) (lifecycle.Event, error) {
	ref := ev.IntentRef()
	now := time.Now()

	switch kind {
	case eventKindSucceeded:
		if ref == "" {
			return nil, errors.New("succeeded event without intent reference")
		}
		payment, err := tx.GetPaymentByIntentRef(ref)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			payment = &models.Payment{
				SubscriptionID:    sub.ID,
				UserID:            sub.UserID,
				AmountMinorUnits:  ev.Data.Object.Amount,
				Currency:          ev.Data.Object.Currency,
				Status:            models.PaymentStatusSucceeded,
				ExternalIntentRef: ref,
				PaidAt:            &now,
			}
			if err := tx.CreatePayment(payment); err != nil {
				return nil, err
			}
		} else if payment.Status != models.PaymentStatusSucceeded {
			payment.Status = models.PaymentStatusSucceeded
			payment.PaidAt = &now
			if err := tx.SavePayment(payment); err != nil {
				return nil, err
			}
		}
		return lifecycle.PaymentSucceeded{
			AmountMinorUnits:  ev.Data.Object.Amount,
			Currency:          ev.Data.Object.Currency,
			ExternalIntentRef: ref,
			Method:            ev.Data.Object.PaymentMethod,
		}, nil

	case eventKindFailed:
		if ref != "" {
			payment, err := tx.GetPaymentByIntentRef(ref)
			if err == nil && payment.Status == models.PaymentStatusPending {
				payment.Status = models.PaymentStatusFailed
				if err := tx.SavePayment(payment); err != nil {
					return nil, err
				}
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
		return lifecycle.PaymentFailed{ExternalIntentRef: ref}, nil

	default:
		return nil, fmt.Errorf("unmapped gateway event kind %d", kind)
	}
}
