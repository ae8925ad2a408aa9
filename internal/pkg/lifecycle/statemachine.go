package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/MartinKoehl/OfficeBase/app/models"
)

// MaxPaymentRetries is the consecutive-failure threshold. The transition on
// which the post-increment retry count reaches this value suspends the
// subscription.
const MaxPaymentRetries = 3

// ReminderBuckets are the days-before-expiry marks at which a renewal
// reminder is owed, checked smallest first so a tick fires the most urgent
// bucket it qualifies for.
var ReminderBuckets = [3]int{7, 30, 60}

// Event is one of the four inputs the state machine accepts. The concrete
// types are PaymentSucceeded, PaymentFailed, AdminCommand and
// RenewalCheckTick.
type Event interface {
	Name() string
}

// PaymentSucceeded reports a completed charge from the payment gateway.
type PaymentSucceeded struct {
	AmountMinorUnits  int64
	Currency          string
	ExternalIntentRef string
	Method            string
}

func (PaymentSucceeded) Name() string { return "payment_succeeded" }

// PaymentFailed reports a failed charge attempt from the payment gateway.
type PaymentFailed struct {
	ExternalIntentRef string
}

func (PaymentFailed) Name() string { return "payment_failed" }

// Admin command kinds accepted by AdminCommand events.
const (
	CommandApprove    = "approve"
	CommandReject     = "reject"
	CommandSuspend    = "suspend"
	CommandReactivate = "reactivate"
	CommandWithdraw   = "withdraw"
	CommandCancel     = "cancel"
)

// AdminCommand is an explicit human-issued lifecycle command.
type AdminCommand struct {
	Type   string
	Reason string
}

func (c AdminCommand) Name() string { return "admin_" + c.Type }

// IsValidAdminCommand reports whether t is one of the six command kinds.
func IsValidAdminCommand(t string) bool {
	switch t {
	case CommandApprove, CommandReject, CommandSuspend, CommandReactivate, CommandWithdraw, CommandCancel:
		return true
	default:
		return false
	}
}

// RenewalCheckTick is the time-driven input emitted by the renewal sweep.
type RenewalCheckTick struct {
	AsOf time.Time
}

func (RenewalCheckTick) Name() string { return "renewal_check_tick" }

// NotificationSpec describes one in-app notification owed by a transition.
// ToOwner selects the subscription owner; otherwise all admins receive it.
type NotificationSpec struct {
	ToOwner bool
	Type    string
	Title   string
	Message string
}

// EmailSpec describes one outbound email to the subscription owner.
type EmailSpec struct {
	Subject string
	Body    string
}

// Outcome is the full result of a legal transition: the next status, the
// field updates to persist and the side-effect records to create. The
// reminder notification/email are listed separately because they are only
// owed when the (subscription, bucket) pair has not fired before.
type Outcome struct {
	Status          string
	RetryCount      int
	StartDate       *time.Time
	EndDate         *time.Time
	NextPaymentDate *time.Time
	PaymentMethod   string

	Notifications []NotificationSpec
	Emails        []EmailSpec

	ReminderBucket       int
	ReminderNotification *NotificationSpec
	ReminderEmail        *EmailSpec
}

// StatusChanged reports whether the transition moved the subscription to a
// different status than the one it was applied to.
func (o *Outcome) StatusChanged(from string) bool { return o.Status != from }

// Apply is the authoritative transition function. It is pure: it performs no
// I/O and mutates nothing; it either returns the outcome of a legal
// transition or an error wrapping ErrIllegalTransition.
func Apply(sub *models.Subscription, ev Event, now time.Time) (*Outcome, error) {
	out := &Outcome{
		Status:          sub.Status,
		RetryCount:      sub.RetryCount,
		StartDate:       sub.StartDate,
		EndDate:         sub.EndDate,
		NextPaymentDate: sub.NextPaymentDate,
		PaymentMethod:   sub.PaymentMethod,
	}

	switch e := ev.(type) {
	case PaymentSucceeded:
		return applyPaymentSucceeded(sub, e, now, out)
	case PaymentFailed:
		return applyPaymentFailed(sub, out)
	case AdminCommand:
		return applyAdminCommand(sub, e, now, out)
	case RenewalCheckTick:
		return applyRenewalTick(sub, e, out)
	default:
		return nil, illegalTransition(sub.Status, ev)
	}
}

func applyPaymentSucceeded(sub *models.Subscription, e PaymentSucceeded, now time.Time, out *Outcome) (*Outcome, error) {
	if sub.Status != models.SubscriptionStatusDraft {
		return nil, illegalTransition(sub.Status, e)
	}

	start := now
	end := now.AddDate(1, 0, 0)
	out.Status = models.SubscriptionStatusPendingApproval
	out.StartDate = &start
	out.EndDate = &end
	out.NextPaymentDate = &end
	out.RetryCount = 0
	if e.Method != "" {
		out.PaymentMethod = e.Method
	}

	ownerMsg := fmt.Sprintf(
		"We received your payment of %s. Your registered office application is now awaiting review.",
		formatAmount(e.AmountMinorUnits, e.Currency),
	)
	out.notifyOwner(models.NotificationTypePaymentConfirmed, "Payment confirmed", ownerMsg)
	out.notifyAdmins(models.NotificationTypeNewApplication, "New application",
		fmt.Sprintf("A paid registered office application is awaiting approval (subscription %d).", sub.ID))
	return out, nil
}

func applyPaymentFailed(sub *models.Subscription, out *Outcome) (*Outcome, error) {
	if sub.Status != models.SubscriptionStatusActive {
		return nil, illegalTransition(sub.Status, PaymentFailed{})
	}

	out.RetryCount = sub.RetryCount + 1
	if out.RetryCount >= MaxPaymentRetries {
		out.Status = models.SubscriptionStatusSuspended
		out.notifyOwner(models.NotificationTypeSuspended, "Service suspended",
			"Your registered office service has been suspended after repeated payment failures. Please update your payment details.")
		return out, nil
	}

	out.notifyOwner(models.NotificationTypePaymentFailed, "Payment failed",
		fmt.Sprintf("Your renewal payment failed (attempt %d of %d). We will retry automatically.", out.RetryCount, MaxPaymentRetries))
	return out, nil
}

func applyAdminCommand(sub *models.Subscription, e AdminCommand, now time.Time, out *Outcome) (*Outcome, error) {
	switch e.Type {
	case CommandApprove:
		if sub.Status != models.SubscriptionStatusPendingApproval {
			return nil, illegalTransition(sub.Status, e)
		}
		out.Status = models.SubscriptionStatusActive
		if out.StartDate == nil || out.EndDate == nil {
			start := now
			end := now.AddDate(1, 0, 0)
			out.StartDate = &start
			out.EndDate = &end
			out.NextPaymentDate = &end
		}
		out.notifyOwner(models.NotificationTypeApproved, "Application approved",
			"Your registered office application has been approved. The service is now active.")
		return out, nil

	case CommandReject:
		if sub.Status != models.SubscriptionStatusPendingApproval {
			return nil, illegalTransition(sub.Status, e)
		}
		out.Status = models.SubscriptionStatusRejected
		out.notifyOwner(models.NotificationTypeRejected, "Application rejected", withReason("Your registered office application has been rejected.", e.Reason))
		return out, nil

	case CommandSuspend:
		if sub.Status != models.SubscriptionStatusActive {
			return nil, illegalTransition(sub.Status, e)
		}
		out.Status = models.SubscriptionStatusSuspended
		out.notifyOwner(models.NotificationTypeSuspended, "Service suspended", withReason("Your registered office service has been suspended.", e.Reason))
		return out, nil

	case CommandReactivate:
		if sub.Status != models.SubscriptionStatusSuspended {
			return nil, illegalTransition(sub.Status, e)
		}
		out.Status = models.SubscriptionStatusActive
		out.RetryCount = 0
		out.notifyOwner(models.NotificationTypeReactivated, "Service reactivated",
			"Your registered office service has been reactivated.")
		return out, nil

	case CommandWithdraw, CommandCancel:
		switch sub.Status {
		case models.SubscriptionStatusPendingApproval, models.SubscriptionStatusActive, models.SubscriptionStatusSuspended:
		default:
			return nil, illegalTransition(sub.Status, e)
		}
		out.Status = models.SubscriptionStatusWithdrawn
		out.notifyOwner(models.NotificationTypeWithdrawn, "Service withdrawn", withReason("Your registered office service has been withdrawn.", e.Reason))
		return out, nil

	default:
		return nil, illegalTransition(sub.Status, e)
	}
}

func applyRenewalTick(sub *models.Subscription, e RenewalCheckTick, out *Outcome) (*Outcome, error) {
	if sub.Status != models.SubscriptionStatusActive {
		return nil, illegalTransition(sub.Status, e)
	}
	if sub.EndDate == nil {
		// An active subscription without an end date has nothing to check.
		return out, nil
	}

	if !sub.EndDate.After(e.AsOf) {
		out.Status = models.SubscriptionStatusExpired
		out.notifyOwner(models.NotificationTypeExpired, "Subscription expired",
			"Your registered office subscription has expired. Contact us to arrange a new service agreement.")
		return out, nil
	}

	daysLeft := daysUntil(e.AsOf, *sub.EndDate)
	for _, bucket := range ReminderBuckets {
		if daysLeft <= bucket {
			out.ReminderBucket = bucket
			spec := NotificationSpec{
				ToOwner: true,
				Type:    models.NotificationTypeRenewalReminder,
				Title:   "Renewal reminder",
				Message: fmt.Sprintf("Your registered office subscription renews in %d days.", bucket),
			}
			out.ReminderNotification = &spec
			out.ReminderEmail = &EmailSpec{Subject: spec.Title, Body: spec.Message}
			break
		}
	}
	return out, nil
}

func (o *Outcome) notifyOwner(notificationType, title, message string) {
	o.Notifications = append(o.Notifications, NotificationSpec{
		ToOwner: true,
		Type:    notificationType,
		Title:   title,
		Message: message,
	})
	o.Emails = append(o.Emails, EmailSpec{Subject: title, Body: message})
}

func (o *Outcome) notifyAdmins(notificationType, title, message string) {
	o.Notifications = append(o.Notifications, NotificationSpec{
		ToOwner: false,
		Type:    notificationType,
		Title:   title,
		Message: message,
	})
}

func withReason(message, reason string) string {
	if strings.TrimSpace(reason) == "" {
		return message
	}
	return message + " Reason: " + strings.TrimSpace(reason)
}

// daysUntil counts whole calendar days from asOf to end, comparing dates in
// UTC so the result does not depend on the time of day the sweep runs.
func daysUntil(asOf, end time.Time) int {
	a := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

func formatAmount(minorUnits int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minorUnits/100, minorUnits%100, strings.ToUpper(currency))
}
