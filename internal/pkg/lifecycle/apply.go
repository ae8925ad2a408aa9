package lifecycle

import (
	"time"

	"github.com/MartinKoehl/OfficeBase/app/models"
)

// OwnerEmail is an outbound email owed to the subscription owner by a
// committed transition. Emails are dispatched after commit, fire-and-forget;
// a failed dispatch never rolls the transition back.
type OwnerEmail struct {
	UserID  uint
	Subject string
	Body    string
}

// TransitionResult is what a persisted transition hands back to its caller:
// the updated subscription, the raw machine outcome and the emails still to
// be dispatched once the surrounding transaction commits.
type TransitionResult struct {
	Subscription  *models.Subscription
	Outcome       *Outcome
	Emails        []OwnerEmail
	StatusChanged bool
	ReminderSent  bool
}

// ApplyTransition runs the state machine for one event and persists the
// outcome through tx: subscription fields, notification rows and the renewal
// reminder dedup mark. Payment rows are owned by the payment event processor
// and are not written here. The caller must already hold the row lock on sub
// and must invoke this inside a transaction.
func ApplyTransition(tx Repository, sub *models.Subscription, ev Event, now time.Time) (*TransitionResult, error) {
	out, err := Apply(sub, ev, now)
	if err != nil {
		return nil, err
	}

	from := sub.Status
	sub.Status = out.Status
	sub.RetryCount = out.RetryCount
	sub.StartDate = out.StartDate
	sub.EndDate = out.EndDate
	sub.NextPaymentDate = out.NextPaymentDate
	sub.PaymentMethod = out.PaymentMethod
	if err := tx.SaveSubscription(sub); err != nil {
		return nil, err
	}

	result := &TransitionResult{
		Subscription:  sub,
		Outcome:       out,
		StatusChanged: out.StatusChanged(from),
	}

	for _, spec := range out.Notifications {
		if err := createNotifications(tx, sub, spec); err != nil {
			return nil, err
		}
	}
	for _, email := range out.Emails {
		result.Emails = append(result.Emails, OwnerEmail{UserID: sub.UserID, Subject: email.Subject, Body: email.Body})
	}

	if out.ReminderBucket > 0 {
		inserted, err := tx.MarkReminderSentIfNew(sub.ID, out.ReminderBucket)
		if err != nil {
			return nil, err
		}
		if inserted {
			result.ReminderSent = true
			if out.ReminderNotification != nil {
				if err := createNotifications(tx, sub, *out.ReminderNotification); err != nil {
					return nil, err
				}
			}
			if out.ReminderEmail != nil {
				result.Emails = append(result.Emails, OwnerEmail{
					UserID:  sub.UserID,
					Subject: out.ReminderEmail.Subject,
					Body:    out.ReminderEmail.Body,
				})
			}
		}
	}

	return result, nil
}

func createNotifications(tx Repository, sub *models.Subscription, spec NotificationSpec) error {
	if spec.ToOwner {
		return tx.CreateNotification(&models.Notification{
			UserID:  sub.UserID,
			Type:    spec.Type,
			Title:   spec.Title,
			Message: spec.Message,
		})
	}

	adminIDs, err := tx.ListAdminUserIDs()
	if err != nil {
		return err
	}
	for _, adminID := range adminIDs {
		if err := tx.CreateNotification(&models.Notification{
			UserID:  adminID,
			Type:    spec.Type,
			Title:   spec.Title,
			Message: spec.Message,
		}); err != nil {
			return err
		}
	}
	return nil
}
