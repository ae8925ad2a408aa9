package renewal

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/MartinKoehl/OfficeBase/internal/pkg/lifecycle"
)

// SweepReport summarizes one renewal sweep invocation.
type SweepReport struct {
	Scanned       int `json:"scanned"`
	RemindersSent int `json:"reminders_sent"`
	Expired       int `json:"expired"`
	Errors        int `json:"errors"`
}

// EmailDispatcher sends reminder/expiry emails after each per-subscription
// transaction commits.
type EmailDispatcher interface {
	DispatchEmail(userID uint, subject, body string)
}

// Scheduler is the periodic batch sweep that feeds renewal-due and expire
// events into the state machine. It is safe to run concurrently with itself
// and with live webhook traffic: each subscription is processed in its own
// transaction under the row lock, and reminder dedup makes reruns idempotent.
type Scheduler struct {
	repo   lifecycle.Repository
	emails EmailDispatcher
}

// NewScheduler creates a renewal scheduler.
func NewScheduler(repo lifecycle.Repository, emails EmailDispatcher) *Scheduler {
	return &Scheduler{repo: repo, emails: emails}
}

// Sweep ticks every active subscription against asOf. Per-subscription
// failures are counted and logged but do not abort the sweep; an
// IllegalTransition means a concurrent transition already moved the
// subscription out of active and is silently skipped.
func (s *Scheduler) Sweep(ctx context.Context, asOf time.Time) (SweepReport, error) {
	report := SweepReport{}

	ids, err := s.repo.ListActiveSubscriptionIDs()
	if err != nil {
		return report, err
	}

	for _, id := range ids {
		report.Scanned++

		var emails []lifecycle.OwnerEmail
		var result *lifecycle.TransitionResult
		err := s.repo.InTransaction(ctx, func(tx lifecycle.Repository) error {
			sub, err := tx.GetSubscriptionForUpdate(id)
			if err != nil {
				return err
			}
			result, err = lifecycle.ApplyTransition(tx, sub, lifecycle.RenewalCheckTick{AsOf: asOf}, asOf)
			if err != nil {
				return err
			}
			emails = result.Emails
			return nil
		})
		if err != nil {
			if errors.Is(err, lifecycle.ErrIllegalTransition) {
				continue
			}
			report.Errors++
			log.Errorf("[Renewal] Sweep failed for subscription %d: %v", id, err)
			continue
		}

		if result.StatusChanged {
			report.Expired++
		}
		if result.ReminderSent {
			report.RemindersSent++
		}
		for _, email := range emails {
			s.emails.DispatchEmail(email.UserID, email.Subject, email.Body)
		}
	}

	log.Infof("[Renewal] Sweep done: scanned=%d reminders=%d expired=%d errors=%d",
		report.Scanned, report.RemindersSent, report.Expired, report.Errors)
	return report, nil
}
