package adminactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MartinKoehl/OfficeBase/app/models"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/lifecycle"
)

var (
	// ErrInvalidForState is returned when the command does not apply to the
	// subscription's current status. Nothing is persisted, nothing audited.
	ErrInvalidForState = errors.New("action not valid for current subscription state")

	// ErrUnknownAction is returned for a command type outside the six
	// supported kinds.
	ErrUnknownAction = errors.New("unknown admin action type")
)

// Command is one human-issued lifecycle command.
type Command struct {
	Type   string
	Reason string
	Notes  string
}

// EffectsSink receives post-commit side effects. Both methods are
// fire-and-forget.
type EffectsSink interface {
	DispatchEmail(userID uint, subject, body string)
	ArchiveCertificate(subscriptionID uint)
}

// Processor applies admin commands to subscriptions. Authorization has
// already happened by the time Apply is called: the actor id belongs to an
// authenticated admin resolved by the HTTP layer.
type Processor struct {
	repo    lifecycle.Repository
	effects EffectsSink
}

// NewProcessor creates an admin action processor.
func NewProcessor(repo lifecycle.Repository, effects EffectsSink) *Processor {
	return &Processor{repo: repo, effects: effects}
}

// Apply runs one command against the target subscription and returns the
// resulting status. The subscription update and the audit row commit in the
// same transaction; audit rows are written only for accepted commands.
func (p *Processor) Apply(ctx context.Context, actorID, subscriptionID uint, cmd Command) (string, error) {
	if !lifecycle.IsValidAdminCommand(cmd.Type) {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Type)
	}

	var (
		emails    []lifecycle.OwnerEmail
		newStatus string
		approved  bool
	)
	err := p.repo.InTransaction(ctx, func(tx lifecycle.Repository) error {
		sub, err := tx.GetSubscriptionForUpdate(subscriptionID)
		if err != nil {
			return err
		}

		result, err := lifecycle.ApplyTransition(tx, sub, lifecycle.AdminCommand{Type: cmd.Type, Reason: cmd.Reason}, time.Now())
		if err != nil {
			return err
		}

		if err := tx.CreateAdminAction(&models.AdminAction{
			ActorID:        actorID,
			SubscriptionID: subscriptionID,
			ActionType:     cmd.Type,
			Reason:         cmd.Reason,
			Notes:          cmd.Notes,
		}); err != nil {
			return err
		}

		emails = result.Emails
		newStatus = result.Subscription.Status
		approved = cmd.Type == lifecycle.CommandApprove
		return nil
	})
	if err != nil {
		if errors.Is(err, lifecycle.ErrIllegalTransition) {
			return "", fmt.Errorf("%w: %v", ErrInvalidForState, err)
		}
		return "", err
	}

	for _, email := range emails {
		p.effects.DispatchEmail(email.UserID, email.Subject, email.Body)
	}
	if approved {
		// Certificate generation is best-effort and must never roll back
		// the approval itself.
		p.effects.ArchiveCertificate(subscriptionID)
	}
	return newStatus, nil
}
