package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription lifecycle statuses. Transitions between them happen only
// through the lifecycle state machine, never by direct field writes.
const (
	SubscriptionStatusDraft           = "draft"
	SubscriptionStatusPendingApproval = "pending_approval"
	SubscriptionStatusActive          = "active"
	SubscriptionStatusSuspended       = "suspended"
	SubscriptionStatusExpired         = "expired"
	SubscriptionStatusWithdrawn       = "withdrawn"
	SubscriptionStatusRejected        = "rejected"
)

const (
	PaymentMethodCard      = "card"
	PaymentMethodBankDebit = "bank_debit"
	PaymentMethodNone      = ""
)

// Subscription is the registered-office service relationship for one account.
// Exactly one row exists per user; it is created in draft at registration and
// cascades away with the account.
type Subscription struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	UserID              uint           `gorm:"not null;uniqueIndex" json:"user_id"`
	User                User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Status              string         `gorm:"type:varchar(32);not null;default:'draft';index" json:"status"`
	StartDate           *time.Time     `gorm:"type:timestamp;default:null" json:"start_date,omitempty"`
	EndDate             *time.Time     `gorm:"type:timestamp;default:null;index" json:"end_date,omitempty"`
	NextPaymentDate     *time.Time     `gorm:"type:timestamp;default:null" json:"next_payment_date,omitempty"`
	PaymentMethod       string         `gorm:"type:varchar(20);not null;default:''" json:"payment_method"`
	ExternalCustomerRef string         `gorm:"type:varchar(191);index" json:"external_customer_ref,omitempty"`
	RetryCount          int            `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsTerminal reports whether no further lifecycle transition can leave the
// current status.
func (s *Subscription) IsTerminal() bool {
	switch s.Status {
	case SubscriptionStatusExpired, SubscriptionStatusWithdrawn, SubscriptionStatusRejected:
		return true
	default:
		return false
	}
}

// CreateDraftSubscription creates the draft subscription row that accompanies
// a new account.
func CreateDraftSubscription(db *gorm.DB, userID uint) (*Subscription, error) {
	sub := &Subscription{
		UserID: userID,
		Status: SubscriptionStatusDraft,
	}
	if err := db.Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}
