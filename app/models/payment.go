package models

import "time"

const (
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment is an append-only record of one attempted or completed charge.
// Rows are created by the payment event processor on first sight of a
// checkout/charge event and only ever mutated in their status (and paid_at)
// by later events carrying the same intent reference.
type Payment struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	SubscriptionID    uint       `gorm:"not null;index" json:"subscription_id"`
	UserID            uint       `gorm:"not null;index" json:"user_id"`
	AmountMinorUnits  int64      `gorm:"not null" json:"amount_minor_units"`
	Currency          string     `gorm:"type:varchar(3);not null" json:"currency"`
	Status            string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ExternalIntentRef string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"external_intent_ref"`
	PaidAt            *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
