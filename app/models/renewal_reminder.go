package models

import "time"

// RenewalReminder records that the reminder for a given day bucket (60, 30
// or 7 days before expiry) was already sent for a subscription. The unique
// (subscription_id, bucket) index makes reminder delivery idempotent across
// overlapping sweep runs.
type RenewalReminder struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SubscriptionID uint      `gorm:"not null;index:ux_renewal_reminders_sub_bucket,unique,priority:1" json:"subscription_id"`
	Bucket         int       `gorm:"not null;index:ux_renewal_reminders_sub_bucket,unique,priority:2" json:"bucket"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
