package models

import "time"

// AdminAction is the append-only audit record of a human-issued lifecycle
// command. Exactly one row is written per accepted command; rejected
// commands leave no trace here.
type AdminAction struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ActorID        uint      `gorm:"not null;index" json:"actor_id"`
	SubscriptionID uint      `gorm:"not null;index" json:"subscription_id"`
	ActionType     string    `gorm:"type:varchar(32);not null;index" json:"action_type"`
	Reason         string    `gorm:"type:varchar(500)" json:"reason"`
	Notes          string    `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
