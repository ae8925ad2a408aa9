package models

import "time"

// ProcessedEvent is the deduplication record for inbound gateway webhook
// events. The unique external event id guarantees at-most-once effect from
// the gateway's at-least-once delivery; the raw payload is retained for
// audit.
type ProcessedEvent struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ExternalEventID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"external_event_id"`
	EventType       string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string    `gorm:"type:longtext;not null" json:"payload_json"`
	ProcessedAt     time.Time `gorm:"autoCreateTime;index" json:"processed_at"`
}
