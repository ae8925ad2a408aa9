package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification types surfaced to clients and admins by lifecycle transitions.
const (
	NotificationTypePaymentConfirmed = "payment_confirmed"
	NotificationTypePaymentFailed    = "payment_failed"
	NotificationTypeNewApplication   = "new_application"
	NotificationTypeApproved         = "approved"
	NotificationTypeRejected         = "rejected"
	NotificationTypeSuspended        = "suspended"
	NotificationTypeReactivated      = "reactivated"
	NotificationTypeWithdrawn        = "withdrawn"
	NotificationTypeRenewalReminder  = "renewal_reminder"
	NotificationTypeExpired          = "expired"
)

type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type      string         `gorm:"type:varchar(50)" json:"type"`
	Title     string         `gorm:"type:varchar(200)" json:"title"`
	Message   string         `gorm:"type:text" json:"message"`
	IsRead    bool           `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// MarkAsRead marks a notification as read
func (n *Notification) MarkAsRead(db *gorm.DB) error {
	n.IsRead = true
	return db.Model(n).Update("is_read", true).Error
}

// CreateNotification creates a new notification for a user
func CreateNotification(db *gorm.DB, userID uint, notificationType, title, message string) error {
	notification := Notification{
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		IsRead:  false,
	}

	return db.Create(&notification).Error
}
