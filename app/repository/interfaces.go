package repository

import (
	"github.com/MartinKoehl/OfficeBase/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// NotificationRepository defines the interface for notification queries used
// by the presentation surfaces
type NotificationRepository interface {
	GetByUserID(userID uint, offset, limit int) ([]models.Notification, error)
	GetByIDForUser(id, userID uint) (*models.Notification, error)
	CountUnread(userID uint) (int64, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	Notification NotificationRepository
}

// NewRepositories creates all repositories with the given database connection
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
