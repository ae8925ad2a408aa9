package repository

import (
	"sync"

	"gorm.io/gorm"
)

// RepositoryFactory creates and manages repository instances
type RepositoryFactory struct {
	db    *gorm.DB
	repos *Repositories
	mu    sync.RWMutex
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(db *gorm.DB) *RepositoryFactory {
	return &RepositoryFactory{
		db: db,
	}
}

// GetRepositories returns the repositories, creating them if necessary
func (f *RepositoryFactory) GetRepositories() *Repositories {
	f.mu.RLock()
	if f.repos != nil {
		defer f.mu.RUnlock()
		return f.repos
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.repos == nil {
		f.repos = NewRepositories(f.db)
	}
	return f.repos
}

// GetUserRepository returns the user repository
func (f *RepositoryFactory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetNotificationRepository returns the notification repository
func (f *RepositoryFactory) GetNotificationRepository() NotificationRepository {
	return f.GetRepositories().Notification
}

var (
	globalFactory *RepositoryFactory
	globalMu      sync.RWMutex
)

// SetGlobalFactory sets the global repository factory instance
func SetGlobalFactory(factory *RepositoryFactory) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalFactory = factory
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *RepositoryFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}
