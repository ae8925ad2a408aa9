package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MartinKoehl/OfficeBase/app/models"
)

const (
	txMaxAttempts = 3
	txRetryDelay  = 50 * time.Millisecond
)

// Repository provides the ledger operations a lifecycle transition needs.
// All mutations for one transition run inside a single InTransaction call so
// they commit or roll back together.
type Repository interface {
	InTransaction(ctx context.Context, fn func(tx Repository) error) error

	GetSubscriptionForUpdate(id uint) (*models.Subscription, error)
	GetSubscriptionByUser(userID uint) (*models.Subscription, error)
	SaveSubscription(sub *models.Subscription) error
	ListActiveSubscriptionIDs() ([]uint, error)
	ListAdminUserIDs() ([]uint, error)

	CreateProcessedEventIfNew(event *models.ProcessedEvent) (bool, error)
	GetPaymentByIntentRef(ref string) (*models.Payment, error)
	CreatePayment(payment *models.Payment) error
	SavePayment(payment *models.Payment) error
	ListPaymentsBySubscription(subscriptionID uint) ([]models.Payment, error)

	CreateAdminAction(action *models.AdminAction) error
	ListAdminActionsBySubscription(subscriptionID uint) ([]models.AdminAction, error)
	CreateNotification(notification *models.Notification) error
	MarkReminderSentIfNew(subscriptionID uint, bucket int) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a lifecycle repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// InTransaction runs fn inside a database transaction. Deadlocks and lock
// wait timeouts are retried a bounded number of times; when the budget is
// exhausted the error wraps ErrConcurrencyConflict.
func (r *gormRepository) InTransaction(ctx context.Context, fn func(tx Repository) error) error {
	var err error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormRepository{db: tx})
		})
		if !isLockContention(err) {
			return err
		}
		time.Sleep(txRetryDelay * time.Duration(attempt+1))
	}
	return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
}

// isLockContention matches MySQL deadlock (1213) and lock wait timeout (1205).
func isLockContention(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}

func (r *gormRepository) GetSubscriptionForUpdate(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByUser(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) SaveSubscription(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) ListActiveSubscriptionIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Subscription{}).
		Where("status = ?", models.SubscriptionStatusActive).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *gormRepository) ListAdminUserIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.User{}).
		Where("role = ? AND status = ?", models.ROLE_ADMIN, models.STATUS_ACTIVE).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *gormRepository) CreateProcessedEventIfNew(event *models.ProcessedEvent) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) GetPaymentByIntentRef(ref string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("external_intent_ref = ?", ref).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormRepository) CreatePayment(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *gormRepository) SavePayment(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

func (r *gormRepository) ListPaymentsBySubscription(subscriptionID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").Find(&payments).Error
	return payments, err
}

func (r *gormRepository) CreateAdminAction(action *models.AdminAction) error {
	return r.db.Create(action).Error
}

func (r *gormRepository) ListAdminActionsBySubscription(subscriptionID uint) ([]models.AdminAction, error) {
	var actions []models.AdminAction
	err := r.db.Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").Find(&actions).Error
	return actions, err
}

func (r *gormRepository) CreateNotification(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

func (r *gormRepository) MarkReminderSentIfNew(subscriptionID uint, bucket int) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "subscription_id"},
			{Name: "bucket"},
		},
		DoNothing: true,
	}).Create(&models.RenewalReminder{SubscriptionID: subscriptionID, Bucket: bucket})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
