package apiv1

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/MartinKoehl/OfficeBase/app/repository"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/database"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/lifecycle"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/usercontext"
)

// APIServer implements the API-key-authenticated v1 endpoints used by the
// companion client. Authentication is enforced by the API key middleware
// attached in the router; handlers trust the resolved user context.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// GetSubscription returns the caller's subscription with its payment history.
func (s *APIServer) GetSubscription(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	repo := lifecycle.NewRepository(database.GetDB())
	sub, err := repo.GetSubscriptionByUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no subscription"})
		}
		log.Errorf("[APIv1] Subscription lookup for user %d failed: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}

	paymentRows, err := repo.ListPaymentsBySubscription(sub.ID)
	if err != nil {
		log.Errorf("[APIv1] Payment history for subscription %d failed: %v", sub.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}

	return c.JSON(fiber.Map{
		"id":                sub.ID,
		"status":            sub.Status,
		"start_date":        sub.StartDate,
		"end_date":          sub.EndDate,
		"next_payment_date": sub.NextPaymentDate,
		"payment_method":    sub.PaymentMethod,
		"retry_count":       sub.RetryCount,
		"payments":          paymentRows,
	})
}

// GetNotifications returns the caller's notifications, newest first.
func (s *APIServer) GetNotifications(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	notifRepo := repository.GetGlobalFactory().GetNotificationRepository()
	notifications, err := notifRepo.GetByUserID(userID, offset, limit)
	if err != nil {
		log.Errorf("[APIv1] Notification list for user %d failed: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	unread, err := notifRepo.CountUnread(userID)
	if err != nil {
		log.Errorf("[APIv1] Unread count for user %d failed: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// PostNotificationRead marks one of the caller's notifications as read.
func (s *APIServer) PostNotificationRead(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	notificationID, err := c.ParamsInt("id")
	if err != nil || notificationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid notification id"})
	}

	notifRepo := repository.GetGlobalFactory().GetNotificationRepository()
	notification, err := notifRepo.GetByIDForUser(uint(notificationID), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "notification not found"})
		}
		log.Errorf("[APIv1] Notification lookup %d failed: %v", notificationID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}

	if err := notification.MarkAsRead(database.GetDB()); err != nil {
		log.Errorf("[APIv1] Marking notification %d read failed: %v", notificationID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update failed"})
	}

	return c.JSON(fiber.Map{"id": notification.ID, "is_read": true})
}
