package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/MartinKoehl/OfficeBase/app/models"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/adminactions"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/database"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/jobqueue"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/lifecycle"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/usercontext"
)

type adminActionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

// HandleAdminSubscriptionAction applies one lifecycle command to a
// subscription on behalf of the authenticated admin.
func HandleAdminSubscriptionAction(c *fiber.Ctx) error {
	subscriptionID, err := c.ParamsInt("id")
	if err != nil || subscriptionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid subscription id"})
	}

	var req adminActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	processor := adminactions.NewProcessor(
		lifecycle.NewRepository(database.GetDB()),
		jobqueue.GetManager(),
	)

	actorID := usercontext.GetUserID(c)
	newStatus, err := processor.Apply(c.Context(), actorID, uint(subscriptionID), adminactions.Command{
		Type:   req.Action,
		Reason: req.Reason,
		Notes:  req.Notes,
	})
	switch {
	case err == nil:
		return c.JSON(fiber.Map{
			"subscription_id": subscriptionID,
			"status":          newStatus,
		})
	case errors.Is(err, adminactions.ErrUnknownAction):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, adminactions.ErrInvalidForState):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "subscription not found"})
	case errors.Is(err, lifecycle.ErrConcurrencyConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "subscription is busy, retry the action"})
	default:
		log.Errorf("[Admin] Action %s on subscription %d failed: %v", req.Action, subscriptionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "action failed"})
	}
}

// HandleAdminSubscriptionShow returns one subscription with its audit trail
// and payment history.
func HandleAdminSubscriptionShow(c *fiber.Ctx) error {
	subscriptionID, err := c.ParamsInt("id")
	if err != nil || subscriptionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid subscription id"})
	}

	db := database.GetDB()

	var sub models.Subscription
	if err := db.Preload("User").First(&sub, subscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "subscription not found"})
		}
		log.Errorf("[Admin] Loading subscription %d failed: %v", subscriptionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}

	repo := lifecycle.NewRepository(db)
	actions, err := repo.ListAdminActionsBySubscription(sub.ID)
	if err != nil {
		log.Errorf("[Admin] Loading audit trail for subscription %d failed: %v", sub.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	paymentRows, err := repo.ListPaymentsBySubscription(sub.ID)
	if err != nil {
		log.Errorf("[Admin] Loading payments for subscription %d failed: %v", sub.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}

	// Password/API key hashes never leave the server.
	sub.User.Password = ""
	sub.User.APIKeyHash = ""

	return c.JSON(fiber.Map{
		"subscription": sub,
		"audit_trail":  actions,
		"payments":     paymentRows,
	})
}
