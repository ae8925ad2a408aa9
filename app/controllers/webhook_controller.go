package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/MartinKoehl/OfficeBase/internal/pkg/database"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/env"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/jobqueue"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/lifecycle"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/payments"
)

// GatewaySignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const GatewaySignatureHeader = "X-Gateway-Signature"

// HandleGatewayWebhook receives payment gateway events. The gateway
// redelivers on any non-2xx response, so the status code is the retry
// contract: 200 acknowledges (including deliberate drops), 401 rejects
// unauthenticated payloads, 500 requests redelivery.
func HandleGatewayWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get(GatewaySignatureHeader)

	processor := payments.NewProcessor(
		lifecycle.NewRepository(database.GetDB()),
		env.GetEnv("GATEWAY_WEBHOOK_SECRET", ""),
		jobqueue.GetManager(),
	)

	err := processor.Handle(c.Context(), payload, signature)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"received": true})
	case errors.Is(err, lifecycle.ErrAuthentication):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid webhook signature",
		})
	default:
		log.Errorf("[Webhook] Gateway event failed, requesting redelivery: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "temporary processing failure",
		})
	}
}
