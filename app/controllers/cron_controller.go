package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/MartinKoehl/OfficeBase/internal/pkg/database"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/jobqueue"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/lifecycle"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/renewal"
)

// HandleRenewalSweep runs one renewal sweep and returns the report. The
// route is guarded by the cron shared-secret middleware; an optional as_of
// query parameter (RFC3339) overrides the sweep reference time for
// backfills and tests.
func HandleRenewalSweep(c *fiber.Ctx) error {
	asOf := time.Now().UTC()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "as_of must be RFC3339",
			})
		}
		asOf = parsed.UTC()
	}

	scheduler := renewal.NewScheduler(
		lifecycle.NewRepository(database.GetDB()),
		jobqueue.GetManager(),
	)

	report, err := scheduler.Sweep(c.Context(), asOf)
	if err != nil {
		log.Errorf("[Cron] Renewal sweep failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "sweep failed",
		})
	}

	log.Infof("[Cron] Renewal sweep done: scanned=%d reminders=%d expired=%d errors=%d",
		report.Scanned, report.RemindersSent, report.Expired, report.Errors)
	return c.JSON(report)
}
