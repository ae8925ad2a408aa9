package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/MartinKoehl/OfficeBase/app/models"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/database"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/docstore"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/env"
)

// processCertificateArchiveJob renders a registered-office certificate for
// an approved subscription and uploads it to the document archive. The
// subscription was already approved and committed before this job existed:
// any failure here is retried by the queue and never touches the ledger.
func (q *Queue) processCertificateArchiveJob(ctx context.Context, job *Job) error {
	payload, err := CertificateArchivePayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid certificate payload: %w", err)
	}

	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database unavailable")
	}

	var sub models.Subscription
	if err := db.Preload("User").First(&sub, payload.SubscriptionID).Error; err != nil {
		return fmt.Errorf("subscription lookup failed for %d: %w", payload.SubscriptionID, err)
	}

	cfg, err := docstore.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.IsEnabled() {
		// Archive disabled; nothing to do.
		return nil
	}
	client, err := docstore.NewClient(cfg)
	if err != nil {
		return err
	}

	body := renderCertificate(&sub)
	key := cfg.CertificateObjectKey(sub.ID, time.Now())
	if err := client.Upload(ctx, key, []byte(body), "text/plain; charset=utf-8"); err != nil {
		return fmt.Errorf("certificate upload failed: %w", err)
	}
	return nil
}

func renderCertificate(sub *models.Subscription) string {
	officeAddress := env.GetEnv("OFFICE_ADDRESS", "OfficeBase, 1 Example Street")
	start := "-"
	end := "-"
	if sub.StartDate != nil {
		start = sub.StartDate.Format("2 January 2006")
	}
	if sub.EndDate != nil {
		end = sub.EndDate.Format("2 January 2006")
	}
	return fmt.Sprintf(
		"CERTIFICATE OF REGISTERED OFFICE SERVICE\n\n"+
			"Company:        %s\n"+
			"Company number: %s\n"+
			"Office address: %s\n"+
			"Service period: %s to %s\n\n"+
			"This certificate confirms that the company above is entitled to use\n"+
			"the office address as its registered office for the stated period.\n",
		sub.User.CompanyName, sub.User.CompanyNumber, officeAddress, start, end,
	)
}
