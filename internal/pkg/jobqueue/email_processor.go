package jobqueue

import (
	"fmt"

	"github.com/MartinKoehl/OfficeBase/app/models"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/database"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/mail"
)

// processEmailDispatchJob resolves the recipient and sends one email. The
// recipient address is looked up at send time so address changes between
// enqueue and dispatch are honored.
func (q *Queue) processEmailDispatchJob(job *Job) error {
	payload, err := EmailDispatchPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid email payload: %w", err)
	}

	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database unavailable")
	}

	var user models.User
	if err := db.First(&user, payload.UserID).Error; err != nil {
		return fmt.Errorf("recipient lookup failed for user %d: %w", payload.UserID, err)
	}

	return mail.SendMail(user.Email, payload.Subject, payload.Body)
}
