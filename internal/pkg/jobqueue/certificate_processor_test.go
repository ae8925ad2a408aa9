package jobqueue

import (
	"strings"
	"testing"
	"time"

	"github.com/MartinKoehl/OfficeBase/app/models"
)

func TestRenderCertificate(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	sub := &models.Subscription{
		ID:        5,
		StartDate: &start,
		EndDate:   &end,
		User: models.User{
			CompanyName:   "Acme Widgets Ltd",
			CompanyNumber: "12345678",
		},
	}

	body := renderCertificate(sub)

	for _, want := range []string{
		"CERTIFICATE OF REGISTERED OFFICE SERVICE",
		"Acme Widgets Ltd",
		"12345678",
		"10 January 2026 to 10 January 2027",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("certificate missing %q:\n%s", want, body)
		}
	}
}

func TestRenderCertificateWithoutDates(t *testing.T) {
	sub := &models.Subscription{User: models.User{CompanyName: "Acme Ltd"}}

	body := renderCertificate(sub)
	if !strings.Contains(body, "- to -") {
		t.Fatalf("expected placeholder period, got:\n%s", body)
	}
}
