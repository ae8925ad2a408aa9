package docstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/MartinKoehl/OfficeBase/internal/pkg/env"
)

// Config holds document archive (S3) configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads document archive configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "eu-west-2"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnv("DOC_ARCHIVE_ENABLED", "false") == "true",
	}

	// Validate required fields if the archive is enabled
	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when the document archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when the document archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when the document archive is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if the document archive is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// CertificateObjectKey generates a standardized object key for a
// registered-office certificate.
func (c *Config) CertificateObjectKey(subscriptionID uint, at time.Time) string {
	// Format: certificates/YYYY/MM/subscription-ID.txt
	return fmt.Sprintf("certificates/%04d/%02d/subscription-%d.txt", at.Year(), int(at.Month()), subscriptionID)
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	return env.GetEnv("APP_ENV", "dev")
}
