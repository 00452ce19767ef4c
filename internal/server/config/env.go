package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable the server reads.
const EnvPrefix = "OJT_"

// parseEnv loads .env when ENV=dev and then overlays OJT_* variables.
func parseEnv(c *Config) error {
	if os.Getenv("ENV") == "dev" {
		// a missing .env is fine in dev
		_ = godotenv.Load()
	}

	strs := map[string]*string{
		"HTTP_ADDR":               &c.HTTPAddr,
		"GRPC_HEALTH_ADDR":        &c.GRPCHealthAddr,
		"DATABASE_DSN":            &c.DatabaseDSN,
		"LOG_LEVEL":               &c.LogLevel,
		"SECRET_KEY":              &c.SecretKey,
		"SUPERADMIN_EMAIL":        &c.SuperAdminEmail,
		"COORDINATOR_DOMAIN":      &c.CoordinatorDomain,
		"SEED_ADMIN_PASSWORD":     &c.SeedAdminPassword,
		"NOTIFIER":                &c.Notifier,
		"NOTIFY_CHANNEL":          &c.NotifyChannel,
		"RABBITMQ_URL":            &c.RabbitMQURL,
		"PUBSUB_PROJECT_ID":       &c.PubSubProjectID,
		"PUBSUB_CREDENTIALS_FILE": &c.PubSubCredentialsFile,
		"ARCHIVE":                 &c.Archive,
		"ARCHIVE_BUCKET":          &c.ArchiveBucket,
		"ARCHIVE_REGION":          &c.ArchiveRegion,
		"ARCHIVE_ENDPOINT":        &c.ArchiveEndpoint,
		"ARCHIVE_ACCESS_KEY":      &c.ArchiveAccessKey,
		"ARCHIVE_SECRET_KEY":      &c.ArchiveSecretKey,
		"GCS_PROJECT_ID":          &c.GCSProjectID,
		"GCS_CREDENTIALS_FILE":    &c.GCSCredentialsFile,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ACCESS_TOKEN_TTL":  &c.AccessTokenValidityDuration,
		"REFRESH_TOKEN_TTL": &c.RefreshTokenValidityDuration,
		"OTP_TTL":           &c.OTPValidityDuration,
		"REQUEST_TIMEOUT":   &c.RequestTimeout,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
	}

	if v, ok := os.LookupEnv(EnvPrefix + "OTP_MAX_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sOTP_MAX_ATTEMPTS: %w", EnvPrefix, err)
		}
		c.OTPMaxAttempts = n
	}

	if v, ok := os.LookupEnv(EnvPrefix + "ARCHIVE_USE_SSL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sARCHIVE_USE_SSL: %w", EnvPrefix, err)
		}
		c.ArchiveUseSSL = b
	}

	return nil
}
