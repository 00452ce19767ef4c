package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/ojtauth/internal/flagx"
	"github.com/dmitrijs2005/ojtauth/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Only keys present in
// the file override the current values.
type JsonConfig struct {
	HTTPAddr                     *string         `json:"http_addr"`
	GRPCHealthAddr               *string         `json:"grpc_health_addr"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	LogLevel                     *string         `json:"log_level"`
	SecretKey                    *string         `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	OTPValidityDuration          *timex.Duration `json:"otp_validity_duration"`
	OTPMaxAttempts               *int            `json:"otp_max_attempts"`
	RequestTimeout               *timex.Duration `json:"request_timeout"`
	SuperAdminEmail              *string         `json:"superadmin_email"`
	CoordinatorDomain            *string         `json:"coordinator_domain"`
	SeedAdminPassword            *string         `json:"seed_admin_password"`
	Notifier                     *string         `json:"notifier"`
	NotifyChannel                *string         `json:"notify_channel"`
	RabbitMQURL                  *string         `json:"rabbitmq_url"`
	PubSubProjectID              *string         `json:"pubsub_project_id"`
	PubSubCredentialsFile        *string         `json:"pubsub_credentials_file"`
	Archive                      *string         `json:"archive"`
	ArchiveBucket                *string         `json:"archive_bucket"`
	ArchiveRegion                *string         `json:"archive_region"`
	ArchiveEndpoint              *string         `json:"archive_endpoint"`
	ArchiveAccessKey             *string         `json:"archive_access_key"`
	ArchiveSecretKey             *string         `json:"archive_secret_key"`
	ArchiveUseSSL                *bool           `json:"archive_use_ssl"`
	GCSProjectID                 *string         `json:"gcs_project_id"`
	GCSCredentialsFile           *string         `json:"gcs_credentials_file"`
}

// parseJson overlays the file named by -c/-config (or $OJT_CONFIG).
func parseJson(config *Config, args []string) error {
	path := flagx.JSONConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.OTPValidityDuration, c.OTPValidityDuration)
	if c.OTPMaxAttempts != nil {
		config.OTPMaxAttempts = *c.OTPMaxAttempts
	}
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setString(&config.SuperAdminEmail, c.SuperAdminEmail)
	setString(&config.CoordinatorDomain, c.CoordinatorDomain)
	setString(&config.SeedAdminPassword, c.SeedAdminPassword)
	setString(&config.Notifier, c.Notifier)
	setString(&config.NotifyChannel, c.NotifyChannel)
	setString(&config.RabbitMQURL, c.RabbitMQURL)
	setString(&config.PubSubProjectID, c.PubSubProjectID)
	setString(&config.PubSubCredentialsFile, c.PubSubCredentialsFile)
	setString(&config.Archive, c.Archive)
	setString(&config.ArchiveBucket, c.ArchiveBucket)
	setString(&config.ArchiveRegion, c.ArchiveRegion)
	setString(&config.ArchiveEndpoint, c.ArchiveEndpoint)
	setString(&config.ArchiveAccessKey, c.ArchiveAccessKey)
	setString(&config.ArchiveSecretKey, c.ArchiveSecretKey)
	if c.ArchiveUseSSL != nil {
		config.ArchiveUseSSL = *c.ArchiveUseSSL
	}
	setString(&config.GCSProjectID, c.GCSProjectID)
	setString(&config.GCSCredentialsFile, c.GCSCredentialsFile)

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
