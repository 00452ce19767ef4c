package server

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/server/archive"
	"github.com/dmitrijs2005/ojtauth/internal/server/config"
	"github.com/dmitrijs2005/ojtauth/internal/server/notify"
)

// NewNotifyBackend builds the broker selected by cfg.Notifier.
func NewNotifyBackend(ctx context.Context, cfg *config.Config, logger logging.Logger) (notify.Backend, error) {
	switch cfg.Notifier {
	case "log":
		return notify.NewLogBackend(logger), nil
	case "rabbitmq":
		return notify.NewRabbitMQBackend(notify.RabbitMQConfig{URL: cfg.RabbitMQURL, QueueDurable: true, PrefetchCount: 10})
	case "pubsub":
		return notify.NewPubSubBackend(ctx, notify.PubSubConfig{
			ProjectID:          cfg.PubSubProjectID,
			CredentialsFile:    cfg.PubSubCredentialsFile,
			SubscriptionSuffix: "mailer",
		})
	}
	return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
}

// NewArchiveStore builds the object store selected by cfg.Archive. It
// returns a nil store for "none".
func NewArchiveStore(ctx context.Context, cfg *config.Config) (archive.Store, error) {
	switch cfg.Archive {
	case "none", "":
		return nil, nil
	case "s3":
		return archive.NewS3Store(ctx, archive.S3Config{
			Bucket:    cfg.ArchiveBucket,
			Region:    cfg.ArchiveRegion,
			Endpoint:  cfg.ArchiveEndpoint,
			AccessKey: cfg.ArchiveAccessKey,
			SecretKey: cfg.ArchiveSecretKey,
		})
	case "minio":
		return archive.NewMinioStore(archive.MinioConfig{
			Endpoint:  cfg.ArchiveEndpoint,
			AccessKey: cfg.ArchiveAccessKey,
			SecretKey: cfg.ArchiveSecretKey,
			Bucket:    cfg.ArchiveBucket,
			UseSSL:    cfg.ArchiveUseSSL,
		})
	case "gcs":
		return archive.NewGCSStore(ctx, archive.GCSConfig{
			Bucket:          cfg.ArchiveBucket,
			ProjectID:       cfg.GCSProjectID,
			CredentialsFile: cfg.GCSCredentialsFile,
		})
	}
	return nil, fmt.Errorf("unknown archive backend %q", cfg.Archive)
}
