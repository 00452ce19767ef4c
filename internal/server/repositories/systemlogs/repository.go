// Package systemlogs stores the audit trail of authentication events.
package systemlogs

import (
	"context"

	"github.com/dmitrijs2005/ojtauth/internal/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.SystemLog) error
	// ListRecent returns at most limit rows, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.SystemLog, error)
}
