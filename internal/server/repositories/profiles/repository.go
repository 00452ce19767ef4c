// Package profiles stores the personal data attached to a user.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/ojtauth/internal/models"
)

type Repository interface {
	Upsert(ctx context.Context, p *models.Profile) error
	Get(ctx context.Context, userID string) (*models.Profile, error)
}
