// Package refreshtokens stores the opaque refresh tokens issued alongside
// access tokens. Tokens are single use: refreshing deletes the old row and
// inserts a new one.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ojtauth/internal/models"
)

type Repository interface {
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete reports whether a row was removed. Deleting an absent token is
	// not an error.
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteExpired purges tokens that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
