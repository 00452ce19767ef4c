package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ojtauth/internal/models"
)

// Repository is the credential store's user table. Emails are compared
// lower-cased. The OTP methods are single statements so the database
// serializes a concurrent code overwrite against a verify attempt.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetOTP(ctx context.Context, userID, code string, expiresAt time.Time, purpose models.OTPPurpose) error
	ConsumeOTP(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.User, error)
	ConsumeOTPAndSetPassword(ctx context.Context, email, code, passwordHash string, now time.Time) (*models.User, error)
	RecordOTPFailure(ctx context.Context, email string, purpose models.OTPPurpose, maxAttempts int) (bool, error)
}
