package client

import (
	"context"

	"github.com/dmitrijs2005/ojtauth/internal/api"
	"github.com/dmitrijs2005/ojtauth/internal/models"
)

// Client is the credential store as seen by the auth state machine. Calls
// that return an *api.AuthResponse with tokens also install those tokens for
// later authenticated calls.
type Client interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	RequestOTP(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, code string) (*api.AuthResponse, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, req api.ResetPasswordRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
	Ping(ctx context.Context) (*api.PingResponse, error)

	Tokens() *models.TokenPair
	SetTokens(t *models.TokenPair)
}

// AdminClient covers the superadmin endpoints.
type AdminClient interface {
	ProvisionUser(ctx context.Context, req api.ProvisionRequest) (*models.User, error)
	ListLogs(ctx context.Context) ([]*models.SystemLog, error)
	ArchiveLogs(ctx context.Context) (*api.ArchiveResponse, error)
}
