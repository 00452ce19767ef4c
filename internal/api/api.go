// Package api holds the JSON bodies exchanged between the credential store
// server and the client.
package api

import (
	"time"

	"github.com/dmitrijs2005/ojtauth/internal/models"
)

// Route paths.
const (
	PathLogin          = "/api/login"
	PathRegister       = "/api/register"
	PathOTPRequest     = "/api/otp/request"
	PathOTPVerify      = "/api/otp/verify"
	PathForgotPassword = "/api/password/forgot"
	PathResetPassword  = "/api/password/reset"
	PathRefresh        = "/api/token/refresh"
	PathLogout         = "/api/logout"
	PathUser           = "/api/user"
	PathPing           = "/api/ping"
	PathAdminUsers     = "/api/admin/users"
	PathAdminLogs      = "/api/admin/logs"
	PathArchiveLogs    = "/api/admin/logs/archive"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidCode        = "invalid_code"
	CodeUnauthorizedRole   = "unauthorized_role"
	CodeReservedEmail      = "reserved_email"
	CodeEmailTaken         = "email_taken"
	CodeValidation         = "validation"
	CodeTokenExpired       = "token_expired"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeBadRequest         = "bad_request"
	CodeArchiveDisabled    = "archive_disabled"
	CodeInternal           = "internal"
)

type ErrorResponse struct {
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Role                 string `json:"role,omitempty"`
	Institution          string `json:"institution,omitempty"`
	Batch                string `json:"batch,omitempty"`
	Term                 string `json:"term,omitempty"`
	InternID             string `json:"intern_id,omitempty"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResetPasswordRequest struct {
	Email                string `json:"email"`
	OTP                  string `json:"otp"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ProvisionRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	Institution string `json:"institution,omitempty"`
	Batch       string `json:"batch,omitempty"`
	Term        string `json:"term,omitempty"`
	InternID    string `json:"intern_id,omitempty"`
}

// AuthResponse is returned by every endpoint that can sign a user in.
// Either User and Tokens are set, or RequiresVerification is true.
type AuthResponse struct {
	User                 *models.User      `json:"user,omitempty"`
	Tokens               *models.TokenPair `json:"tokens,omitempty"`
	RequiresVerification bool              `json:"requires_verification,omitempty"`
	Email                string            `json:"email,omitempty"`
	Message              string            `json:"message,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type TokensResponse struct {
	Tokens *models.TokenPair `json:"tokens"`
}

type UserResponse struct {
	User *models.User `json:"user"`
}

const (
	AuthStatusGuest         = "guest"
	AuthStatusAuthenticated = "authenticated"
)

type PingResponse struct {
	Status     string    `json:"status"`
	AuthStatus string    `json:"auth_status"`
	Timestamp  time.Time `json:"timestamp"`
}

type ArchiveResponse struct {
	Key   string `json:"key"`
	URL   string `json:"url,omitempty"`
	Count int    `json:"count"`
}
