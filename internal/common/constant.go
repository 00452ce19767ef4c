// Package common contains shared constants and sentinel errors used across
// the ojtauth client and server.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on API calls.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme is the authorization scheme prefix for access tokens.
	BearerScheme = "Bearer"

	// OTPLength is the fixed width of one-time codes.
	OTPLength = 6

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8

	// SessionCacheKey is the namespace under which the client persists the
	// current session record.
	SessionCacheKey = "ojt_auth_user"
)
