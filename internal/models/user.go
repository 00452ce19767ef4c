// Package models defines the records shared by the server and the client.
package models

import (
	"time"

	"github.com/dmitrijs2005/ojtauth/internal/rbac"
)

// OTPPurpose tags a one-time code with the flow it was issued for.
type OTPPurpose string

const (
	OTPPurposeVerify OTPPurpose = "verify"
	OTPPurposeReset  OTPPurpose = "reset"
)

// User is the identity and authorization record. Secret columns never leave
// the server in JSON.
type User struct {
	ID              string      `json:"id"`
	Email           string      `json:"email"`
	Name            string      `json:"name"`
	Role            rbac.Role   `json:"role"`
	PasswordHash    string      `json:"-"`
	EmailVerifiedAt *time.Time  `json:"email_verified_at"`
	OTPCode         *string     `json:"-"`
	OTPExpiresAt    *time.Time  `json:"-"`
	OTPPurpose      *OTPPurpose `json:"-"`
	InternID        *string     `json:"intern_id,omitempty"`
	Profile         *Profile    `json:"profile,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// PrincipalRole lets a *User be passed to the rbac service. A nil user has
// no role.
func (u *User) PrincipalRole() rbac.Role {
	if u == nil {
		return ""
	}
	return u.Role
}

func (u *User) Verified() bool {
	return u != nil && u.EmailVerifiedAt != nil
}

// HasPendingOTP reports whether an unexpired code exists at now. An expired
// code counts as absent even before it is purged.
func (u *User) HasPendingOTP(now time.Time) bool {
	if u == nil || u.OTPCode == nil || u.OTPExpiresAt == nil {
		return false
	}
	return now.Before(*u.OTPExpiresAt)
}
