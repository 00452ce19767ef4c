package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ojtauth/internal/rbac"
)

func TestUser_PrincipalRoleNilSafe(t *testing.T) {
	var u *User
	assert.Equal(t, rbac.Role(""), u.PrincipalRole())
	assert.False(t, u.Verified())
	assert.False(t, rbac.NewService(nil).HasPermission(u, rbac.PermSubmitLogs))
}

func TestUser_HasPendingOTP(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	code := "012345"
	exp := now.Add(15 * time.Minute)

	u := &User{OTPCode: &code, OTPExpiresAt: &exp}
	assert.True(t, u.HasPendingOTP(now))
	assert.False(t, u.HasPendingOTP(exp))
	assert.False(t, u.HasPendingOTP(exp.Add(time.Millisecond)))

	u.OTPExpiresAt = nil
	assert.False(t, u.HasPendingOTP(now))
}

func TestUser_JSONHidesSecrets(t *testing.T) {
	code := "123456"
	u := User{ID: "1", Email: "a@b.c", Role: rbac.RoleStudent, PasswordHash: "hash", OTPCode: &code}

	b, err := json.Marshal(u)
	require.NoError(t, err)
	s := string(b)
	assert.NotContains(t, s, "hash")
	assert.NotContains(t, s, "123456")
	assert.Contains(t, s, `"role":"STUDENT"`)
}

func TestProfile_WithDefaults(t *testing.T) {
	p := Profile{Batch: "2027"}.WithDefaults()
	assert.Equal(t, "Elite Institute", p.Institution)
	assert.Equal(t, "2027", p.Batch)
	assert.Equal(t, "2", p.Term)
	assert.Equal(t, "dark", p.Theme)
}
