package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.Empty(t, ValidateEmail("student@uni.edu"))
	assert.NotEmpty(t, ValidateEmail(""))
	assert.NotEmpty(t, ValidateEmail("   "))
	assert.NotEmpty(t, ValidateEmail("no-at-sign"))
	assert.NotEmpty(t, ValidateEmail("Name <a@b.c>"))
}

func TestValidateNewPassword(t *testing.T) {
	tests := []struct {
		name         string
		password     string
		confirmation string
		wantMsg      string
	}{
		{"ok", "password123", "password123", ""},
		{"missing", "", "", "The password field is required."},
		{"short", "short", "short", "The password must be at least 8 characters."},
		{"exactly eight", "12345678", "12345678", ""},
		{"mismatch", "password123", "password124", "The password confirmation does not match."},
		{"too long", strings.Repeat("x", 73), strings.Repeat("x", 73), "The password may not be greater than 72 bytes."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &ValidationError{}
			ValidateNewPassword(v, tt.password, tt.confirmation)
			assert.Equal(t, tt.wantMsg, v.First())
		})
	}
}

func TestValidOTPFormat(t *testing.T) {
	assert.True(t, ValidOTPFormat("012345"))
	assert.False(t, ValidOTPFormat("12345"))
	assert.False(t, ValidOTPFormat("1234567"))
	assert.False(t, ValidOTPFormat("12a456"))
	assert.False(t, ValidOTPFormat("１２３４５６"))
}
