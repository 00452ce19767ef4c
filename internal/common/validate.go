package common

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

// ValidateEmail returns a message for a missing or malformed address, or "".
func ValidateEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "The email field is required."
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return "The email must be a valid email address."
	}
	return ""
}

// ValidateNewPassword checks length and confirmation for a password being set.
// Both register and reset use it, on the client before submitting and on the
// server again.
func ValidateNewPassword(v *ValidationError, password, confirmation string) {
	switch {
	case password == "":
		v.Add("password", "The password field is required.")
	case utf8.RuneCountInString(password) < MinPasswordLength:
		v.Add("password", fmt.Sprintf("The password must be at least %d characters.", MinPasswordLength))
	case len(password) > MaxPasswordBytes:
		v.Add("password", fmt.Sprintf("The password may not be greater than %d bytes.", MaxPasswordBytes))
	case password != confirmation:
		v.Add("password", "The password confirmation does not match.")
	}
}

// ValidOTPFormat reports whether code is exactly OTPLength ASCII digits.
func ValidOTPFormat(code string) bool {
	if len(code) != OTPLength {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
