package authflow

import "github.com/dmitrijs2005/ojtauth/internal/models"

// Step is where the client currently is in the sign-in flow.
type Step int

const (
	StepLoggedOut Step = iota
	StepLogin
	StepSignup
	StepOTPRequest
	StepOTPVerify
	StepForgotPassword
	StepResetPassword
	StepLoggedIn
)

var stepNames = map[Step]string{
	StepLoggedOut:      "LOGGED_OUT",
	StepLogin:          "LOGIN",
	StepSignup:         "SIGNUP",
	StepOTPRequest:     "OTP_REQUEST",
	StepOTPVerify:      "OTP_VERIFY",
	StepForgotPassword: "FORGOT_PASSWORD",
	StepResetPassword:  "RESET_PASSWORD",
	StepLoggedIn:       "LOGGED_IN",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// entry reports whether the user can navigate to s directly.
func (s Step) entry() bool {
	switch s {
	case StepLoggedOut, StepLogin, StepSignup, StepOTPRequest, StepForgotPassword:
		return true
	}
	return false
}

// OutcomeKind discriminates Outcome.
type OutcomeKind int

const (
	// Authenticated means the session now holds Outcome.User.
	Authenticated OutcomeKind = iota + 1
	// NeedsVerification means a code was sent to Outcome.Email and the
	// machine waits in OTP_VERIFY.
	NeedsVerification
	// CodeSent means a request was accepted; Outcome.Message is the generic
	// confirmation.
	CodeSent
	// SignedOut means the session was cleared.
	SignedOut
	// Failed means nothing changed; Outcome.Message is the text to display.
	Failed
)

// Outcome is the single result type of every transition.
type Outcome struct {
	Kind    OutcomeKind
	Step    Step
	User    *models.User
	Email   string
	Message string
	Err     error
}
