package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ojtauth/internal/client/authflow"
	"github.com/dmitrijs2005/ojtauth/internal/common"
)

// getSimpleText, getOptional and getPassword are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getOptional   = GetOptional
	getPassword   = GetPassword
)

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

func (a *App) askOptional(prompt string) (string, error) {
	return getOptional(a.reader, prompt, a.out)
}

// askPassword reads a password. The string copy is what the HTTP body needs;
// the terminal buffer is wiped.
func (a *App) askPassword(prompt string) (string, error) {
	pw, err := getPassword(a.out, prompt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// report prints an outcome and returns its error.
func (a *App) report(out authflow.Outcome) error {
	switch out.Kind {
	case authflow.Authenticated:
		printlnFn(fmt.Sprintf("Welcome, %s (%s).", out.User.Name, out.User.Role))
	case authflow.NeedsVerification:
		if out.Message != "" {
			printlnFn(out.Message)
		}
		printlnFn(fmt.Sprintf("A code was sent to %s. Type 'verify' to enter it.", out.Email))
	case authflow.CodeSent:
		printlnFn(out.Message)
		switch out.Step {
		case authflow.StepOTPVerify:
			printlnFn("Type 'verify' to enter the code.")
		case authflow.StepResetPassword:
			printlnFn("Type 'reset' to choose a new password.")
		}
	case authflow.SignedOut:
		printlnFn(out.Message)
	case authflow.Failed:
		printlnFn("Error:", out.Message)
	}
	return out.Err
}

func (a *App) Login(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	password, err := a.askPassword("Enter password")
	if err != nil {
		return err
	}
	return a.report(a.flow.Login(ctx, email, password))
}

func (a *App) Register(ctx context.Context) error {
	var in authflow.SignupInput
	var err error
	if in.Name, err = a.ask("Enter full name"); err != nil {
		return err
	}
	if in.Email, err = a.ask("Enter email"); err != nil {
		return err
	}
	if in.Password, err = a.askPassword("Enter password"); err != nil {
		return err
	}
	if in.PasswordConfirmation, err = a.askPassword("Confirm password"); err != nil {
		return err
	}
	if in.Institution, err = a.askOptional("Institution"); err != nil {
		return err
	}
	if in.Batch, err = a.askOptional("Batch"); err != nil {
		return err
	}
	if in.Term, err = a.askOptional("Term"); err != nil {
		return err
	}
	if in.InternID, err = a.askOptional("Intern ID"); err != nil {
		return err
	}
	return a.report(a.flow.Register(ctx, in))
}

// RequestCode asks for a login code.
func (a *App) RequestCode(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	return a.report(a.flow.RequestOTP(ctx, email))
}

func (a *App) Verify(ctx context.Context) error {
	if a.flow.Step() != authflow.StepOTPVerify {
		printlnFn("No code pending. Use 'otp' or 'login' first.")
		return common.ErrInvalidStep
	}
	code, err := a.ask(fmt.Sprintf("Enter the 6-digit code sent to %s", a.flow.PendingEmail()))
	if err != nil {
		return err
	}
	return a.report(a.flow.VerifyOTP(ctx, "", code))
}

func (a *App) Forgot(ctx context.Context) error {
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	return a.report(a.flow.ForgotPassword(ctx, email))
}

func (a *App) Reset(ctx context.Context) error {
	if a.flow.Step() != authflow.StepResetPassword {
		printlnFn("No reset pending. Use 'forgot' first.")
		return common.ErrInvalidStep
	}
	var in authflow.ResetInput
	var err error
	if in.Code, err = a.ask(fmt.Sprintf("Enter the 6-digit code sent to %s", a.flow.PendingEmail())); err != nil {
		return err
	}
	if in.Password, err = a.askPassword("Enter new password"); err != nil {
		return err
	}
	if in.PasswordConfirmation, err = a.askPassword("Confirm new password"); err != nil {
		return err
	}
	return a.report(a.flow.ResetPassword(ctx, in))
}

// Back abandons the current step. A request still in flight is discarded.
func (a *App) Back(context.Context) error {
	return a.flow.Goto(authflow.StepLoggedOut)
}

func (a *App) Logout(ctx context.Context) error {
	return a.report(a.flow.Logout(ctx))
}
