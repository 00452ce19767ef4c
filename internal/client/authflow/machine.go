// Package authflow drives the sign-in flow of the client: password login,
// signup, one-time code request and verification, password reset, logout and
// session restore.
//
// Only one request runs at a time; a second submission while one is in flight
// fails with common.ErrBusy. Navigating away, logging out or a session drop
// advances an epoch, and a response that belongs to an older epoch is
// discarded with common.ErrStaleResponse instead of being applied.
package authflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dmitrijs2005/ojtauth/internal/api"
	"github.com/dmitrijs2005/ojtauth/internal/client/client"
	"github.com/dmitrijs2005/ojtauth/internal/client/session"
	"github.com/dmitrijs2005/ojtauth/internal/common"
	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/models"
)

const msgLoggedOut = "Logged out."

type Machine struct {
	client  client.Client
	session *session.Store
	logger  logging.Logger

	mu       sync.Mutex
	step     Step
	email    string
	epoch    uint64
	inflight bool
}

func NewMachine(c client.Client, s *session.Store, logger logging.Logger) *Machine {
	m := &Machine{client: c, session: s, logger: logger.With("module", "authflow")}
	if s.CurrentUser() != nil {
		m.step = StepLoggedIn
	}
	return m
}

func (m *Machine) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// PendingEmail is the address a code was last sent to, if any.
func (m *Machine) PendingEmail() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.email
}

// Busy reports whether a request is in flight.
func (m *Machine) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight
}

// CurrentUser is nil unless the machine is signed in, even when a cached
// record is loaded but not yet confirmed.
func (m *Machine) CurrentUser() *models.User {
	if m.Step() != StepLoggedIn {
		return nil
	}
	return m.session.CurrentUser()
}

// Goto navigates to an entry step. Any request still in flight becomes stale.
func (m *Machine) Goto(step Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !step.entry() || m.step == StepLoggedIn {
		return common.ErrInvalidStep
	}
	m.advance()
	m.step = step
	return nil
}

// advance invalidates in-flight work. Callers hold mu.
func (m *Machine) advance() {
	m.epoch++
	m.inflight = false
}

// begin claims the request slot if the machine is in one of the allowed
// steps, and returns the epoch the response must match.
func (m *Machine) begin(allowed func(Step) bool) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight {
		return 0, common.ErrBusy
	}
	if !allowed(m.step) {
		return 0, common.ErrInvalidStep
	}
	m.inflight = true
	return m.epoch, nil
}

// finish releases the slot and runs apply under the lock when epoch is still
// current. A stale response is dropped.
func (m *Machine) finish(epoch uint64, apply func() Outcome) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return failed(m.step, common.ErrStaleResponse)
	}
	m.inflight = false
	return apply()
}

func preAuth(s Step) bool { return s != StepLoggedIn }

func only(steps ...Step) func(Step) bool {
	return func(s Step) bool {
		for _, st := range steps {
			if s == st {
				return true
			}
		}
		return false
	}
}

// Login signs in with a password. An unverified student gets
// NeedsVerification and the machine moves to OTP_VERIFY.
func (m *Machine) Login(ctx context.Context, email, password string) Outcome {
	email = strings.TrimSpace(email)
	v := &common.ValidationError{}
	if msg := common.ValidateEmail(email); msg != "" {
		v.Add("email", msg)
	}
	if password == "" {
		v.Add("password", "The password field is required.")
	}
	if !v.Empty() {
		return failed(m.Step(), v)
	}

	epoch, err := m.begin(preAuth)
	if err != nil {
		return failed(m.Step(), err)
	}
	res, err := m.client.Login(ctx, email, password)
	return m.settleAuth(ctx, epoch, StepLogin, res, err)
}

// SignupInput is the public registration form.
type SignupInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
	Institution          string
	Batch                string
	Term                 string
	InternID             string
}

// Register creates a student account and moves to OTP_VERIFY.
func (m *Machine) Register(ctx context.Context, in SignupInput) Outcome {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	v := &common.ValidationError{}
	if in.Name == "" {
		v.Add("name", "The name field is required.")
	}
	if msg := common.ValidateEmail(in.Email); msg != "" {
		v.Add("email", msg)
	}
	common.ValidateNewPassword(v, in.Password, in.PasswordConfirmation)
	if !v.Empty() {
		return failed(m.Step(), v)
	}

	epoch, err := m.begin(preAuth)
	if err != nil {
		return failed(m.Step(), err)
	}
	res, err := m.client.Register(ctx, api.RegisterRequest{
		Name:                 in.Name,
		Email:                in.Email,
		Password:             in.Password,
		PasswordConfirmation: in.PasswordConfirmation,
		Institution:          in.Institution,
		Batch:                in.Batch,
		Term:                 in.Term,
		InternID:             in.InternID,
	})
	return m.settleAuth(ctx, epoch, StepSignup, res, err)
}

// RequestOTP asks for a login code. The answer is the same whether or not the
// account exists; the machine moves to OTP_VERIFY either way.
func (m *Machine) RequestOTP(ctx context.Context, email string) Outcome {
	return m.requestCode(ctx, email, StepOTPRequest, StepOTPVerify, m.client.RequestOTP)
}

// ForgotPassword asks for a reset code and moves to RESET_PASSWORD.
func (m *Machine) ForgotPassword(ctx context.Context, email string) Outcome {
	return m.requestCode(ctx, email, StepForgotPassword, StepResetPassword, m.client.ForgotPassword)
}

func (m *Machine) requestCode(ctx context.Context, email string, from, to Step, call func(context.Context, string) (string, error)) Outcome {
	email = strings.TrimSpace(email)
	if msg := common.ValidateEmail(email); msg != "" {
		return failed(m.Step(), common.NewValidationError("email", msg))
	}

	epoch, err := m.begin(preAuth)
	if err != nil {
		return failed(m.Step(), err)
	}
	msg, err := call(ctx, email)
	return m.finish(epoch, func() Outcome {
		if err != nil {
			m.step = from
			return failed(from, err)
		}
		m.step = to
		m.email = email
		return Outcome{Kind: CodeSent, Step: to, Email: email, Message: msg}
	})
}

// VerifyOTP submits a login code. An empty email means the pending one.
func (m *Machine) VerifyOTP(ctx context.Context, email, code string) Outcome {
	email = m.emailOrPending(email)
	v := &common.ValidationError{}
	if msg := common.ValidateEmail(email); msg != "" {
		v.Add("email", msg)
	}
	if !common.ValidOTPFormat(code) {
		v.Add("otp", "The access code must be 6 digits.")
	}
	if !v.Empty() {
		return failed(m.Step(), v)
	}

	epoch, err := m.begin(only(StepOTPVerify))
	if err != nil {
		return failed(m.Step(), err)
	}
	res, err := m.client.VerifyOTP(ctx, email, code)
	return m.settleAuth(ctx, epoch, StepOTPVerify, res, err)
}

// ResetInput is the reset form. An empty Email means the pending one.
type ResetInput struct {
	Email                string
	Code                 string
	Password             string
	PasswordConfirmation string
}

// ResetPassword sets a new password with a reset code and signs in.
func (m *Machine) ResetPassword(ctx context.Context, in ResetInput) Outcome {
	in.Email = m.emailOrPending(in.Email)
	v := &common.ValidationError{}
	if msg := common.ValidateEmail(in.Email); msg != "" {
		v.Add("email", msg)
	}
	if !common.ValidOTPFormat(in.Code) {
		v.Add("otp", "The access code must be 6 digits.")
	}
	common.ValidateNewPassword(v, in.Password, in.PasswordConfirmation)
	if !v.Empty() {
		return failed(m.Step(), v)
	}

	epoch, err := m.begin(only(StepResetPassword))
	if err != nil {
		return failed(m.Step(), err)
	}
	res, err := m.client.ResetPassword(ctx, api.ResetPasswordRequest{
		Email:                in.Email,
		OTP:                  in.Code,
		Password:             in.Password,
		PasswordConfirmation: in.PasswordConfirmation,
	})
	return m.settleAuth(ctx, epoch, StepResetPassword, res, err)
}

func (m *Machine) emailOrPending(email string) string {
	if email = strings.TrimSpace(email); email != "" {
		return email
	}
	return m.PendingEmail()
}

// settleAuth applies a sign-in response. from is the step to stay in on
// failure.
func (m *Machine) settleAuth(ctx context.Context, epoch uint64, from Step, res *api.AuthResponse, err error) Outcome {
	out := m.finish(epoch, func() Outcome {
		if err != nil {
			m.step = from
			return failed(from, err)
		}
		if res.RequiresVerification || res.User == nil || res.Tokens == nil {
			email := res.Email
			if email == "" {
				email = m.email
			}
			m.step = StepOTPVerify
			m.email = email
			return Outcome{Kind: NeedsVerification, Step: StepOTPVerify, Email: email, Message: res.Message}
		}

		if serr := m.session.SetCurrentUser(ctx, res.User, res.Tokens); serr != nil {
			m.logger.Error(ctx, "cannot save session", "error", serr)
			m.client.SetTokens(nil)
			m.step = from
			return failed(from, common.ErrorInternal)
		}
		m.step = StepLoggedIn
		m.email = ""
		m.advance()
		return Outcome{Kind: Authenticated, Step: StepLoggedIn, User: res.User}
	})

	// The client installed whatever tokens came back. When the response was
	// not applied, put back the ones that belong to the current session.
	if out.Kind == Failed && res != nil && res.Tokens != nil {
		m.client.SetTokens(m.session.Tokens())
	}
	return out
}

// Logout always ends with an empty session. Remote revocation is best effort.
func (m *Machine) Logout(ctx context.Context) Outcome {
	m.mu.Lock()
	m.advance()
	m.step = StepLoggedOut
	m.email = ""
	m.mu.Unlock()

	if err := m.client.Logout(ctx); err != nil {
		m.logger.Warn(ctx, "remote logout failed", "error", err)
	}
	m.client.SetTokens(nil)
	if err := m.session.Clear(ctx); err != nil {
		m.logger.Warn(ctx, "cannot clear session cache", "error", err)
	}
	return Outcome{Kind: SignedOut, Step: StepLoggedOut, Message: msgLoggedOut}
}

// Restore rehydrates the cached session and confirms it with the server. It
// returns the signed-in user, or nil. Failures are logged, never returned.
func (m *Machine) Restore(ctx context.Context) *models.User {
	rec, err := m.session.Load(ctx)
	if err != nil {
		m.logger.Warn(ctx, "cannot read session cache", "error", err)
	}
	if rec == nil || rec.Tokens == nil {
		m.dropLocal(ctx, rec != nil)
		return nil
	}

	epoch, err := m.begin(func(Step) bool { return true })
	if err != nil {
		return nil
	}
	m.client.SetTokens(rec.Tokens)
	user, err := m.client.CurrentUser(ctx)

	out := m.finish(epoch, func() Outcome {
		if err != nil {
			return failed(StepLoggedOut, err)
		}
		if serr := m.session.SetCurrentUser(ctx, user, m.client.Tokens()); serr != nil {
			return failed(StepLoggedOut, serr)
		}
		m.step = StepLoggedIn
		return Outcome{Kind: Authenticated, Step: StepLoggedIn, User: user}
	})
	if out.Kind == Authenticated {
		return out.User
	}
	if errors.Is(out.Err, common.ErrStaleResponse) {
		return nil
	}

	m.logger.Info(ctx, "session not restored", "error", out.Err)
	// Offline is not a verdict on the session; keep the cache for next start.
	m.dropLocal(ctx, !errors.Is(out.Err, common.ErrTransport))
	return nil
}

func (m *Machine) dropLocal(ctx context.Context, clearCache bool) {
	m.mu.Lock()
	m.step = StepLoggedOut
	m.mu.Unlock()
	m.client.SetTokens(nil)
	if !clearCache {
		m.session.Forget()
		return
	}
	if err := m.session.Clear(ctx); err != nil {
		m.logger.Warn(ctx, "cannot clear session cache", "error", err)
	}
}

// HandleTokens is the client's token listener. A refreshed pair is written
// through; nil means the server rejected the session and the user is signed
// out locally.
func (m *Machine) HandleTokens(tokens *models.TokenPair) {
	ctx := context.Background()
	if tokens != nil {
		if err := m.session.UpdateTokens(ctx, tokens); err != nil {
			m.logger.Warn(ctx, "cannot save refreshed tokens", "error", err)
		}
		return
	}

	m.mu.Lock()
	m.advance()
	m.step = StepLoggedOut
	m.email = ""
	m.mu.Unlock()
	if err := m.session.Clear(ctx); err != nil {
		m.logger.Warn(ctx, "cannot clear session cache", "error", err)
	}
}

func failed(step Step, err error) Outcome {
	return Outcome{Kind: Failed, Step: step, Message: Message(err), Err: err}
}

// Message turns any error into the one line shown to the user.
func Message(err error) string {
	var v *common.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &v):
		return v.Error()
	case errors.Is(err, common.ErrTransport):
		return common.ErrTransport.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrTransport.Error()
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	for _, known := range []error{
		common.ErrBusy, common.ErrStaleResponse, common.ErrInvalidStep,
		common.ErrSessionExpired, common.ErrInvalidCredentials, common.ErrInvalidOrExpiredCode,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "Something went wrong. Please try again."
}
