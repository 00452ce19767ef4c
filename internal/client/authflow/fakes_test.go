package authflow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ojtauth/internal/api"
	"github.com/dmitrijs2005/ojtauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/ojtauth/internal/client/session"
	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/models"
)

// fakeClient answers from per-call functions. Unset functions fail the test.
type fakeClient struct {
	t *testing.T

	login      func(email, password string) (*api.AuthResponse, error)
	register   func(req api.RegisterRequest) (*api.AuthResponse, error)
	requestOTP func(email string) (string, error)
	verifyOTP  func(email, code string) (*api.AuthResponse, error)
	forgot     func(email string) (string, error)
	reset      func(req api.ResetPasswordRequest) (*api.AuthResponse, error)
	logout     func() error
	current    func() (*models.User, error)

	mu     sync.Mutex
	tokens *models.TokenPair
	calls  []string
}

func (f *fakeClient) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) install(res *api.AuthResponse) {
	if res != nil && res.Tokens != nil {
		f.SetTokens(res.Tokens)
	}
}

func (f *fakeClient) Login(_ context.Context, email, password string) (*api.AuthResponse, error) {
	f.record("login")
	require.NotNil(f.t, f.login, "unexpected Login")
	res, err := f.login(email, password)
	f.install(res)
	return res, err
}

func (f *fakeClient) Register(_ context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	f.record("register")
	require.NotNil(f.t, f.register, "unexpected Register")
	return f.register(req)
}

func (f *fakeClient) RequestOTP(_ context.Context, email string) (string, error) {
	f.record("otp_request")
	require.NotNil(f.t, f.requestOTP, "unexpected RequestOTP")
	return f.requestOTP(email)
}

func (f *fakeClient) VerifyOTP(_ context.Context, email, code string) (*api.AuthResponse, error) {
	f.record("otp_verify")
	require.NotNil(f.t, f.verifyOTP, "unexpected VerifyOTP")
	res, err := f.verifyOTP(email, code)
	f.install(res)
	return res, err
}

func (f *fakeClient) ForgotPassword(_ context.Context, email string) (string, error) {
	f.record("forgot")
	require.NotNil(f.t, f.forgot, "unexpected ForgotPassword")
	return f.forgot(email)
}

func (f *fakeClient) ResetPassword(_ context.Context, req api.ResetPasswordRequest) (*api.AuthResponse, error) {
	f.record("reset")
	require.NotNil(f.t, f.reset, "unexpected ResetPassword")
	res, err := f.reset(req)
	f.install(res)
	return res, err
}

func (f *fakeClient) Logout(context.Context) error {
	f.record("logout")
	f.SetTokens(nil)
	if f.logout == nil {
		return nil
	}
	return f.logout()
}

func (f *fakeClient) CurrentUser(context.Context) (*models.User, error) {
	f.record("current")
	require.NotNil(f.t, f.current, "unexpected CurrentUser")
	return f.current()
}

func (f *fakeClient) Ping(context.Context) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "online"}, nil
}

func (f *fakeClient) Tokens() *models.TokenPair {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens
}

func (f *fakeClient) SetTokens(t *models.TokenPair) {
	f.mu.Lock()
	f.tokens = t
	f.mu.Unlock()
}

type harness struct {
	client  *fakeClient
	repo    *metadata.SQLiteRepository
	session *session.Store
	m       *Machine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := metadata.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := metadata.NewSQLiteRepository(db)
	store := session.NewStore(repo, logging.Nop{})
	fc := &fakeClient{t: t}
	return &harness{client: fc, repo: repo, session: store, m: NewMachine(fc, store, logging.Nop{})}
}
