package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ojtauth/internal/api"
	"github.com/dmitrijs2005/ojtauth/internal/client/authflow"
	"github.com/dmitrijs2005/ojtauth/internal/common"
	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/models"
	"github.com/dmitrijs2005/ojtauth/internal/rbac"
)

type fakeFlow struct {
	step    authflow.Step
	email   string
	user    *models.User
	outcome authflow.Outcome

	gotEmail, gotPassword, gotCode string
	gotSignup                      authflow.SignupInput
	gotReset                       authflow.ResetInput
	logouts                        int
}

func (f *fakeFlow) Step() authflow.Step       { return f.step }
func (f *fakeFlow) PendingEmail() string      { return f.email }
func (f *fakeFlow) CurrentUser() *models.User { return f.user }
func (f *fakeFlow) Goto(s authflow.Step) error {
	f.step = s
	return nil
}
func (f *fakeFlow) Login(_ context.Context, email, password string) authflow.Outcome {
	f.gotEmail, f.gotPassword = email, password
	return f.outcome
}
func (f *fakeFlow) Register(_ context.Context, in authflow.SignupInput) authflow.Outcome {
	f.gotSignup = in
	return f.outcome
}
func (f *fakeFlow) RequestOTP(_ context.Context, email string) authflow.Outcome {
	f.gotEmail = email
	return f.outcome
}
func (f *fakeFlow) VerifyOTP(_ context.Context, email, code string) authflow.Outcome {
	f.gotEmail, f.gotCode = email, code
	return f.outcome
}
func (f *fakeFlow) ForgotPassword(_ context.Context, email string) authflow.Outcome {
	f.gotEmail = email
	return f.outcome
}
func (f *fakeFlow) ResetPassword(_ context.Context, in authflow.ResetInput) authflow.Outcome {
	f.gotReset = in
	return f.outcome
}
func (f *fakeFlow) Logout(context.Context) authflow.Outcome {
	f.logouts++
	f.user = nil
	return authflow.Outcome{Kind: authflow.SignedOut, Message: "Logged out."}
}
func (f *fakeFlow) Restore(context.Context) *models.User { return f.user }

type fakeAdmin struct {
	provisioned api.ProvisionRequest
	err         error
	logs        []*models.SystemLog
}

func (f *fakeAdmin) ProvisionUser(_ context.Context, req api.ProvisionRequest) (*models.User, error) {
	f.provisioned = req
	if f.err != nil {
		return nil, f.err
	}
	role, _ := rbac.ParseRole(req.Role)
	return &models.User{Email: req.Email, Role: role}, nil
}

func (f *fakeAdmin) ListLogs(context.Context) ([]*models.SystemLog, error) { return f.logs, f.err }

func (f *fakeAdmin) ArchiveLogs(context.Context) (*api.ArchiveResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &api.ArchiveResponse{Key: "system-logs/x.json", Count: len(f.logs)}, nil
}

type fakeProber struct{ err error }

func (p fakeProber) Check(context.Context) error { return p.err }

// stubInputs answers text prompts from texts and password prompts from
// passwords, in order.
func stubInputs(t *testing.T, texts []string, passwords ...string) {
	t.Helper()
	origST, origOpt, origGP := getSimpleText, getOptional, getPassword
	next := func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(texts) == 0 {
			return "", io.EOF
		}
		v := texts[0]
		texts = texts[1:]
		return v, nil
	}
	getSimpleText, getOptional = next, next
	getPassword = func(io.Writer, string) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, io.EOF
		}
		v := passwords[0]
		passwords = passwords[1:]
		return []byte(v), nil
	}
	t.Cleanup(func() {
		getSimpleText, getOptional, getPassword = origST, origOpt, origGP
	})
}

func newTestApp(f *fakeFlow, admin *fakeAdmin) *App {
	return &App{
		flow:   f,
		rbac:   rbac.NewService(rbac.DefaultResolver()),
		admin:  admin,
		health: fakeProber{},
		logger: logging.Nop{},
		out:    io.Discard,
	}
}

var (
	superAdmin = &models.User{Name: "Root", Email: "admin@superadmin.myr", Role: rbac.RoleSuperAdmin}
	student    = &models.User{Name: "Ann", Email: "ann@school.edu", Role: rbac.RoleStudent}
)

func TestApp_Login(t *testing.T) {
	out := captureOutput(t)
	f := &fakeFlow{outcome: authflow.Outcome{Kind: authflow.Authenticated, User: student}}
	a := newTestApp(f, &fakeAdmin{})
	stubInputs(t, []string{"ann@school.edu"}, "secret123")

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "ann@school.edu", f.gotEmail)
	assert.Equal(t, "secret123", f.gotPassword)
	assert.Contains(t, *out, "Welcome, Ann (STUDENT).")
}

func TestApp_LoginFailurePrintsMessage(t *testing.T) {
	out := captureOutput(t)
	f := &fakeFlow{outcome: authflow.Outcome{Kind: authflow.Failed, Message: "invalid email or password", Err: common.ErrInvalidCredentials}}
	a := newTestApp(f, &fakeAdmin{})
	stubInputs(t, []string{"ann@school.edu"}, "nope")

	err := a.Login(context.Background())
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Contains(t, *out, "Error: invalid email or password")
}

func TestApp_RegisterCollectsForm(t *testing.T) {
	out := captureOutput(t)
	f := &fakeFlow{outcome: authflow.Outcome{Kind: authflow.NeedsVerification, Email: "ann@school.edu"}}
	a := newTestApp(f, &fakeAdmin{})
	stubInputs(t, []string{"Ann", "ann@school.edu", "", "2027", "", "INT-7"}, "secret123", "secret123")

	require.NoError(t, a.Register(context.Background()))
	assert.Equal(t, authflow.SignupInput{
		Name: "Ann", Email: "ann@school.edu", Password: "secret123", PasswordConfirmation: "secret123",
		Batch: "2027", InternID: "INT-7",
	}, f.gotSignup)
	assert.Contains(t, *out, "A code was sent to ann@school.edu. Type 'verify' to enter it.")
}

func TestApp_VerifyNeedsPendingCode(t *testing.T) {
	out := captureOutput(t)
	f := &fakeFlow{}
	a := newTestApp(f, &fakeAdmin{})

	assert.ErrorIs(t, a.Verify(context.Background()), common.ErrInvalidStep)
	assert.Contains(t, *out, "No code pending. Use 'otp' or 'login' first.")

	f.step, f.email = authflow.StepOTPVerify, "ann@school.edu"
	f.outcome = authflow.Outcome{Kind: authflow.Authenticated, User: student}
	stubInputs(t, []string{"123456"})
	require.NoError(t, a.Verify(context.Background()))
	assert.Equal(t, "123456", f.gotCode)
	assert.Empty(t, f.gotEmail)
}

func TestApp_ForgotThenReset(t *testing.T) {
	out := captureOutput(t)
	f := &fakeFlow{outcome: authflow.Outcome{Kind: authflow.CodeSent, Step: authflow.StepResetPassword, Message: "generic"}}
	a := newTestApp(f, &fakeAdmin{})

	stubInputs(t, []string{"ann@school.edu"})
	require.NoError(t, a.Forgot(context.Background()))
	assert.Contains(t, *out, "Type 'reset' to choose a new password.")

	f.step = authflow.StepResetPassword
	f.outcome = authflow.Outcome{Kind: authflow.Authenticated, User: student}
	stubInputs(t, []string{"654321"}, "newpass12", "newpass12")
	require.NoError(t, a.Reset(context.Background()))
	assert.Equal(t, authflow.ResetInput{Code: "654321", Password: "newpass12", PasswordConfirmation: "newpass12"}, f.gotReset)
}

func TestApp_Logout(t *testing.T) {
	out := captureOutput(t)
	f := &fakeFlow{user: student}
	a := newTestApp(f, &fakeAdmin{})

	require.NoError(t, a.Logout(context.Background()))
	assert.Equal(t, 1, f.logouts)
	assert.False(t, a.isLoggedIn())
	assert.Contains(t, *out, "Logged out.")
}

func TestApp_AdminCommandsAreGated(t *testing.T) {
	out := captureOutput(t)
	admin := &fakeAdmin{}
	a := newTestApp(&fakeFlow{user: student}, admin)

	assert.ErrorIs(t, a.Provision(context.Background()), common.ErrorForbidden)
	assert.ErrorIs(t, a.Logs(context.Background()), common.ErrorForbidden)
	assert.ErrorIs(t, a.Archive(context.Background()), common.ErrorForbidden)
	assert.Contains(t, *out, "You do not have permission to do that.")
	assert.Empty(t, admin.provisioned.Email)
}

func TestApp_Provision(t *testing.T) {
	out := captureOutput(t)
	admin := &fakeAdmin{}
	a := newTestApp(&fakeFlow{user: superAdmin}, admin)
	stubInputs(t, []string{"Cora", "cora@ojtcoord.com", "coordinator", ""}, "initial123")

	require.NoError(t, a.Provision(context.Background()))
	assert.Equal(t, "coordinator", admin.provisioned.Role)
	assert.Equal(t, "initial123", admin.provisioned.Password)
	assert.Contains(t, *out, "Created COORDINATOR account for cora@ojtcoord.com.")
}

func TestApp_ProvisionError(t *testing.T) {
	out := captureOutput(t)
	admin := &fakeAdmin{err: common.ErrUnauthorizedRole}
	a := newTestApp(&fakeFlow{user: superAdmin}, admin)
	stubInputs(t, []string{"Cora", "cora@school.edu", "coordinator", ""}, "initial123")

	assert.ErrorIs(t, a.Provision(context.Background()), common.ErrUnauthorizedRole)
	assert.Contains(t, *out, "Error: "+common.ErrUnauthorizedRole.Error())
}

func TestApp_LogsAndArchive(t *testing.T) {
	out := captureOutput(t)
	admin := &fakeAdmin{}
	a := newTestApp(&fakeFlow{user: superAdmin}, admin)

	require.NoError(t, a.Logs(context.Background()))
	assert.Contains(t, *out, "No entries.")

	admin.logs = []*models.SystemLog{{Event: models.LogEventLogin, UserName: "Ann", CreatedAt: time.Now()}}
	require.NoError(t, a.Logs(context.Background()))
	require.NoError(t, a.Archive(context.Background()))
	assert.Contains(t, *out, "Archived 1 entries to system-logs/x.json")
}

func TestApp_PermsAndCan(t *testing.T) {
	out := captureOutput(t)
	a := newTestApp(&fakeFlow{user: student}, &fakeAdmin{})

	require.NoError(t, a.Permissions(context.Background()))
	assert.Contains(t, *out, " - SUBMIT_LOGS")
	assert.NotContains(t, *out, " - MANAGE_USERS")

	*out = nil
	require.NoError(t, a.Can(context.Background(), "submit_logs"))
	require.NoError(t, a.Can(context.Background(), "MANAGE_USERS"))
	assert.Equal(t, []string{"yes", "no"}, *out)

	assert.ErrorIs(t, a.Can(context.Background(), "FLY"), common.ErrValidation)
}

func TestApp_WhoamiNeedsUser(t *testing.T) {
	captureOutput(t)
	a := newTestApp(&fakeFlow{}, &fakeAdmin{})
	assert.ErrorIs(t, a.Whoami(context.Background()), common.ErrorUnauthorized)

	intern := "INT-1"
	u := *student
	u.InternID = &intern
	u.Profile = &models.Profile{Institution: "Elite Institute", Batch: "2026", Term: "2"}
	a = newTestApp(&fakeFlow{user: &u}, &fakeAdmin{})
	assert.NoError(t, a.Whoami(context.Background()))
}

func TestApp_ProbeSetsMode(t *testing.T) {
	a := newTestApp(&fakeFlow{}, &fakeAdmin{})
	a.probe(context.Background())
	assert.Equal(t, ModeOnline, a.Mode())

	a.health = fakeProber{err: errors.New("down")}
	a.probe(context.Background())
	assert.Equal(t, ModeOffline, a.Mode())
}

func TestApp_GetStatus(t *testing.T) {
	f := &fakeFlow{}
	a := newTestApp(f, &fakeAdmin{})
	assert.Equal(t, "", a.getStatus())

	a.setMode(ModeOnline)
	assert.Equal(t, "(online)", a.getStatus())

	f.step = authflow.StepOTPVerify
	assert.Equal(t, "(OTP_VERIFY online)", a.getStatus())

	f.user = student
	assert.Equal(t, "(ann@school.edu STUDENT online)", a.getStatus())
}

func TestApp_WatcherStopsOnCancel(t *testing.T) {
	a := newTestApp(&fakeFlow{}, &fakeAdmin{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.StartOnlineStatusWatcher(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return a.Mode() == ModeOnline }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
