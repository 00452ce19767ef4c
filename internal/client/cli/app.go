package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/ojtauth/internal/client/authflow"
	"github.com/dmitrijs2005/ojtauth/internal/client/client"
	"github.com/dmitrijs2005/ojtauth/internal/client/config"
	"github.com/dmitrijs2005/ojtauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/ojtauth/internal/client/session"
	"github.com/dmitrijs2005/ojtauth/internal/filex"
	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/models"
	"github.com/dmitrijs2005/ojtauth/internal/rbac"
)

const (
	sessionDBFile = "session.db"
	probeTimeout  = 3 * time.Second
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// flow is the part of *authflow.Machine the commands use.
type flow interface {
	Step() authflow.Step
	PendingEmail() string
	CurrentUser() *models.User
	Goto(step authflow.Step) error
	Login(ctx context.Context, email, password string) authflow.Outcome
	Register(ctx context.Context, in authflow.SignupInput) authflow.Outcome
	RequestOTP(ctx context.Context, email string) authflow.Outcome
	VerifyOTP(ctx context.Context, email, code string) authflow.Outcome
	ForgotPassword(ctx context.Context, email string) authflow.Outcome
	ResetPassword(ctx context.Context, in authflow.ResetInput) authflow.Outcome
	Logout(ctx context.Context) authflow.Outcome
	Restore(ctx context.Context) *models.User
}

// prober answers whether the server is reachable.
type prober interface {
	Check(ctx context.Context) error
}

type App struct {
	config *config.Config
	flow   flow
	rbac   *rbac.Service
	admin  client.AdminClient
	health prober
	logger logging.Logger
	reader *bufio.Reader
	out    io.Writer

	mu   sync.Mutex
	mode Mode

	closers []io.Closer
}

// pingProber falls back to the HTTP ping when no gRPC health client exists.
type pingProber struct{ c client.Client }

func (p pingProber) Check(ctx context.Context) error {
	_, err := p.c.Ping(ctx)
	return err
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	path, err := filex.DataFile(c.DataDir, sessionDBFile)
	if err != nil {
		return nil, err
	}
	db, err := metadata.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open session cache: %w", err)
	}

	store := session.NewStore(metadata.NewSQLiteRepository(db), logger)

	var machine *authflow.Machine
	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout,
		client.WithLogger(logger.With("module", "client")),
		client.WithTokenListener(func(p *models.TokenPair) {
			if machine != nil {
				machine.HandleTokens(p)
			}
		}),
	)
	machine = authflow.NewMachine(api, store, logger)

	a := &App{
		config:  c,
		flow:    machine,
		rbac:    rbac.NewService(rbac.DefaultResolver()),
		admin:   api,
		health:  pingProber{c: api},
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		closers: []io.Closer{db},
	}

	if c.HealthAddr != "" {
		hc, err := client.NewHealthChecker(c.HealthAddr)
		if err != nil {
			logger.Warn(ctx, "health probe disabled, using ping", "error", err)
		} else {
			a.health = hc
			a.closers = append(a.closers, hc)
		}
	}
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Run restores the cached session, starts the status watcher and blocks in
// the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.probe(ctx)
	if u := a.flow.Restore(ctx); u != nil {
		printlnFn(fmt.Sprintf("Welcome back, %s (%s).", u.Name, u.Role))
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.flow.CurrentUser() != nil
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", mode)
	}
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := a.health.Check(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
