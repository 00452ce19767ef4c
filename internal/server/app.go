// Package server wires the credential store: database, repositories,
// services, the HTTP API and the gRPC health endpoint. It also handles
// graceful shutdown and the periodic refresh token purge.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/server/archive"
	"github.com/dmitrijs2005/ojtauth/internal/server/config"
	"github.com/dmitrijs2005/ojtauth/internal/server/httpapi"
	"github.com/dmitrijs2005/ojtauth/internal/server/notify"
	"github.com/dmitrijs2005/ojtauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ojtauth/internal/server/services"

	gs "github.com/dmitrijs2005/ojtauth/internal/server/grpc"
)

const (
	dbConnectTimeout = 10 * time.Second
	shutdownTimeout  = 10 * time.Second
	purgeInterval    = time.Hour
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	notifier     *notify.Notifier
	archiveStore archive.Store
	authService  *services.AuthService
	adminService *services.AdminService
	handler      http.Handler
	now          func() time.Time
}

// NewApp connects to the database and builds the configured notifier and
// archive backends.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := repomanager.Open(ctx, cfg.DatabaseDSN, dbConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	backend, err := NewNotifyBackend(ctx, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("notifier init error: %w", err)
	}

	store, err := NewArchiveStore(ctx, cfg)
	if err != nil {
		_ = backend.Close()
		_ = db.Close()
		return nil, fmt.Errorf("archive init error: %w", err)
	}

	return newApp(cfg, logger, db, repomanager.NewPostgresRepositoryManager(), backend, store), nil
}

func newApp(cfg *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager, backend notify.Backend, store archive.Store, opts ...services.Option) *App {
	notifier := notify.NewNotifier(backend, cfg.NotifyChannel)
	authService := services.NewAuthService(db, rm, cfg, notifier, logger, opts...)
	adminService := services.NewAdminService(authService, archive.NewArchiver(store), logger)

	return &App{
		config:       cfg,
		logger:       logger,
		db:           db,
		repomanager:  rm,
		notifier:     notifier,
		archiveStore: store,
		authService:  authService,
		adminService: adminService,
		handler: httpapi.NewRouter(httpapi.Options{
			Auth:           authService,
			Admin:          adminService,
			RBAC:           authService.RBAC(),
			Logger:         logger,
			RequestTimeout: cfg.RequestTimeout,
		}),
		now: time.Now,
	}
}

func (app *App) Handler() http.Handler { return app.handler }

func (app *App) Close() error {
	return errors.Join(app.notifier.Close(), app.db.Close())
}

func (app *App) Migrate(ctx context.Context) error {
	return app.repomanager.RunMigrations(ctx, app.db)
}

// SeedSuperAdmin creates the configured superadmin with the configured seed
// password unless it exists.
func (app *App) SeedSuperAdmin(ctx context.Context) (bool, error) {
	return app.adminService.SeedSuperAdmin(ctx, "", app.config.SeedAdminPassword)
}

// RunNotifyWorker consumes queued codes and logs each delivery until ctx is
// done. Mail delivery itself is outside this service.
func (app *App) RunNotifyWorker(ctx context.Context) error {
	return app.notifier.ConsumeOTP(ctx,
		func(ctx context.Context, msg notify.OTPMessage) error {
			app.logger.Info(ctx, "otp delivery", "email", msg.Email, "purpose", msg.Purpose, "expires_at", msg.ExpiresAt)
			return nil
		},
		func(m notify.Message, err error) {
			app.logger.Warn(ctx, "dropping malformed notification", "id", m.ID, "error", err)
		},
	)
}

// purgeExpiredTokens deletes refresh tokens that can no longer be used.
func (app *App) purgeExpiredTokens(ctx context.Context) {
	n, err := app.repomanager.RefreshTokens(app.db).DeleteExpired(ctx, app.now())
	if err != nil {
		app.logger.Warn(ctx, "refresh token purge failed", "error", err)
		return
	}
	if n > 0 {
		app.logger.Info(ctx, "expired refresh tokens purged", "count", n)
	}
}

func (app *App) startPurger(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.purgeExpiredTokens(ctx)
		}
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCHealthAddr, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a signal arrives, ctx is cancelled or a listener fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	if app.archiveStore != nil {
		if err := app.archiveStore.EnsureBucket(ctx); err != nil {
			app.logger.Warn(ctx, "archive bucket unavailable", "bucket", app.archiveStore.Bucket(), "error", err)
		}
	}
	app.purgeExpiredTokens(ctx)

	var wg sync.WaitGroup
	for _, run := range []func(context.Context, context.CancelFunc){app.startHTTPServer, app.startGRPCServer} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx, cancelFunc)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startPurger(ctx)
	}()

	wg.Wait()
	app.logger.Info(ctx, "App stopped")
}
