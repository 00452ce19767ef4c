// Package httpapi serves the credential store's JSON API over chi.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/ojtauth/internal/api"
	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/models"
	"github.com/dmitrijs2005/ojtauth/internal/rbac"
	"github.com/dmitrijs2005/ojtauth/internal/server/archive"
	"github.com/dmitrijs2005/ojtauth/internal/server/services"
)

// AuthService is implemented by *services.AuthService.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*services.AuthResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in services.ResetInput) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, user *models.User, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// AdminService is implemented by *services.AdminService.
type AdminService interface {
	Provision(ctx context.Context, caller *models.User, in services.ProvisionInput) (*models.User, error)
	ListLogs(ctx context.Context, caller *models.User) ([]*models.SystemLog, error)
	ArchiveLogs(ctx context.Context, caller *models.User) (*archive.Result, error)
}

type Options struct {
	Auth           AuthService
	Admin          AdminService
	RBAC           *rbac.Service
	Logger         logging.Logger
	RequestTimeout time.Duration
	Now            func() time.Time
}

type handler struct {
	auth   AuthService
	admin  AdminService
	rbac   *rbac.Service
	logger logging.Logger
	now    func() time.Time
}

func NewRouter(o Options) http.Handler {
	h := &handler{auth: o.Auth, admin: o.Admin, rbac: o.RBAC, logger: o.Logger, now: o.Now}
	if h.rbac == nil {
		h.rbac = rbac.NewService(nil)
	}
	if h.logger == nil {
		h.logger = logging.Nop{}
	}
	h.logger = h.logger.With("module", "http")
	if h.now == nil {
		h.now = time.Now
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(h.logger),
		clientIP,
	)
	if o.RequestTimeout > 0 {
		r.Use(middleware.Timeout(o.RequestTimeout))
	}

	r.Post(api.PathLogin, h.login)
	r.Post(api.PathRegister, h.register)
	r.Post(api.PathOTPRequest, h.requestOTP)
	r.Post(api.PathOTPVerify, h.verifyOTP)
	r.Post(api.PathForgotPassword, h.forgotPassword)
	r.Post(api.PathResetPassword, h.resetPassword)
	r.Post(api.PathRefresh, h.refresh)
	r.With(h.optionalUser).Get(api.PathPing, h.ping)

	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)
		r.Post(api.PathLogout, h.logout)
		r.Get(api.PathUser, h.currentUser)

		r.With(h.requirePermission(rbac.PermManageUsers)).Post(api.PathAdminUsers, h.provision)
		r.With(h.requirePermission(rbac.PermViewSystemLogs)).Get(api.PathAdminLogs, h.listLogs)
		r.With(h.requirePermission(rbac.PermViewSystemLogs)).Post(api.PathArchiveLogs, h.archiveLogs)
	})

	return r
}
