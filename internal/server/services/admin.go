package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/ojtauth/internal/common"
	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/models"
	"github.com/dmitrijs2005/ojtauth/internal/rbac"
	"github.com/dmitrijs2005/ojtauth/internal/server/archive"
)

// SystemLogLimit caps the audit listing.
const SystemLogLimit = 100

type ProvisionInput struct {
	Name        string
	Email       string
	Password    string
	Role        string
	Institution string
	Batch       string
	Term        string
	InternID    string
}

// AdminService implements the operations behind MANAGE_USERS and
// VIEW_SYSTEM_LOGS. It shares the AuthService's store and audit trail.
type AdminService struct {
	auth     *AuthService
	archiver *archive.Archiver
	logger   logging.Logger
}

func NewAdminService(authService *AuthService, archiver *archive.Archiver, logger logging.Logger) *AdminService {
	if archiver == nil {
		archiver = archive.NewArchiver(nil)
	}
	return &AdminService{auth: authService, archiver: archiver, logger: logger.With("module", "admin")}
}

// Provision creates a pre-verified account of any role. The requested role
// must match the one derived from the email.
func (s *AdminService) Provision(ctx context.Context, caller *models.User, in ProvisionInput) (*models.User, error) {
	if !s.auth.rbac.HasPermission(caller, rbac.PermManageUsers) {
		return nil, common.ErrorForbidden
	}

	in.Email = rbac.NormalizeEmail(in.Email)
	v := validateAccount(in.Name, in.Email)
	common.ValidateNewPassword(v, in.Password, in.Password)
	role, ok := rbac.ParseRole(in.Role)
	if !ok {
		v.Add("role", "The selected role is invalid.")
	}
	if !v.Empty() {
		return nil, v
	}
	if role != s.auth.rbac.ResolveRole(in.Email) {
		return nil, common.ErrUnauthorizedRole
	}

	user, err := s.auth.createAccount(ctx, accountInput{
		name:     in.Name,
		email:    in.Email,
		password: in.Password,
		role:     role,
		internID: in.InternID,
		verified: true,
		profile:  models.Profile{Institution: in.Institution, Batch: in.Batch, Term: in.Term},
	})
	if err != nil {
		return nil, err
	}
	s.auth.audit.record(ctx, models.LogEventProvision, caller, "", "Provisioned "+describe(role)+" "+user.Email)
	return user, nil
}

func (s *AdminService) ListLogs(ctx context.Context, caller *models.User) ([]*models.SystemLog, error) {
	if !s.auth.rbac.HasPermission(caller, rbac.PermViewSystemLogs) {
		return nil, common.ErrorForbidden
	}
	logs, err := s.auth.repomanager.SystemLogs(s.auth.db).ListRecent(ctx, SystemLogLimit)
	if err != nil {
		s.logger.Error(ctx, "list system logs failed", "error", err)
		return nil, common.ErrorInternal
	}
	return logs, nil
}

// ArchiveLogs uploads the current listing to object storage. It returns
// archive.ErrDisabled when no store is configured.
func (s *AdminService) ArchiveLogs(ctx context.Context, caller *models.User) (*archive.Result, error) {
	logs, err := s.ListLogs(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !s.archiver.Enabled() {
		return nil, archive.ErrDisabled
	}

	res, err := s.archiver.Archive(ctx, logs)
	if err != nil {
		s.logger.Error(ctx, "archive system logs failed", "error", err)
		return nil, common.ErrorInternal
	}
	s.logger.Info(ctx, "system logs archived", "key", res.Key, "count", res.Count)
	return res, nil
}

// SeedSuperAdmin creates the configured superadmin account if it does not
// exist yet. It reports whether an account was created.
func (s *AdminService) SeedSuperAdmin(ctx context.Context, name, password string) (bool, error) {
	email := s.auth.rbac.Resolver().SuperAdminEmail()
	if strings.TrimSpace(name) == "" {
		name = "System Administrator"
	}

	v := &common.ValidationError{}
	common.ValidateNewPassword(v, password, password)
	if !v.Empty() {
		return false, v
	}

	_, err := s.auth.repomanager.Users(s.auth.db).GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return false, err
	}

	_, err = s.auth.createAccount(ctx, accountInput{
		name:     name,
		email:    email,
		password: password,
		role:     rbac.RoleSuperAdmin,
		verified: true,
	})
	if errors.Is(err, common.ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.Info(ctx, "superadmin seeded", "email", email)
	return true, nil
}
