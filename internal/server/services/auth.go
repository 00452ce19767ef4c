// Package services holds the credential store's business logic: the
// authentication flows (AuthService) and superadmin operations
// (AdminService).
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/ojtauth/internal/common"
	"github.com/dmitrijs2005/ojtauth/internal/dbx"
	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/models"
	"github.com/dmitrijs2005/ojtauth/internal/rbac"
	"github.com/dmitrijs2005/ojtauth/internal/server/auth"
	"github.com/dmitrijs2005/ojtauth/internal/server/config"
	"github.com/dmitrijs2005/ojtauth/internal/server/notify"
	"github.com/dmitrijs2005/ojtauth/internal/server/otp"
	"github.com/dmitrijs2005/ojtauth/internal/server/repositories/repomanager"
)

// OTPSender dispatches a code to the user's email. Implemented by
// *notify.Notifier.
type OTPSender interface {
	SendOTP(ctx context.Context, msg notify.OTPMessage) (string, error)
}

// AuthResult is the outcome of every flow that can sign a user in. Exactly
// one of Tokens (with User) or RequiresVerification is set.
type AuthResult struct {
	User                 *models.User
	Tokens               *models.TokenPair
	RequiresVerification bool
	Email                string
}

type RegisterInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
	Role                 string
	Institution          string
	Batch                string
	Term                 string
	InternID             string
}

type ResetInput struct {
	Email                string
	Code                 string
	Password             string
	PasswordConfirmation string
}

type AuthService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	rbac            *rbac.Service
	tokens          *auth.TokenIssuer
	codes           *otp.Generator
	sender          OTPSender
	audit           *auditor
	logger          logging.Logger
	refreshValidity time.Duration
	maxAttempts     int
	bcryptCost      int
	dummyHash       []byte
	now             func() time.Time
}

type Option func(*AuthService)

// WithClock sets the time source for code expiry and token issuance.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		s.now = now
		s.codes.WithClock(now)
		s.tokens.WithClock(now)
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *AuthService) { s.bcryptCost = cost }
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, sender OTPSender, logger logging.Logger, opts ...Option) *AuthService {
	logger = logger.With("module", "auth")
	s := &AuthService{
		db:              db,
		repomanager:     m,
		rbac:            rbac.NewService(rbac.NewResolver(cfg.SuperAdminEmail, cfg.CoordinatorDomain)),
		tokens:          auth.NewTokenIssuer([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration),
		codes:           otp.NewGenerator(cfg.OTPValidityDuration),
		sender:          sender,
		audit:           &auditor{db: db, repomanager: m, logger: logger},
		logger:          logger,
		refreshValidity: cfg.RefreshTokenValidityDuration,
		maxAttempts:     cfg.OTPMaxAttempts,
		bcryptCost:      bcrypt.DefaultCost,
		now:             time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	// compared against when the email is unknown so both paths cost one bcrypt
	s.dummyHash, _ = bcrypt.GenerateFromPassword(common.GenerateRandByteArray(16), s.bcryptCost)
	return s
}

func (s *AuthService) RBAC() *rbac.Service { return s.rbac }

// Login checks the password first. Only a correct password for an unverified
// account that requires verification leads to a new verification code; the
// caller gets RequiresVerification instead of tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = rbac.NormalizeEmail(email)
	v := &common.ValidationError{}
	if email == "" {
		v.Add("email", "The email field is required.")
	}
	if password == "" {
		v.Add("password", "The password field is required.")
	}
	if !v.Empty() {
		return nil, v
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "login lookup failed", "error", err)
			return nil, common.ErrorInternal
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.audit.record(ctx, models.LogEventSecurity, nil, "", "Failed login attempt for "+email)
		return nil, common.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.audit.record(ctx, models.LogEventSecurity, user, "", "Failed login attempt")
		return nil, common.ErrInvalidCredentials
	}

	if user.Role.RequiresVerification() && !user.Verified() {
		if err := s.issueCode(ctx, user, models.OTPPurposeVerify); err != nil {
			return nil, err
		}
		return &AuthResult{RequiresVerification: true, Email: user.Email}, nil
	}

	return s.signIn(ctx, user, "User logged in")
}

// Register is the public signup path. Only STUDENT accounts can be created
// here; they start unverified and receive a verification code.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = rbac.NormalizeEmail(in.Email)

	if strings.TrimSpace(in.Role) != "" {
		role, ok := rbac.ParseRole(in.Role)
		if !ok {
			return nil, common.NewValidationError("role", "The selected role is invalid.")
		}
		if role != rbac.RoleStudent {
			return nil, common.ErrUnauthorizedRole
		}
	}
	if s.rbac.Resolver().IsReserved(in.Email) {
		return nil, common.ErrReservedEmail
	}

	v := validateAccount(in.Name, in.Email)
	common.ValidateNewPassword(v, in.Password, in.PasswordConfirmation)
	if !v.Empty() {
		return nil, v
	}

	user, err := s.createAccount(ctx, accountInput{
		name:     in.Name,
		email:    in.Email,
		password: in.Password,
		role:     s.rbac.ResolveRole(in.Email),
		internID: in.InternID,
		profile:  models.Profile{Institution: in.Institution, Batch: in.Batch, Term: in.Term},
	})
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, models.LogEventRegister, user, "", "New student registered")

	if err := s.issueCode(ctx, user, models.OTPPurposeVerify); err != nil {
		// the account exists; the student can ask for a new code
		s.logger.Warn(ctx, "verification code after signup failed", "user_id", user.ID, "error", err)
	}
	return &AuthResult{RequiresVerification: true, Email: user.Email}, nil
}

// RequestOTP sends a sign-in code to an OTP-eligible account. The result is
// the same whether or not the account exists.
func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	email = rbac.NormalizeEmail(email)
	if msg := common.ValidateEmail(email); msg != "" {
		return common.NewValidationError("email", msg)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "otp lookup failed", "error", err)
		}
		return nil
	}
	if !user.Role.OTPEligible() {
		return nil
	}

	if err := s.issueCode(ctx, user, models.OTPPurposeVerify); err != nil {
		s.logger.Error(ctx, "otp issue failed", "user_id", user.ID, "error", err)
		return nil
	}
	s.audit.record(ctx, models.LogEventSecurity, user, "", "OTP requested")
	return nil
}

// VerifyOTP consumes a verification code and signs the user in. Wrong,
// expired and reused codes are indistinguishable.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	code = strings.TrimSpace(code)
	if !common.ValidOTPFormat(code) {
		return nil, common.ErrInvalidOrExpiredCode
	}

	user, err := s.repomanager.Users(s.db).ConsumeOTP(ctx, email, code, models.OTPPurposeVerify, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.audit.record(ctx, models.LogEventSecurity, nil, "", "Invalid access code for "+rbac.NormalizeEmail(email))
			s.countFailure(ctx, email, models.OTPPurposeVerify)
			return nil, common.ErrInvalidOrExpiredCode
		}
		s.logger.Error(ctx, "otp consume failed", "error", err)
		return nil, common.ErrorInternal
	}
	return s.signIn(ctx, user, "User logged in with access code")
}

// ForgotPassword sends a reset code if the account exists. The result is the
// same either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = rbac.NormalizeEmail(email)
	if msg := common.ValidateEmail(email); msg != "" {
		return common.NewValidationError("email", msg)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "forgot password lookup failed", "error", err)
		}
		return nil
	}

	if err := s.issueCode(ctx, user, models.OTPPurposeReset); err != nil {
		s.logger.Error(ctx, "reset code issue failed", "user_id", user.ID, "error", err)
		return nil
	}
	s.audit.record(ctx, models.LogEventSecurity, user, "", "Password reset requested")
	return nil
}

// ResetPassword consumes a reset code, stores the new password and signs the
// user in.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetInput) (*AuthResult, error) {
	v := &common.ValidationError{}
	common.ValidateNewPassword(v, in.Password, in.PasswordConfirmation)
	if !v.Empty() {
		return nil, v
	}
	code := strings.TrimSpace(in.Code)
	if !common.ValidOTPFormat(code) {
		return nil, common.ErrInvalidOrExpiredCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user, err := s.repomanager.Users(s.db).ConsumeOTPAndSetPassword(ctx, in.Email, code, string(hash), s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.countFailure(ctx, in.Email, models.OTPPurposeReset)
			return nil, common.ErrInvalidOrExpiredCode
		}
		s.logger.Error(ctx, "reset consume failed", "error", err)
		return nil, common.ErrorInternal
	}
	return s.signIn(ctx, user, "Password reset")
}

// countFailure charges a wrong code against the pending one. The caller's
// answer does not change when the code gets burned.
func (s *AuthService) countFailure(ctx context.Context, email string, purpose models.OTPPurpose) {
	if s.maxAttempts <= 0 {
		return
	}
	burned, err := s.repomanager.Users(s.db).RecordOTPFailure(ctx, email, purpose, s.maxAttempts)
	if err != nil {
		s.logger.Error(ctx, "cannot count code attempt", "error", err)
		return
	}
	if burned {
		s.logger.Warn(ctx, "code discarded after too many attempts", "purpose", purpose)
		s.audit.record(ctx, models.LogEventSecurity, nil, "", "Access code discarded after too many attempts for "+rbac.NormalizeEmail(email))
	}
}

// Refresh rotates a refresh token. A token can be used once; a second use
// fails with common.ErrorUnauthorized.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrorUnauthorized
	}

	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if !s.now().Before(token.Expires) {
		_, _ = s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken)
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *models.TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken)
		if err != nil {
			return err
		}
		if !deleted {
			return common.ErrorUnauthorized
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return err
		}
		pair, err = s.issueTokens(ctx, user, tx)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, err
		}
		s.logger.Error(ctx, "refresh failed", "error", err)
		return nil, common.ErrorInternal
	}
	return pair, nil
}

// Logout revokes refreshToken if it belongs to user. It never fails because
// of the token.
func (s *AuthService) Logout(ctx context.Context, user *models.User, refreshToken string) error {
	if refreshToken != "" {
		repo := s.repomanager.RefreshTokens(s.db)
		token, err := repo.Find(ctx, refreshToken)
		switch {
		case err == nil && user != nil && token.UserID == user.ID:
			if _, err := repo.Delete(ctx, refreshToken); err != nil {
				s.logger.Warn(ctx, "refresh token revoke failed", "error", err)
			}
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			s.logger.Warn(ctx, "refresh token lookup failed", "error", err)
		}
	}
	s.audit.record(ctx, models.LogEventLogout, user, "", "User logged out")
	return nil
}

// Authenticate resolves a bearer access token to its user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.ParseToken(accessToken)
	if err != nil {
		return nil, err
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	s.attachProfile(ctx, user)
	return user, nil
}

func (s *AuthService) signIn(ctx context.Context, user *models.User, description string) (*AuthResult, error) {
	pair, err := s.issueTokens(ctx, user, s.db)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}
	s.attachProfile(ctx, user)
	s.audit.record(ctx, models.LogEventLogin, user, "", description)
	return &AuthResult{User: user, Tokens: pair, Email: user.Email}, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User, db dbx.DBTX) (*models.TokenPair, error) {
	access, accessExp, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, err
	}
	refreshExp := s.now().Add(s.refreshValidity)
	if err := s.repomanager.RefreshTokens(db).Create(ctx, user.ID, refresh, refreshExp); err != nil {
		return nil, err
	}
	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// issueCode replaces any pending code and dispatches the new one.
func (s *AuthService) issueCode(ctx context.Context, user *models.User, purpose models.OTPPurpose) error {
	code, err := s.codes.New()
	if err != nil {
		return common.ErrorInternal
	}
	if err := s.repomanager.Users(s.db).SetOTP(ctx, user.ID, code.Value, code.ExpiresAt, purpose); err != nil {
		s.logger.Error(ctx, "store code failed", "user_id", user.ID, "error", err)
		return common.ErrorInternal
	}
	_, err = s.sender.SendOTP(ctx, notify.OTPMessage{
		Email:     user.Email,
		Name:      user.Name,
		Code:      code.Value,
		Purpose:   purpose,
		ExpiresAt: code.ExpiresAt,
	})
	if err != nil {
		s.logger.Error(ctx, "dispatch code failed", "user_id", user.ID, "error", err)
		return common.ErrorInternal
	}
	return nil
}

func (s *AuthService) attachProfile(ctx context.Context, user *models.User) {
	p, err := s.repomanager.Profiles(s.db).Get(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "profile lookup failed", "user_id", user.ID, "error", err)
		}
		return
	}
	user.Profile = p
}

type accountInput struct {
	name     string
	email    string
	password string
	role     rbac.Role
	internID string
	verified bool
	profile  models.Profile
}

// createAccount inserts the user and its profile in one transaction.
func (s *AuthService) createAccount(ctx context.Context, in accountInput) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.password), s.bcryptCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Email:        in.email,
		Name:         strings.TrimSpace(in.name),
		Role:         in.role,
		PasswordHash: string(hash),
	}
	if in.verified {
		now := s.now()
		user.EmailVerifiedAt = &now
	}
	if id := strings.TrimSpace(in.internID); id != "" {
		user.InternID = &id
	}

	profile := in.profile.WithDefaults()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			return err
		}
		profile.UserID = user.ID
		return s.repomanager.Profiles(tx).Upsert(ctx, &profile)
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrEmailTaken
		}
		s.logger.Error(ctx, "create account failed", "error", err)
		return nil, common.ErrorInternal
	}
	user.Profile = &profile
	return user, nil
}

func validateAccount(name, email string) *common.ValidationError {
	v := &common.ValidationError{}
	if strings.TrimSpace(name) == "" {
		v.Add("name", "The name field is required.")
	}
	if msg := common.ValidateEmail(email); msg != "" {
		v.Add("email", msg)
	}
	return v
}

// describe is used in audit descriptions that name a role.
func describe(role rbac.Role) string {
	return fmt.Sprintf("%s account", strings.ToLower(string(role)))
}
