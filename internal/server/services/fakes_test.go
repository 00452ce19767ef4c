package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/ojtauth/internal/common"
	"github.com/dmitrijs2005/ojtauth/internal/dbx"
	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/models"
	"github.com/dmitrijs2005/ojtauth/internal/rbac"
	"github.com/dmitrijs2005/ojtauth/internal/server/config"
	"github.com/dmitrijs2005/ojtauth/internal/server/notify"
	profilesrepo "github.com/dmitrijs2005/ojtauth/internal/server/repositories/profiles"
	refreshtokensrepo "github.com/dmitrijs2005/ojtauth/internal/server/repositories/refreshtokens"
	systemlogsrepo "github.com/dmitrijs2005/ojtauth/internal/server/repositories/systemlogs"
	usersrepo "github.com/dmitrijs2005/ojtauth/internal/server/repositories/users"
)

// memStore behaves like the Postgres repositories, including the conditional
// OTP consumption.
type memStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]*models.User
	profiles map[string]*models.Profile
	tokens   map[string]*models.RefreshToken
	logs     []*models.SystemLog
	logsErr  error
	attempts map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		profiles: map[string]*models.Profile{},
		tokens:   map[string]*models.RefreshToken{},
		attempts: map[string]int{},
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (s *memStore) byEmail(email string) *models.User {
	email = rbac.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *memStore) user(email string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.byEmail(email); u != nil {
		return cloneUser(u)
	}
	return nil
}

func (s *memStore) events() []models.LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LogEvent, 0, len(s.logs))
	for _, l := range s.logs {
		out = append(out, l.Event)
	}
	return out
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = rbac.NormalizeEmail(u.Email)
	if r.s.byEmail(u.Email) != nil {
		return nil, common.ErrorAlreadyExists
	}
	r.s.seq++
	u.ID = fmt.Sprintf("u%d", r.s.seq)
	u.CreatedAt = time.Now()
	r.s.users[u.ID] = cloneUser(u)
	return u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u := r.s.user(email); u != nil {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) SetOTP(_ context.Context, userID, code string, expiresAt time.Time, purpose models.OTPPurpose) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.OTPCode, u.OTPExpiresAt, u.OTPPurpose = &code, &expiresAt, &purpose
	r.s.attempts[u.ID] = 0
	return nil
}

func (r memUsers) consume(email, code string, purpose models.OTPPurpose, now time.Time, apply func(*models.User)) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.s.byEmail(email)
	if u == nil || u.OTPCode == nil || *u.OTPCode != code ||
		u.OTPPurpose == nil || *u.OTPPurpose != purpose || !now.Before(*u.OTPExpiresAt) {
		return nil, common.ErrorNotFound
	}
	u.OTPCode, u.OTPExpiresAt, u.OTPPurpose = nil, nil, nil
	r.s.attempts[u.ID] = 0
	if u.EmailVerifiedAt == nil {
		t := now
		u.EmailVerifiedAt = &t
	}
	if apply != nil {
		apply(u)
	}
	return cloneUser(u), nil
}

func (r memUsers) ConsumeOTP(_ context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.User, error) {
	return r.consume(email, code, purpose, now, nil)
}

func (r memUsers) ConsumeOTPAndSetPassword(_ context.Context, email, code, hash string, now time.Time) (*models.User, error) {
	return r.consume(email, code, models.OTPPurposeReset, now, func(u *models.User) { u.PasswordHash = hash })
}

func (r memUsers) RecordOTPFailure(_ context.Context, email string, purpose models.OTPPurpose, max int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.s.byEmail(email)
	if u == nil || u.OTPCode == nil || u.OTPPurpose == nil || *u.OTPPurpose != purpose {
		return false, nil
	}
	r.s.attempts[u.ID]++
	if r.s.attempts[u.ID] < max {
		return false, nil
	}
	r.s.attempts[u.ID] = 0
	u.OTPCode, u.OTPExpiresAt, u.OTPPurpose = nil, nil, nil
	return true, nil
}

type memTokens struct{ s *memStore }

func (r memTokens) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (r memTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *t
	return &c, nil
}

func (r memTokens) Delete(_ context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.tokens[token]
	delete(r.s.tokens, token)
	return ok, nil
}

func (r memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, t := range r.s.tokens {
		if t.Expires.Before(now) {
			delete(r.s.tokens, k)
			n++
		}
	}
	return n, nil
}

type memProfiles struct{ s *memStore }

func (r memProfiles) Upsert(_ context.Context, p *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *p
	r.s.profiles[p.UserID] = &c
	return nil
}

func (r memProfiles) Get(_ context.Context, userID string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *p
	return &c, nil
}

type memLogs struct{ s *memStore }

func (r memLogs) Create(_ context.Context, e *models.SystemLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.logsErr != nil {
		return r.s.logsErr
	}
	e.ID = int64(len(r.s.logs) + 1)
	r.s.logs = append(r.s.logs, e)
	return nil
}

func (r memLogs) ListRecent(_ context.Context, limit int) ([]*models.SystemLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.SystemLog
	for i := len(r.s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.s.logs[i])
	}
	return out, nil
}

type memManager struct{ s *memStore }

func (m memManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m memManager) Users(dbx.DBTX) usersrepo.Repository          { return memUsers(m) }
func (m memManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository {
	return memTokens(m)
}
func (m memManager) Profiles(dbx.DBTX) profilesrepo.Repository     { return memProfiles(m) }
func (m memManager) SystemLogs(dbx.DBTX) systemlogsrepo.Repository { return memLogs(m) }

type fakeSender struct {
	mu   sync.Mutex
	msgs []notify.OTPMessage
	err  error
}

func (f *fakeSender) SendOTP(_ context.Context, msg notify.OTPMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.msgs = append(f.msgs, msg)
	return fmt.Sprintf("m%d", len(f.msgs)), nil
}

func (f *fakeSender) sent() []notify.OTPMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.OTPMessage(nil), f.msgs...)
}

func (f *fakeSender) last(t *testing.T) notify.OTPMessage {
	t.Helper()
	msgs := f.sent()
	if len(msgs) == 0 {
		t.Fatalf("no code dispatched")
	}
	return msgs[len(msgs)-1]
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type harness struct {
	db     *sql.DB
	mock   sqlmock.Sqlmock
	store  *memStore
	sender *fakeSender
	clock  *clock
	auth   *AuthService
	admin  *AdminService
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: 24 * time.Hour,
		OTPValidityDuration:          15 * time.Minute,
		OTPMaxAttempts:               3,
		SuperAdminEmail:              rbac.DefaultSuperAdminEmail,
		CoordinatorDomain:            rbac.DefaultCoordinatorDomain,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := &harness{
		db:     db,
		mock:   mock,
		store:  newMemStore(),
		sender: &fakeSender{},
		clock:  &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	h.auth = NewAuthService(db, memManager{h.store}, testConfig(), h.sender, logging.Nop{},
		WithClock(h.clock.now), WithBcryptCost(bcrypt.MinCost))
	h.admin = NewAdminService(h.auth, nil, logging.Nop{})
	return h
}

// seed inserts a user directly into the store.
func (h *harness) seed(t *testing.T, email, password string, role rbac.Role, verified bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &models.User{Email: email, Name: "Test " + string(role), Role: role, PasswordHash: string(hash)}
	if verified {
		at := h.clock.now().Add(-time.Hour)
		u.EmailVerifiedAt = &at
	}
	out, err := memUsers{h.store}.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return cloneUser(out)
}

func (h *harness) expectTx() {
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
}

func (h *harness) expectRollback() {
	h.mock.ExpectBegin()
	h.mock.ExpectRollback()
}

func (h *harness) verifyMock(t *testing.T) {
	t.Helper()
	if err := h.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

var errBoom = errors.New("boom")
