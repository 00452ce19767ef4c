// Package users provides the PostgreSQL-backed user repository.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/ojtauth/internal/common"
	"github.com/dmitrijs2005/ojtauth/internal/dbx"
	"github.com/dmitrijs2005/ojtauth/internal/models"
	"github.com/dmitrijs2005/ojtauth/internal/rbac"
)

const uniqueViolation = "23505"

const userColumns = `id, email, name, role, password_hash, email_verified_at,
	otp_code, otp_expires_at, otp_purpose, intern_id, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	var (
		role    string
		purpose sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.EmailVerifiedAt,
		&u.OTPCode, &u.OTPExpiresAt, &purpose, &u.InternID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.Role = rbac.Role(role)
	if purpose.Valid {
		p := models.OTPPurpose(purpose.String)
		u.OTPPurpose = &p
	}
	return u, nil
}

// Create inserts user with a lower-cased email. A duplicate email returns
// common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (email, name, role, password_hash, email_verified_at, intern_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	user.Email = rbac.NormalizeEmail(user.Email)

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Name, string(user.Role), user.PasswordHash, user.EmailVerifiedAt, user.InternID,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, rbac.NormalizeEmail(email)))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// SetOTP overwrites any pending code with a new code, expiry and purpose.
func (r *PostgresRepository) SetOTP(ctx context.Context, userID, code string, expiresAt time.Time, purpose models.OTPPurpose) error {
	query := `
		UPDATE users
		SET otp_code = $2, otp_expires_at = $3, otp_purpose = $4, otp_attempts = 0
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, code, expiresAt, string(purpose))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ConsumeOTP clears a matching unexpired code and marks the email verified.
// No match (wrong code, wrong purpose, expired, or already used) returns
// common.ErrorNotFound.
func (r *PostgresRepository) ConsumeOTP(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.User, error) {
	query := `
		UPDATE users
		SET otp_code = NULL, otp_expires_at = NULL, otp_purpose = NULL, otp_attempts = 0,
			email_verified_at = COALESCE(email_verified_at, $4)
		WHERE lower(email) = $1 AND otp_code = $2 AND otp_purpose = $3 AND otp_expires_at > $4
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, rbac.NormalizeEmail(email), code, string(purpose), now))
}

// ConsumeOTPAndSetPassword consumes a reset code and stores the new password
// hash in the same statement.
func (r *PostgresRepository) ConsumeOTPAndSetPassword(ctx context.Context, email, code, passwordHash string, now time.Time) (*models.User, error) {
	query := `
		UPDATE users
		SET otp_code = NULL, otp_expires_at = NULL, otp_purpose = NULL, otp_attempts = 0,
			email_verified_at = COALESCE(email_verified_at, $4),
			password_hash = $5
		WHERE lower(email) = $1 AND otp_code = $2 AND otp_purpose = $3 AND otp_expires_at > $4
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query,
		rbac.NormalizeEmail(email), code, string(models.OTPPurposeReset), now, passwordHash))
}

// RecordOTPFailure counts a wrong guess against the pending code of the given
// purpose. The guess that reaches maxAttempts clears the code; burned reports
// that. No pending code is not an error.
func (r *PostgresRepository) RecordOTPFailure(ctx context.Context, email string, purpose models.OTPPurpose, maxAttempts int) (bool, error) {
	query := `
		UPDATE users
		SET otp_attempts = CASE WHEN otp_attempts + 1 >= $3 THEN 0 ELSE otp_attempts + 1 END,
			otp_code = CASE WHEN otp_attempts + 1 >= $3 THEN NULL ELSE otp_code END,
			otp_expires_at = CASE WHEN otp_attempts + 1 >= $3 THEN NULL ELSE otp_expires_at END,
			otp_purpose = CASE WHEN otp_attempts + 1 >= $3 THEN NULL ELSE otp_purpose END
		WHERE lower(email) = $1 AND otp_code IS NOT NULL AND otp_purpose = $2
		RETURNING otp_code IS NULL
	`
	var burned bool
	err := r.db.QueryRowContext(ctx, query, rbac.NormalizeEmail(email), string(purpose), maxAttempts).Scan(&burned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return burned, nil
}
