package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/ojtauth/internal/common"
	"github.com/dmitrijs2005/ojtauth/internal/dbx"
	"github.com/dmitrijs2005/ojtauth/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, institution, batch, term, theme)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET institution = EXCLUDED.institution, batch = EXCLUDED.batch,
			term = EXCLUDED.term, theme = EXCLUDED.theme, updated_at = now()
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, p.UserID, p.Institution, p.Batch, p.Term, p.Theme).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT institution, batch, term, theme, updated_at
		FROM profiles
		WHERE user_id = $1
	`
	p := &models.Profile{UserID: userID}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.Institution, &p.Batch, &p.Term, &p.Theme, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}
