package systemlogs

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ojtauth/internal/dbx"
	"github.com/dmitrijs2005/ojtauth/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, entry *models.SystemLog) error {
	query := `
		INSERT INTO system_logs (user_id, user_name, event, description, ip_address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.UserID, entry.UserName, string(entry.Event), entry.Description, entry.IPAddress,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*models.SystemLog, error) {
	query := `
		SELECT id, user_id, user_name, event, description, ip_address, created_at
		FROM system_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.SystemLog
	for rows.Next() {
		entry := &models.SystemLog{}
		var event string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.UserName, &event,
			&entry.Description, &entry.IPAddress, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		entry.Event = models.LogEvent(event)
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
