package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/ojtauth/internal/logging"
	"github.com/dmitrijs2005/ojtauth/internal/models"
	"github.com/dmitrijs2005/ojtauth/internal/server/repositories/repomanager"
)

// auditor writes system log rows. A failed write is logged and otherwise
// ignored; auditing never fails the request it describes.
type auditor struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func (a *auditor) record(ctx context.Context, event models.LogEvent, user *models.User, fallbackName, description string) {
	entry := &models.SystemLog{
		UserName:    fallbackName,
		Event:       event,
		Description: description,
		IPAddress:   ClientIP(ctx),
	}
	if user != nil {
		id := user.ID
		entry.UserID = &id
		entry.UserName = user.Name
	}
	if entry.UserName == "" {
		entry.UserName = "unknown"
	}

	if err := a.repomanager.SystemLogs(a.db).Create(ctx, entry); err != nil {
		a.logger.Warn(ctx, "audit write failed", "event", event, "error", err)
	}
}
