package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/ojtauth/internal/dbx"
	"github.com/dmitrijs2005/ojtauth/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/ojtauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/ojtauth/internal/server/repositories/systemlogs"
	"github.com/dmitrijs2005/ojtauth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either a *sql.DB or a
// transaction, so services can group writes with dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	SystemLogs(db dbx.DBTX) systemlogs.Repository
}
