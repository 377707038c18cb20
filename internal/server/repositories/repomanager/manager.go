package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophlicense/internal/dbx"
	"github.com/dmitrijs2005/gophlicense/internal/server/repositories/keys"
	"github.com/dmitrijs2005/gophlicense/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Keys(db dbx.DBTX) keys.Repository
}
