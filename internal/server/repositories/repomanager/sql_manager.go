// Package repomanager vends SQL-backed repositories for the configured
// dialect and applies schema migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophlicense/internal/dbx"
	"github.com/dmitrijs2005/gophlicense/internal/server/migrations"
	"github.com/dmitrijs2005/gophlicense/internal/server/repositories/keys"
	"github.com/dmitrijs2005/gophlicense/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager binds repositories to a DBTX, which may be the pool
// or an open transaction.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.dialect)
}

// Keys returns a keys.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Keys(db dbx.DBTX) keys.Repository {
	return keys.NewSQLRepository(db, m.dialect)
}

// Dialect reports the SQL dialect repositories are built for.
func (m *SQLRepositoryManager) Dialect() dbx.Dialect {
	return m.dialect
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect.GooseDialect()); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewSQLRepositoryManager constructs a RepositoryManager for dialect.
func NewSQLRepositoryManager(dialect dbx.Dialect) (*SQLRepositoryManager, error) {
	switch dialect {
	case dbx.SQLite, dbx.Postgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dialect)
	}
	return &SQLRepositoryManager{dialect: dialect}, nil
}
