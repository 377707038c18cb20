// Package db opens the server's database pool for the configured dialect.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open returns a pinged pool. SQLite gets a single connection so every
// statement is serialized through one handle; PostgreSQL keeps the pgx pool.
func Open(ctx context.Context, dialect dbx.Dialect, dsn string) (*sql.DB, error) {
	db, err := sqlOpen(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	switch dialect {
	case dbx.SQLite:
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	default:
		db.SetMaxOpenConns(16)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if dialect == dbx.SQLite {
		// wait for the lock instead of failing with SQLITE_BUSY when another
		// process holds the file
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db pragma error: %w", err)
		}
	}

	return db, nil
}
