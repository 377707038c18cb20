package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophlicense/internal/dbx"
	"github.com/dmitrijs2005/gophlicense/internal/server/repositories/keys"
	"github.com/dmitrijs2005/gophlicense/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewSQLRepositoryManager_Dialects(t *testing.T) {
	for _, d := range []dbx.Dialect{dbx.SQLite, dbx.Postgres} {
		m, err := NewSQLRepositoryManager(d)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", d, err)
		}
		if m.Dialect() != d {
			t.Fatalf("dialect mismatch: %s != %s", m.Dialect(), d)
		}
		var _ RepositoryManager = m
	}

	if _, err := NewSQLRepositoryManager("oracle"); err == nil {
		t.Fatal("expected error for unsupported dialect")
	}
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := &SQLRepositoryManager{dialect: dbx.SQLite}

	if u := m.Users(db); u == nil {
		t.Fatal("Users() nil")
	}
	if k := m.Keys(db); k == nil {
		t.Fatal("Keys() nil")
	}

	var _ users.Repository = m.Users(db)
	var _ keys.Repository = m.Keys(db)
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := &SQLRepositoryManager{dialect: dbx.Postgres}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &SQLRepositoryManager{dialect: dbx.SQLite}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}
