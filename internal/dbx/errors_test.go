package dbx

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation_Postgres(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"}
	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("db error: %w", dup)))

	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23502"}), "not null is not a duplicate")
	assert.False(t, IsUniqueViolation(errors.New("db down")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsUniqueViolation_SQLite(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS names (name TEXT PRIMARY KEY, alias TEXT UNIQUE)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO names(name, alias) VALUES ('alice', 'a')`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO names(name, alias) VALUES ('alice', 'b')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err), "primary key")

	_, err = db.ExecContext(ctx, `INSERT INTO names(name, alias) VALUES ('bob', 'a')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err), "unique column")

	_, err = db.ExecContext(ctx, `INSERT INTO missing_table(v) VALUES ('x')`)
	require.Error(t, err)
	assert.False(t, IsUniqueViolation(err))
}
