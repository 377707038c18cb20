package users

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/dmitrijs2005/gophlicense/internal/dbx"
	"github.com/dmitrijs2005/gophlicense/internal/server/models"
)

// SQLRepository serves both SQLite and PostgreSQL; queries are written
// with '?' placeholders and rebound for the dialect.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (name, password_hash, password_salt, code, created_at)
		 VALUES (?, ?, ?, ?, ?)`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		user.Name,
		hex.EncodeToString(user.PasswordHash),
		hex.EncodeToString(user.PasswordSalt),
		user.Code,
		user.CreatedAt.Unix(),
	)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %w", common.ErrorAlreadyExists, err)
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	query := `SELECT name, password_hash, password_salt, code, created_at FROM users
		 WHERE name = ?`

	var (
		user      models.User
		hash      string
		salt      string
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), name).
		Scan(&user.Name, &hash, &salt, &user.Code, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if user.PasswordHash, err = hex.DecodeString(hash); err != nil {
		return nil, fmt.Errorf("corrupt password hash for %q: %w", name, err)
	}
	if user.PasswordSalt, err = hex.DecodeString(salt); err != nil {
		return nil, fmt.Errorf("corrupt password salt for %q: %w", name, err)
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &user, nil
}

func (r *SQLRepository) Exists(ctx context.Context, name string) (bool, error) {
	query := `SELECT 1 FROM users WHERE name = ?`

	var one int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), name).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}
