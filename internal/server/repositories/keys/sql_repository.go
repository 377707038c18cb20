package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/dmitrijs2005/gophlicense/internal/dbx"
	"github.com/dmitrijs2005/gophlicense/internal/server/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, name string, now time.Time) error {
	query := `INSERT INTO keys (name, used, valid, last_validated, created_at)
		 VALUES (?, ?, ?, NULL, ?)`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), name, false, false, now.Unix())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %w", common.ErrorAlreadyExists, err)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, name string) (*models.Key, error) {
	query := `SELECT name, used, valid, last_validated, created_at FROM keys
		 WHERE name = ?`

	var (
		key           models.Key
		lastValidated sql.NullInt64
		createdAt     int64
	)
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), name).
		Scan(&key.Name, &key.Used, &key.Valid, &lastValidated, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lastValidated.Valid {
		t := time.Unix(lastValidated.Int64, 0).UTC()
		key.LastValidated = &t
	}
	key.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &key, nil
}

func (r *SQLRepository) Activate(ctx context.Context, name string, now time.Time) (bool, error) {
	query := `UPDATE keys SET used = ?, valid = ?, last_validated = ?
		 WHERE name = ? AND used = ?`

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), true, true, now.Unix(), name, false)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected(res)
}

func (r *SQLRepository) Revalidate(ctx context.Context, name string, now time.Time) (bool, error) {
	query := `UPDATE keys SET valid = ?, last_validated = ?
		 WHERE name = ?`

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), true, now.Unix(), name)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected(res)
}

func (r *SQLRepository) InvalidateExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	// single statement: the rows reported are exactly the rows updated
	query := `UPDATE keys SET valid = ?
		 WHERE valid = ? AND last_validated IS NOT NULL AND last_validated <= ?
		 RETURNING name`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), false, true, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan key row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate key rows: %w", err)
	}

	slices.Sort(names)
	return names, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
