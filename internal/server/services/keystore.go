// Package services implements the license key and credential rules on top
// of the repositories and the session registry.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/dmitrijs2005/gophlicense/internal/dbx"
	"github.com/dmitrijs2005/gophlicense/internal/server/events"
	"github.com/dmitrijs2005/gophlicense/internal/server/models"
	"github.com/dmitrijs2005/gophlicense/internal/server/repositories/repomanager"
	"github.com/jonboulle/clockwork"
)

// KeyStore owns the durable key invariants.
type KeyStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       clockwork.Clock
	maxAge      time.Duration
	events      *events.Emitter
}

func NewKeyStore(db *sql.DB, m repomanager.RepositoryManager, clock clockwork.Clock, maxAge time.Duration, emitter *events.Emitter) *KeyStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxAge <= 0 {
		maxAge = common.KeyMaxAge
	}
	return &KeyStore{
		db:          db,
		repomanager: m,
		clock:       clock,
		maxAge:      maxAge,
		events:      emitter,
	}
}

// AddKey creates an unused, not yet valid key.
func (s *KeyStore) AddKey(ctx context.Context, name string) (common.Outcome, error) {
	if o := checkFields(keyFields{Key: name}); o != "" {
		return o, nil
	}

	now := s.clock.Now()
	outcome := common.KeyAdded

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Keys(tx)

		_, err := repo.Get(ctx, name)
		switch {
		case err == nil:
			outcome = common.KeyExists
			return nil
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		return repo.Create(ctx, name, now)
	})
	if errors.Is(err, common.ErrorAlreadyExists) {
		return common.KeyExists, nil
	}
	if err != nil {
		// a concurrent AddKey may have won the insert
		if _, getErr := s.repomanager.Keys(s.db).Get(ctx, name); getErr == nil {
			return common.KeyExists, nil
		}
		return common.GenericError, fmt.Errorf("add key: %w: %w", common.ErrStore, err)
	}

	if outcome == common.KeyAdded {
		s.events.Emit(ctx, events.SubjectKeyAdded, events.KeyAdded{Name: name, At: now})
	}
	return outcome, nil
}

// Revalidate marks an existing key valid as of now.
func (s *KeyStore) Revalidate(ctx context.Context, name string) (common.Outcome, error) {
	ok, err := s.repomanager.Keys(s.db).Revalidate(ctx, name, s.clock.Now())
	if err != nil {
		return common.GenericError, fmt.Errorf("revalidate key: %w: %w", common.ErrStore, err)
	}
	if !ok {
		return common.KeyMissing, nil
	}
	return common.KeyValidated, nil
}

// InvalidateExpired clears valid on every key last validated maxAge or more
// ago and returns exactly those names. It returns common.ErrNothingExpired
// when no key qualified.
func (s *KeyStore) InvalidateExpired(ctx context.Context) ([]string, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.maxAge)

	var names []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		names, err = s.repomanager.Keys(tx).InvalidateExpired(ctx, cutoff)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("invalidate expired keys: %w: %w", common.ErrStore, err)
	}
	if len(names) == 0 {
		return nil, common.ErrNothingExpired
	}

	s.events.Emit(ctx, events.SubjectKeysExpired, events.KeysExpired{Names: names, At: now})
	return names, nil
}

// Lookup returns the stored key or common.ErrorNotFound.
func (s *KeyStore) Lookup(ctx context.Context, name string) (*models.Key, error) {
	return s.repomanager.Keys(s.db).Get(ctx, name)
}
