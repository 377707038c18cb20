package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/dmitrijs2005/gophlicense/internal/cryptox"
	"github.com/dmitrijs2005/gophlicense/internal/dbx"
	"github.com/dmitrijs2005/gophlicense/internal/server/events"
	"github.com/dmitrijs2005/gophlicense/internal/server/models"
	"github.com/dmitrijs2005/gophlicense/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophlicense/internal/server/sessions"
	"github.com/jonboulle/clockwork"
)

// CredentialService registers accounts against license keys and manages
// logins in the session registry.
type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	registry    *sessions.Registry
	clock       clockwork.Clock
	events      *events.Emitter
}

func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, registry *sessions.Registry, clock clockwork.Clock, emitter *events.Emitter) *CredentialService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CredentialService{
		db:          db,
		repomanager: m,
		registry:    registry,
		clock:       clock,
		events:      emitter,
	}
}

// Register creates the account and consumes the key in one transaction.
func (s *CredentialService) Register(ctx context.Context, name, password, code string) (common.Outcome, error) {
	if o := checkFields(registerFields{Name: name, Password: password, Code: code}); o != "" {
		return o, nil
	}

	hash, salt := cryptox.HashPassword([]byte(password))
	now := s.clock.Now()
	outcome := common.Registered

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		userRepo := s.repomanager.Users(tx)
		keyRepo := s.repomanager.Keys(tx)

		exists, err := userRepo.Exists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			outcome = common.UserExists
			return nil
		}

		key, err := keyRepo.Get(ctx, code)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				outcome = common.KeyMissing
				return nil
			}
			return err
		}
		if key.Used {
			outcome = common.KeyInUse
			return nil
		}

		// conditional on used = false: of two racing registrations only
		// one consumes the key
		activated, err := keyRepo.Activate(ctx, code, now)
		if err != nil {
			return err
		}
		if !activated {
			outcome = common.KeyInUse
			return nil
		}

		return userRepo.Create(ctx, &models.User{
			Name:         name,
			PasswordHash: hash,
			PasswordSalt: salt,
			Code:         code,
			CreatedAt:    now,
		})
	})
	if errors.Is(err, common.ErrorAlreadyExists) {
		// a concurrent Register took the name; the key activation rolled back
		return common.UserExists, nil
	}
	if err != nil {
		return common.GenericError, fmt.Errorf("register user: %w: %w", common.ErrStore, err)
	}

	if outcome == common.Registered {
		s.events.Emit(ctx, events.SubjectUserRegistered, events.UserRegistered{Name: name, Code: code, At: now})
	}
	return outcome, nil
}

// Login checks credentials and the bound key, then adds a session on ch.
// On success the returned session owns ch.
func (s *CredentialService) Login(ctx context.Context, name, password string, ch *sessions.Channel) (common.Outcome, *sessions.Session, error) {
	if o := checkFields(loginFields{Name: name, Password: password}); o != "" {
		return o, nil, nil
	}

	user, err := s.repomanager.Users(s.db).GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.UserNotFound, nil, nil
		}
		return common.GenericError, nil, fmt.Errorf("login: %w: %w", common.ErrStore, err)
	}

	// the key is the one bound at registration, never the one supplied
	key, err := s.repomanager.Keys(s.db).Get(ctx, user.Code)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.KeyMissing, nil, nil
		}
		return common.GenericError, nil, fmt.Errorf("login: %w: %w", common.ErrStore, err)
	}
	if !key.Valid {
		return common.KeyExpired, nil, nil
	}

	if !cryptox.VerifyPassword([]byte(password), user.PasswordSalt, user.PasswordHash) {
		return common.WrongPassword, nil, nil
	}

	sess := sessions.NewSession(name, user.Code, ch, s.clock.Now())
	if !s.registry.Add(sess) {
		return common.AlreadyLogged, nil, nil
	}

	s.events.Emit(ctx, events.SubjectSessionOpened, events.SessionOpened{
		Name:      name,
		SessionID: sess.ID,
		Remote:    ch.RemoteAddr(),
		At:        sess.LoggedInAt,
	})
	return common.LoggedIn, sess, nil
}

// Logout removes the session for name if there is one and closes its
// connection. It always reports LoggedOut.
func (s *CredentialService) Logout(ctx context.Context, name string) common.Outcome {
	if sess := s.registry.Remove(name); sess != nil {
		s.closed(ctx, sess, "logout")
	}
	return common.LoggedOut
}

// EndSession removes sess if it is still the active session for its user,
// for example when its connection breaks during payload delivery.
func (s *CredentialService) EndSession(ctx context.Context, sess *sessions.Session, reason string) {
	if s.registry.RemoveSession(sess) {
		s.closed(ctx, sess, reason)
	}
}

// SessionClosed publishes the close of a session removed elsewhere, such as
// by the liveness sweeper.
func (s *CredentialService) SessionClosed(ctx context.Context, sess *sessions.Session) {
	s.publishClosed(ctx, sess, "disconnected")
}

func (s *CredentialService) closed(ctx context.Context, sess *sessions.Session, reason string) {
	_ = sess.Channel.Close()
	s.publishClosed(ctx, sess, reason)
}

func (s *CredentialService) publishClosed(ctx context.Context, sess *sessions.Session, reason string) {
	s.events.Emit(ctx, events.SubjectSessionClosed, events.SessionClosed{
		Name:      sess.Name,
		SessionID: sess.ID,
		Reason:    reason,
		At:        s.clock.Now(),
	})
}
