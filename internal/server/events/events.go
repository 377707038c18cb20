// Package events publishes license lifecycle notifications. Publication is
// best-effort: a failed publish is logged and never fails the request.
package events

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/logging"
)

const (
	SubjectKeyAdded       = "license.key.added"
	SubjectUserRegistered = "license.user.registered"
	SubjectKeysExpired    = "license.keys.expired"
	SubjectSessionOpened  = "license.session.opened"
	SubjectSessionClosed  = "license.session.closed"
)

type KeyAdded struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

type UserRegistered struct {
	Name string    `json:"name"`
	Code string    `json:"code"`
	At   time.Time `json:"at"`
}

type KeysExpired struct {
	Names []string  `json:"names"`
	At    time.Time `json:"at"`
}

type SessionOpened struct {
	Name      string    `json:"name"`
	SessionID string    `json:"session_id"`
	Remote    string    `json:"remote,omitempty"`
	At        time.Time `json:"at"`
}

type SessionClosed struct {
	Name      string    `json:"name"`
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

// Publisher sends v, JSON encoded, on subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
	Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close()                                     {}

// Emitter fires events and logs publish failures. The zero value and a nil
// *Emitter are both usable and drop events.
type Emitter struct {
	pub    Publisher
	logger logging.Logger
}

func NewEmitter(pub Publisher, logger logging.Logger) *Emitter {
	if pub == nil {
		pub = Nop{}
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Emitter{pub: pub, logger: logger.With("module", "events")}
}

func (e *Emitter) Emit(ctx context.Context, subject string, v any) {
	if e == nil || e.pub == nil {
		return
	}
	if err := e.pub.Publish(ctx, subject, v); err != nil {
		e.logger.Warn(ctx, "event publish failed", "subject", subject, "error", err)
	}
}
