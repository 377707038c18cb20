// Package dispatch routes decoded requests to the key store and credential
// service and writes the textual outcome back to the client.
package dispatch

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/dmitrijs2005/gophlicense/internal/cryptox"
	"github.com/dmitrijs2005/gophlicense/internal/logging"
	"github.com/dmitrijs2005/gophlicense/internal/protocol"
	"github.com/dmitrijs2005/gophlicense/internal/server/metrics"
	"github.com/dmitrijs2005/gophlicense/internal/server/sessions"
)

type KeyStore interface {
	AddKey(ctx context.Context, name string) (common.Outcome, error)
	Revalidate(ctx context.Context, name string) (common.Outcome, error)
}

type Credentials interface {
	Register(ctx context.Context, name, password, code string) (common.Outcome, error)
	Login(ctx context.Context, name, password string, ch *sessions.Channel) (common.Outcome, *sessions.Session, error)
	EndSession(ctx context.Context, sess *sessions.Session, reason string)
}

type Deliverer interface {
	Deliver(ctx context.Context, w io.Writer) error
}

type Liveness interface {
	EnsureRunning()
}

// Admin holds the credentials required for ADDKEY and VALIDATE.
type Admin struct {
	Name     string
	Password string
}

type Config struct {
	Admin Admin
	// OpTimeout bounds store work and the response write.
	OpTimeout time.Duration
	// DeliveryTimeout bounds streaming the payload after login.
	DeliveryTimeout time.Duration
}

type Dispatcher struct {
	keys     KeyStore
	creds    Credentials
	payload  Deliverer
	liveness Liveness
	cfg      Config
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func New(keys KeyStore, creds Credentials, payload Deliverer, liveness Liveness, cfg Config, logger logging.Logger, m *metrics.Metrics) *Dispatcher {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 10 * time.Second
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Dispatcher{
		keys:     keys,
		creds:    creds,
		payload:  payload,
		liveness: liveness,
		cfg:      cfg,
		logger:   logger.With("module", "dispatch"),
		metrics:  m,
	}
}

// Handle serves req on conn. It reports whether conn now belongs to a
// session; when false the caller closes it.
func (d *Dispatcher) Handle(ctx context.Context, conn net.Conn, req protocol.Request) (kept bool) {
	start := time.Now()
	outcome, kind := common.UnknownRequest, common.KindUnknown

	defer func() {
		d.metrics.Requests.WithLabelValues(req.Tag.String(), kind.String()).Inc()
		d.metrics.RequestDuration.WithLabelValues(req.Tag.String()).Observe(time.Since(start).Seconds())
	}()

	if req.Tag == protocol.TagLogin {
		_, kind, kept = d.login(ctx, conn, req)
		return kept
	}

	opCtx, cancel := context.WithTimeout(ctx, d.cfg.OpTimeout)
	defer cancel()

	switch req.Tag {
	case protocol.TagRegister:
		outcome, kind = d.register(opCtx, req)
	case protocol.TagAddKey:
		outcome, kind = d.addKey(opCtx, req)
	case protocol.TagValidate:
		outcome, kind = d.validate(opCtx, req)
	default:
		d.logger.Debug(ctx, "unknown request", "tag", uint64(req.Tag))
	}

	d.respond(ctx, conn, outcome)
	return false
}

func (d *Dispatcher) register(ctx context.Context, req protocol.Request) (common.Outcome, common.Kind) {
	o, err := d.creds.Register(ctx, req.Name, req.Password, req.Key)
	if err != nil {
		return d.storeFailure(ctx, "register", err)
	}
	if o == common.Registered {
		d.logger.Info(ctx, "User "+req.Name+" registered.", "user", req.Name)
	}
	return o, o.Kind()
}

func (d *Dispatcher) addKey(ctx context.Context, req protocol.Request) (common.Outcome, common.Kind) {
	if !d.isAdmin(req) {
		d.logger.Warn(ctx, "admin check failed", "request", req.Tag.String())
		return common.GenericError, common.KindAuth
	}
	o, err := d.keys.AddKey(ctx, req.Key)
	if err != nil {
		return d.storeFailure(ctx, "add_key", err)
	}
	if o == common.KeyAdded {
		d.logger.Info(ctx, "Key added", "key", req.Key)
	}
	return o, o.Kind()
}

func (d *Dispatcher) validate(ctx context.Context, req protocol.Request) (common.Outcome, common.Kind) {
	if !d.isAdmin(req) {
		d.logger.Warn(ctx, "admin check failed", "request", req.Tag.String())
		return common.GenericError, common.KindAuth
	}
	o, err := d.keys.Revalidate(ctx, req.Key)
	if err != nil {
		return d.storeFailure(ctx, "validate", err)
	}
	return o, o.Kind()
}

// login runs with exclusive use of the channel, so the liveness sweeper
// cannot interleave a probe with the response or the payload.
func (d *Dispatcher) login(ctx context.Context, conn net.Conn, req protocol.Request) (common.Outcome, common.Kind, bool) {
	ch := sessions.NewChannel(conn)
	outcome, kind := common.GenericError, common.KindFault
	var sess *sessions.Session

	_ = ch.Exclusive(func(conn net.Conn) error {
		opCtx, cancel := context.WithTimeout(ctx, d.cfg.OpTimeout)
		defer cancel()

		var err error
		outcome, sess, err = d.creds.Login(opCtx, req.Name, req.Password, ch)
		if err != nil {
			outcome, kind = d.storeFailure(ctx, "login", err)
		} else {
			kind = outcome.Kind()
		}

		if !d.respond(ctx, conn, outcome) {
			if sess != nil {
				d.creds.EndSession(ctx, sess, "write_failed")
			}
			return nil
		}
		if sess == nil {
			return nil
		}

		d.logger.Info(ctx, "User "+sess.Name+" connected.", "user", sess.Name, "session_id", sess.ID, "remote", ch.RemoteAddr())
		if d.liveness != nil {
			d.liveness.EnsureRunning()
		}
		d.deliver(ctx, conn, sess)
		return nil
	})

	return outcome, kind, sess != nil
}

func (d *Dispatcher) deliver(ctx context.Context, conn net.Conn, sess *sessions.Session) {
	if d.payload == nil {
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(d.cfg.DeliveryTimeout))
	defer func() { _ = conn.SetWriteDeadline(time.Time{}) }()

	dctx, cancel := context.WithTimeout(ctx, d.cfg.DeliveryTimeout)
	defer cancel()

	if err := d.payload.Deliver(dctx, conn); err != nil {
		d.logger.Error(ctx, "Failed to send payload", "user", sess.Name, "error", err)
		d.creds.EndSession(ctx, sess, "delivery_failed")
		return
	}
	d.logger.Debug(ctx, "payload sent", "user", sess.Name)
}

// respond writes the outcome and reports whether it went out.
func (d *Dispatcher) respond(ctx context.Context, conn net.Conn, o common.Outcome) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(d.cfg.OpTimeout))
	defer func() { _ = conn.SetWriteDeadline(time.Time{}) }()

	if err := protocol.WriteOutcome(conn, o); err != nil {
		d.logger.Debug(ctx, "response not delivered", "error", err)
		return false
	}
	return true
}

// storeFailure answers Error on the wire but classifies the request as a
// fault, apart from admin mismatches.
func (d *Dispatcher) storeFailure(ctx context.Context, op string, err error) (common.Outcome, common.Kind) {
	d.metrics.StoreErrors.WithLabelValues(op).Inc()
	d.logger.Error(ctx, "store operation failed", "operation", op, "error", err)
	return common.GenericError, common.KindFault
}

// isAdmin compares both fields in constant time and never short-circuits.
// An unset admin password locks the admin commands.
func (d *Dispatcher) isAdmin(req protocol.Request) bool {
	if d.cfg.Admin.Password == "" {
		return false
	}
	nameOK := cryptox.EqualStrings(req.Name, d.cfg.Admin.Name)
	passOK := cryptox.EqualStrings(req.Password, d.cfg.Admin.Password)
	return nameOK && passOK
}
