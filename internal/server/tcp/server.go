// Package tcp accepts license client connections, reads one request record
// per connection and hands it to a Handler.
package tcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/logging"
	"github.com/dmitrijs2005/gophlicense/internal/netx"
	"github.com/dmitrijs2005/gophlicense/internal/protocol"
	"github.com/dmitrijs2005/gophlicense/internal/server/metrics"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const maxAcceptBackoff = time.Second

// Handler serves one decoded request. It reports whether it kept conn; the
// server closes conn otherwise.
type Handler interface {
	Handle(ctx context.Context, conn net.Conn, req protocol.Request) bool
}

type Config struct {
	// RequestTimeout bounds the wait for the request record.
	RequestTimeout time.Duration
	// AcceptRate is connections per second; zero or less disables limiting.
	AcceptRate  float64
	AcceptBurst int
}

type Server struct {
	address string
	handler Handler
	cfg     Config
	limiter *rate.Limiter
	logger  logging.Logger
	connLog logging.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

// NewServer builds a listener for address. connLog records one line per
// accepted connection and may be nil.
func NewServer(address string, h Handler, cfg Config, logger, connLog logging.Logger, m *metrics.Metrics) *Server {
	limit := rate.Inf
	if cfg.AcceptRate > 0 {
		limit = rate.Limit(cfg.AcceptRate)
	}
	burst := cfg.AcceptBurst
	if burst < 1 {
		burst = 1
	}
	if connLog == nil {
		connLog = logging.Nop{}
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}

	return &Server{
		address: address,
		handler: h,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With("module", "tcp_server"),
		connLog: connLog,
		metrics: m,
	}
}

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts on listen until ctx is done, then waits for in-flight
// requests to finish.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping license listener...")
		_ = listen.Close()
	}()

	s.logger.Info(ctx, "Starting license listener", "address", listen.Addr().String())

	var backoff time.Duration
	for {
		conn, err := listen.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}

			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > maxAcceptBackoff {
				backoff = maxAcceptBackoff
			}
			s.logger.Warn(ctx, "accept failed", "error", err, "retry_in", backoff.String())

			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			}
		}
		backoff = 0

		if !s.limiter.Allow() {
			s.metrics.ConnectionsRejected.Inc()
			s.logger.Debug(ctx, "connection rejected by rate limit", "remote", netx.RemoteIP(conn.RemoteAddr()))
			_ = conn.Close()
			continue
		}

		s.metrics.ConnectionsAccepted.Inc()
		id := uuid.NewString()
		s.connLog.Info(ctx, "connection",
			"conn_id", id,
			"remote_ip", netx.RemoteIP(conn.RemoteAddr()),
			"at", time.Now().UTC().Format(time.RFC3339),
		)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, id, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, id string, conn net.Conn) {
	if s.cfg.RequestTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.RequestTimeout))
	}

	req, err := protocol.ReadRequest(conn)
	if err != nil {
		if netx.IsTimeout(err) {
			s.logger.Debug(ctx, "request read timed out", "conn_id", id)
		} else {
			s.logger.Debug(ctx, "request read failed", "conn_id", id, "error", err)
		}
		_ = conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	if !s.handler.Handle(ctx, conn, req) {
		_ = conn.Close()
	}
}
