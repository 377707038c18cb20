package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/logging"
	"github.com/dmitrijs2005/gophlicense/internal/server/metrics"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSweepInterval    = time.Second
	DefaultSweepParallelism = 16
)

// Sweeper periodically probes every session and drops the ones whose peer
// stopped answering. It is idle until EnsureRunning is first called.
type Sweeper struct {
	registry    *Registry
	prober      Prober
	clock       clockwork.Clock
	interval    time.Duration
	parallelism int
	logger      logging.Logger
	metrics     *metrics.Metrics
	onClosed    func(ctx context.Context, s *Session)

	startOnce sync.Once
	start     chan struct{}
}

type SweeperOption func(*Sweeper)

func WithClock(c clockwork.Clock) SweeperOption {
	return func(s *Sweeper) { s.clock = c }
}

func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithParallelism(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

func WithLogger(l logging.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) { s.metrics = m }
}

// WithOnClosed registers a hook run after a dead session is removed.
func WithOnClosed(fn func(ctx context.Context, s *Session)) SweeperOption {
	return func(s *Sweeper) { s.onClosed = fn }
}

func NewSweeper(registry *Registry, prober Prober, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		registry:    registry,
		prober:      prober,
		clock:       clockwork.NewRealClock(),
		interval:    DefaultSweepInterval,
		parallelism: DefaultSweepParallelism,
		logger:      logging.Nop{},
		start:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("module", "liveness")
	if s.metrics == nil {
		s.metrics = metrics.NewUnregistered()
	}
	return s
}

// EnsureRunning releases Run on the first call; later calls do nothing.
func (s *Sweeper) EnsureRunning() {
	s.startOnce.Do(func() { close(s.start) })
}

// Run blocks until ctx is done. Sweeping begins once EnsureRunning fires.
func (s *Sweeper) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-s.start:
	}

	s.logger.Info(ctx, "liveness sweeper started", "interval", s.interval.String())

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cycle: probe every session outside the registry lock,
// then remove all that failed. It returns the removed sessions.
func (s *Sweeper) Sweep(ctx context.Context) []*Session {
	snapshot := s.registry.Snapshot()
	if len(snapshot) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		dead []*Session
	)

	g := new(errgroup.Group)
	g.SetLimit(s.parallelism)
	for _, sess := range snapshot {
		g.Go(func() error {
			err := s.prober.Probe(ctx, sess.Channel)
			switch {
			case err == nil:
			case errors.Is(err, ErrChannelBusy):
				s.logger.Debug(ctx, "session busy, probe skipped", "user", sess.Name)
			default:
				s.metrics.ProbeFailures.Inc()
				s.logger.Debug(ctx, "probe failed", "user", sess.Name, "error", err)
				mu.Lock()
				dead = append(dead, sess)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	var removed []*Session
	for _, sess := range dead {
		if !s.registry.RemoveSession(sess) {
			continue
		}
		_ = sess.Channel.Close()
		removed = append(removed, sess)

		s.metrics.SessionsClosed.WithLabelValues("disconnected").Inc()
		s.logger.Info(ctx, "User "+sess.Name+" disconnected.", "user", sess.Name, "session_id", sess.ID)
		if s.onClosed != nil {
			s.onClosed(ctx, sess)
		}
	}
	return removed
}
