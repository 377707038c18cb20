// Package expiry periodically invalidates license keys that have not been
// revalidated within their maximum age.
package expiry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/dmitrijs2005/gophlicense/internal/logging"
	"github.com/dmitrijs2005/gophlicense/internal/server/metrics"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultCheckInterval = time.Hour
	DefaultThreshold     = 4 * time.Hour
)

// Invalidator is the slice of the key store the sweeper needs.
type Invalidator interface {
	InvalidateExpired(ctx context.Context) ([]string, error)
}

type Config struct {
	// CheckInterval is how often the sweeper wakes up.
	CheckInterval time.Duration
	// Threshold is the minimum time between two invalidation runs.
	Threshold time.Duration
}

type Sweeper struct {
	store   Invalidator
	clock   clockwork.Clock
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	lastRun time.Time
}

func NewSweeper(store Invalidator, clock clockwork.Clock, cfg Config, logger logging.Logger, m *metrics.Metrics) *Sweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Sweeper{
		store:   store,
		clock:   clock,
		cfg:     cfg,
		logger:  logger.With("module", "expiry"),
		metrics: m,
	}
}

// Run invalidates once immediately, then checks every CheckInterval and
// re-runs whenever Threshold has elapsed since the previous run. It returns
// when ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.RunNow(ctx)

	ticker := s.clock.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			s.Check(ctx)
		}
	}
}

// Check runs an invalidation if Threshold has elapsed since the last run and
// reports whether it did.
func (s *Sweeper) Check(ctx context.Context) bool {
	s.mu.Lock()
	due := s.clock.Since(s.lastRun) >= s.cfg.Threshold
	s.mu.Unlock()

	if !due {
		return false
	}
	s.RunNow(ctx)
	return true
}

// RunNow invalidates expired keys and resets the reference time. Store
// failures are logged; the next run retries.
func (s *Sweeper) RunNow(ctx context.Context) []string {
	s.mu.Lock()
	s.lastRun = s.clock.Now()
	s.mu.Unlock()

	names, err := s.store.InvalidateExpired(ctx)
	switch {
	case errors.Is(err, common.ErrNothingExpired):
		s.metrics.ExpirySweeps.WithLabelValues("nothing").Inc()
		s.logger.Debug(ctx, "no keys expired")
		return nil
	case err != nil:
		s.metrics.ExpirySweeps.WithLabelValues("error").Inc()
		s.logger.Error(ctx, "key invalidation failed", "error", err)
		return nil
	}

	s.metrics.ExpirySweeps.WithLabelValues("expired").Inc()
	s.metrics.KeysInvalidated.Add(float64(len(names)))
	s.logger.Info(ctx, "Keys invalidated: "+strings.Join(names, ", "), "count", len(names))
	return names
}
