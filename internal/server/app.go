// Package server wires the license server components together and runs
// them until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/dbx"
	"github.com/dmitrijs2005/gophlicense/internal/filex"
	"github.com/dmitrijs2005/gophlicense/internal/logging"
	"github.com/dmitrijs2005/gophlicense/internal/server/config"
	"github.com/dmitrijs2005/gophlicense/internal/server/dispatch"
	"github.com/dmitrijs2005/gophlicense/internal/server/events"
	"github.com/dmitrijs2005/gophlicense/internal/server/expiry"
	"github.com/dmitrijs2005/gophlicense/internal/server/httpapi"
	"github.com/dmitrijs2005/gophlicense/internal/server/metrics"
	"github.com/dmitrijs2005/gophlicense/internal/server/payload"
	"github.com/dmitrijs2005/gophlicense/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophlicense/internal/server/services"
	"github.com/dmitrijs2005/gophlicense/internal/server/sessions"
	"github.com/dmitrijs2005/gophlicense/internal/server/shared/db"
	"github.com/dmitrijs2005/gophlicense/internal/server/tcp"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/gophlicense/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	registry *sessions.Registry
	creds    *services.CredentialService

	listener *tcp.Server
	liveness *sessions.Sweeper
	expiry   *expiry.Sweeper
	http     *httpapi.Server
	grpc     *gs.GRPCServer

	publisher events.Publisher
	closers   []io.Closer
}

// NewApp opens the store, applies migrations and builds every component.
// The caller must Close the App if Run is never called.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (_ *App, err error) {
	app := &App{config: c, logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	dialect := dbx.Dialect(c.DatabaseDriver)
	rm, err := repomanager.NewSQLRepositoryManager(dialect)
	if err != nil {
		return nil, err
	}

	if dialect == dbx.SQLite && isSQLiteFilePath(c.DatabaseDSN) {
		if err := filex.EnsureParentDir(c.DatabaseDSN); err != nil {
			return nil, err
		}
	}

	app.db, err = db.Open(ctx, dialect, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, app.db); err != nil {
		return nil, err
	}

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	app.publisher = events.Nop{}
	if c.NatsURL != "" {
		pub, err := events.NewNATSPublisher(c.NatsURL)
		if err != nil {
			return nil, fmt.Errorf("nats connect: %w", err)
		}
		app.publisher = pub
	}
	emitter := events.NewEmitter(app.publisher, logger)

	clock := clockwork.NewRealClock()
	app.registry = sessions.NewRegistry(sessions.WithActiveGauge(m.ActiveSessions))

	keyStore := services.NewKeyStore(app.db, rm, clock, c.KeyMaxAge, emitter)
	app.creds = services.NewCredentialService(app.db, rm, app.registry, clock, emitter)

	source, err := newPayloadSource(ctx, c)
	if err != nil {
		return nil, err
	}
	deliverer := payload.NewDeliverer(source, c.PayloadImage, c.PayloadOffsets, m)

	app.liveness = sessions.NewSweeper(app.registry,
		sessions.EchoProber{Timeout: c.LivenessTimeout},
		sessions.WithClock(clock),
		sessions.WithInterval(c.LivenessInterval),
		sessions.WithParallelism(c.LivenessParallelism),
		sessions.WithLogger(logger),
		sessions.WithMetrics(m),
		sessions.WithOnClosed(app.creds.SessionClosed),
	)

	app.expiry = expiry.NewSweeper(keyStore, clock, expiry.Config{
		CheckInterval: c.ExpiryCheckInterval,
		Threshold:     c.ExpiryThreshold,
	}, logger, m)

	d := dispatch.New(keyStore, app.creds, deliverer, app.liveness, dispatch.Config{
		Admin:           dispatch.Admin{Name: c.AdminName, Password: c.AdminPassword},
		OpTimeout:       c.OpTimeout,
		DeliveryTimeout: c.DeliveryTimeout,
	}, logger, m)

	var connLog logging.Logger
	if c.ConnLogPath != "" {
		if err := filex.EnsureParentDir(c.ConnLogPath); err != nil {
			return nil, err
		}
		l, closer, err := logging.NewFileLogger(c.ConnLogPath)
		if err != nil {
			return nil, err
		}
		connLog = l
		app.closers = append(app.closers, closer)
	}

	app.listener = tcp.NewServer(c.ListenAddr, d, tcp.Config{
		RequestTimeout: c.RequestTimeout,
		AcceptRate:     c.AcceptRate,
		AcceptBurst:    c.AcceptBurst,
	}, logger, connLog, m)

	if c.MetricsAddr != "" {
		app.http = httpapi.NewServer(c.MetricsAddr, httpapi.NewRouter(metrics.Handler(reg), app.db, app.registry, keyStore), logger)
	}
	if c.EndpointAddrGRPC != "" {
		app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger)
	}

	return app, nil
}

// newPayloadSource picks S3 when either payload location is an s3:// URL.
func newPayloadSource(ctx context.Context, c *config.Config) (payload.Source, error) {
	router := payload.Router{File: payload.FileSource{}}
	if !payload.IsS3Location(c.PayloadImage) && !payload.IsS3Location(c.PayloadOffsets) {
		return router, nil
	}

	s3src, err := payload.NewS3Source(ctx, payload.S3Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, err
	}
	router.S3 = s3src
	return router, nil
}

func isSQLiteFilePath(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is done, a signal arrives or a component fails.
// Open sessions are closed and resources released before it returns.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return app.listener.Run(gctx) })
	g.Go(func() error { return app.liveness.Run(gctx) })
	g.Go(func() error { return app.expiry.Run(gctx) })
	if app.http != nil {
		g.Go(func() error { return app.http.Run(gctx) })
	}
	if app.grpc != nil {
		g.Go(func() error { return app.grpc.Run(gctx) })
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "component failed", "error", err)
	}

	app.shutdownSessions()
	app.Close()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

func (app *App) shutdownSessions() {
	if app.registry == nil || app.creds == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, s := range app.registry.Snapshot() {
		app.creds.EndSession(ctx, s, "shutdown")
	}
}

// Close releases the publisher, the log sinks and the store. It is safe to
// call more than once.
func (app *App) Close() {
	if app.publisher != nil {
		app.publisher.Close()
		app.publisher = nil
	}
	for _, c := range app.closers {
		_ = c.Close()
	}
	app.closers = nil
	if app.db != nil {
		_ = app.db.Close()
		app.db = nil
	}
}
