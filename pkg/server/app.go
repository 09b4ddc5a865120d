package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MicroTrade/internal/domain/repository"
	"MicroTrade/internal/ledger"
	"MicroTrade/internal/service/venue"
	"MicroTrade/internal/services/learning"
	"MicroTrade/internal/usecase"
	pkgch "MicroTrade/pkg/clickhouse"
	"MicroTrade/pkg/config"
	xhttp "MicroTrade/pkg/http"
	applogger "MicroTrade/pkg/logger"
)

const seedLoadLimit = 10_000

// App encapsulates the entire application lifecycle: warm start from the
// trade store, the market feed, the decision engine, the learning loop, and
// the status HTTP server.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	engine      *usecase.Engine
	feed        *venue.Feed
	loop        *learning.Loop
	ldg         *ledger.Ledger
	store       repository.TradeStore // nil when ClickHouse is disabled
	events      repository.EventSink
	chClient    *pkgch.Client
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	engine *usecase.Engine,
	feed *venue.Feed,
	loop *learning.Loop,
	ldg *ledger.Ledger,
	store repository.TradeStore,
	events repository.EventSink,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		l:           l,
		engine:      engine,
		feed:        feed,
		loop:        loop,
		ldg:         ldg,
		store:       store,
		events:      events,
		chClient:    chClient,
		httpHandler: httpHandler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.seed(ctx); err != nil {
		return err
	}
	a.loop.Restore(ctx)

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestLogger(a.l),
	)

	go func() {
		if err := a.feed.Run(ctx); err != nil {
			a.l.Error("market feed stopped", applogger.Error(err))
		}
	}()
	a.l.Info("market feed started", applogger.Strings("symbols", a.cfg.Trading.Symbols))

	go a.loop.Run(ctx, a.engine.Wake())

	go func() {
		if err := a.engine.Run(ctx); err != nil {
			a.l.Error("decision engine stopped", applogger.Error(err))
		}
	}()

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// seed prepares the store schema and replays persisted history into the
// ledger so metrics and training survive restarts.
func (a *App) seed(ctx context.Context) error {
	if a.store == nil {
		return nil
	}

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := a.store.Init(initCtx); err != nil {
		return err
	}

	trades, err := a.store.LoadTrades(initCtx, seedLoadLimit)
	if err != nil {
		a.l.Warn("trade history load failed, starting empty", applogger.Error(err))
		return nil
	}
	positions, err := a.store.LoadPositions(initCtx)
	if err != nil {
		a.l.Warn("open position load failed", applogger.Error(err))
	}
	a.ldg.Seed(trades, positions)
	a.l.Info("ledger seeded",
		applogger.Int("trades", len(trades)),
		applogger.Int("open_positions", len(positions)))
	return nil
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.feed.Close(); err != nil {
		a.l.Warn("feed close error", applogger.Error(err))
	}

	// the sink owns the Kafka producer and closes it
	if err := a.events.Close(); err != nil {
		a.l.Warn("event sink close error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
