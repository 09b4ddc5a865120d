package usecase

import (
	"context"
	"sync"
	"time"

	drepo "MicroTrade/internal/domain/repository"
	"MicroTrade/internal/ledger"
	"MicroTrade/pkg/logger"
)

// EngineConfig tunes the decision cycle.
type EngineConfig struct {
	Interval time.Duration // time between cycles
	Workers  int           // instruments evaluated concurrently
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{Interval: 60 * time.Second, Workers: 4}
}

// Engine drives all traders through periodic decision cycles. Each cycle
// fans the instruments out over a bounded worker pool, waits for every slot
// to finish, snapshots open positions, then wakes the learning loop.
type Engine struct {
	cfg     EngineConfig
	traders []*Trader
	ldg     *ledger.Ledger
	store   drepo.TradeStore
	metrics drepo.Metrics
	l       *logger.Logger

	wake chan struct{}
}

func NewEngine(
	cfg EngineConfig,
	traders []*Trader,
	ldg *ledger.Ledger,
	store drepo.TradeStore,
	metrics drepo.Metrics,
	l *logger.Logger,
) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{
		cfg:     cfg,
		traders: traders,
		ldg:     ldg,
		store:   store,
		metrics: metrics,
		l:       l,
		wake:    make(chan struct{}, 1),
	}
}

// Wake delivers one signal after each completed cycle; the learning loop
// selects on it.
func (e *Engine) Wake() <-chan struct{} { return e.wake }

// Run executes cycles until the context is canceled. The first cycle starts
// immediately. In-flight evaluations drain before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	e.l.Info("decision engine started",
		logger.Int("instruments", len(e.traders)),
		logger.Duration("interval", e.cfg.Interval),
		logger.Int("workers", e.cfg.Workers))

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	e.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			e.l.Info("decision engine stopped")
			return nil
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

// RunCycle steps every trader once, bounded by the worker pool.
func (e *Engine) RunCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()

	sem := make(chan struct{}, e.cfg.Workers)
	var wg sync.WaitGroup
	for _, t := range e.traders {
		wg.Add(1)
		go func(t *Trader) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			t.Step(ctx)
		}(t)
	}
	wg.Wait()

	open := e.ldg.OpenPositions()
	if e.store != nil {
		if err := e.store.SavePositions(ctx, open); err != nil {
			e.l.Warn("open position snapshot failed", logger.Error(err))
		}
	}

	e.metrics.RecordOpenPositions(len(open))
	e.metrics.RecordCycle(time.Since(start).Seconds())

	select {
	case e.wake <- struct{}{}:
	default: // learning loop still busy with the previous cycle
	}
}
