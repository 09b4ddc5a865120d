package learning

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"MicroTrade/internal/domain/models"
	"MicroTrade/internal/domain/repository"
	domservice "MicroTrade/internal/domain/service"
	"MicroTrade/internal/ledger"
	"MicroTrade/pkg/cache"
	"MicroTrade/pkg/logger"
)

var modelStateCacheKey = cache.GenerateKey("microtrade", "model_state")

// LoopConfig controls the retraining trigger.
type LoopConfig struct {
	RetrainIncrement int  // new trades since last training before retraining
	Enabled          bool // disables retraining entirely when false
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{RetrainIncrement: 20, Enabled: true}
}

// Loop owns the active model state. Traders read it lock-free through
// Active(); retraining happens on the loop's own goroutine and publishes a
// finished state with a single atomic store.
type Loop struct {
	cfg     LoopConfig
	trainer domservice.Trainer
	ldg     *ledger.Ledger
	store   cache.Service // best-effort warm-start persistence, may be nil
	events  repository.EventSink
	metrics repository.Metrics
	l       *logger.Logger

	active      atomic.Pointer[models.ModelState]
	lastTrained atomic.Int64 // ledger size at the last successful training
}

func NewLoop(
	cfg LoopConfig,
	trainer domservice.Trainer,
	ldg *ledger.Ledger,
	store cache.Service,
	events repository.EventSink,
	metrics repository.Metrics,
	l *logger.Logger,
) *Loop {
	return &Loop{
		cfg:     cfg,
		trainer: trainer,
		ldg:     ldg,
		store:   store,
		events:  events,
		metrics: metrics,
		l:       l,
	}
}

// Active returns the current model state, nil before the first training.
func (lp *Loop) Active() *models.ModelState {
	return lp.active.Load()
}

// Restore loads a persisted model state so a restart does not begin cold.
func (lp *Loop) Restore(ctx context.Context) {
	if lp.store == nil {
		return
	}
	var raw string
	if err := lp.store.Get(ctx, modelStateCacheKey, &raw); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			lp.l.Warn("model state restore failed", logger.Error(err))
		}
		return
	}
	var state models.ModelState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		lp.l.Warn("persisted model state unreadable, starting cold", logger.Error(err))
		return
	}
	lp.active.Store(&state)
	lp.lastTrained.Store(int64(state.TrainedCount))
	lp.l.Info("model state restored",
		logger.Int("version", state.Version),
		logger.Int("trained_count", state.TrainedCount))
}

// MaybeRetrain retrains when enough new trades have accumulated since the
// last successful training. It runs synchronously; callers decide the
// goroutine. Skipped or failed training leaves the active state untouched.
func (lp *Loop) MaybeRetrain(ctx context.Context) {
	if !lp.cfg.Enabled {
		return
	}
	count := lp.ldg.Len()
	if count-int(lp.lastTrained.Load()) < lp.cfg.RetrainIncrement {
		return
	}

	started := time.Now()
	state, err := lp.trainer.Train(lp.ldg.All())
	if err != nil {
		if errors.Is(err, ErrTrainingSkipped) {
			lp.l.Debug("retraining skipped", logger.Error(err))
		} else {
			lp.l.Error("retraining failed", logger.Error(err))
			lp.metrics.RecordError("training")
		}
		return
	}

	prev := lp.active.Load()
	if prev != nil {
		state.Version = prev.Version + 1
	} else {
		state.Version = 1
	}
	lp.active.Store(state)
	lp.lastTrained.Store(int64(state.TrainedCount))
	lp.metrics.RecordModelVersion(state.Version)
	lp.persist(ctx, state)

	if lp.events != nil {
		_ = lp.events.Emit(ctx, repository.Event{
			Kind:      "retrain",
			Version:   state.Version,
			Timestamp: time.Now().Unix(),
		})
	}
	lp.l.Info("model retrained",
		logger.Int("version", state.Version),
		logger.Int("trained_count", state.TrainedCount),
		logger.Duration("took", time.Since(started)))
}

func (lp *Loop) persist(ctx context.Context, state *models.ModelState) {
	if lp.store == nil {
		return
	}
	raw, err := json.Marshal(state)
	if err != nil {
		lp.l.Warn("model state marshal failed", logger.Error(err))
		return
	}
	if err := lp.store.Set(ctx, modelStateCacheKey, string(raw), 0); err != nil {
		lp.l.Warn("model state persist failed", logger.Error(err))
	}
}

// Run services retraining wake-ups until the context ends. The engine sends
// on wake after each completed cycle; training here keeps the trading path
// free of fit latency.
func (lp *Loop) Run(ctx context.Context, wake <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			lp.MaybeRetrain(ctx)
		}
	}
}
