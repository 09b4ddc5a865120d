package usecase

import (
	"context"
	"fmt"
	"time"

	"MicroTrade/internal/domain/models"
	drepo "MicroTrade/internal/domain/repository"
	domservice "MicroTrade/internal/domain/service"
	"MicroTrade/internal/ledger"
	"MicroTrade/internal/services/features"
	"MicroTrade/internal/services/pricing"
	"MicroTrade/internal/services/risk"
	"MicroTrade/pkg/logger"
)

// TraderState is the per-instrument lifecycle position.
type TraderState string

const (
	StateIdle       TraderState = "idle"
	StateEvaluating TraderState = "evaluating"
	StateOpening    TraderState = "opening"
	StateOpen       TraderState = "open"
	StateClosing    TraderState = "closing"
	StateRejected   TraderState = "rejected"
)

// TraderConfig tunes one instrument's decision behavior.
type TraderConfig struct {
	ConfidenceThreshold float64       // entry gate on predicted probability
	StopLossFraction    float64       // close below entry*(1-frac); 0 disables
	MaxHold             time.Duration // close positions older than this; 0 disables
	MaxVenueRetries     int           // extra attempts after the first
	RetryBackoff        time.Duration // base backoff, doubles per attempt
	HistoryWindow       int           // recent trades fed to feature extraction
}

func DefaultTraderConfig() TraderConfig {
	return TraderConfig{
		ConfidenceThreshold: 0.60,
		StopLossFraction:    0,
		MaxHold:             0,
		MaxVenueRetries:     2,
		RetryBackoff:        250 * time.Millisecond,
		HistoryWindow:       50,
	}
}

// Trader runs the decision lifecycle for exactly one instrument:
// idle -> evaluating -> (rejected -> idle) | opening -> open -> closing -> idle.
// At most one position is open at a time; while open, evaluation is skipped.
type Trader struct {
	symbol string
	cfg    TraderConfig

	market    drepo.MarketData
	account   drepo.Account
	orders    drepo.OrderExecutor
	predictor domservice.Predictor
	modelSrc  domservice.ModelSource
	extractor *features.Extractor
	pricer    *pricing.Engine
	ldg       *ledger.Ledger
	events    drepo.EventSink
	metrics   drepo.Metrics
	l         *logger.Logger

	state         TraderState
	entryFeatures models.FeatureVector
	pending       *models.TradeRecord // close record awaiting a successful append
}

func NewTrader(
	symbol string,
	cfg TraderConfig,
	market drepo.MarketData,
	account drepo.Account,
	orders drepo.OrderExecutor,
	predictor domservice.Predictor,
	modelSrc domservice.ModelSource,
	extractor *features.Extractor,
	pricer *pricing.Engine,
	ldg *ledger.Ledger,
	events drepo.EventSink,
	metrics drepo.Metrics,
	l *logger.Logger,
) *Trader {
	return &Trader{
		symbol:    symbol,
		cfg:       cfg,
		market:    market,
		account:   account,
		orders:    orders,
		predictor: predictor,
		modelSrc:  modelSrc,
		extractor: extractor,
		pricer:    pricer,
		ldg:       ldg,
		events:    events,
		metrics:   metrics,
		l:         l,
		state:     StateIdle,
	}
}

func (t *Trader) Symbol() string     { return t.symbol }
func (t *Trader) State() TraderState { return t.state }

// Step advances the instrument by one cycle. Errors are absorbed into
// metrics and logs; a failed cycle never wedges the trader.
func (t *Trader) Step(ctx context.Context) {
	// a close that could not be persisted blocks everything else
	if t.pending != nil {
		t.settle(ctx, *t.pending)
		return
	}

	if pos, ok := t.ldg.Open(t.symbol); ok {
		t.state = StateOpen
		t.manage(ctx, pos)
		return
	}

	t.state = StateEvaluating
	t.evaluate(ctx)
}

func (t *Trader) evaluate(ctx context.Context) {
	snap, err := t.market.Snapshot(ctx, t.symbol)
	if err != nil {
		t.skip("market data unavailable", err)
		return
	}
	t.metrics.RecordLastPrice(t.symbol, snap.LastPrice)

	recent := t.ldg.History(t.symbol, t.cfg.HistoryWindow)
	fv, err := t.extractor.Extract(snap, recent)
	if err != nil {
		t.skip("feature extraction failed", err)
		return
	}

	params := risk.ParamsFor(snap.LastPrice)
	if err := t.pricer.CheckLiquidity(params, snap); err != nil {
		t.reject(ctx, "liquidity", err)
		return
	}

	pred := t.predictor.Predict(fv, t.modelSrc.Active())
	if pred.Probability < t.cfg.ConfidenceThreshold {
		t.reject(ctx, "confidence", fmt.Errorf("p=%.3f below %.2f (fallback=%v)",
			pred.Probability, t.cfg.ConfidenceThreshold, pred.Fallback))
		return
	}

	bal, err := t.account.Balance(ctx)
	if err != nil {
		t.skip("balance unavailable", err)
		return
	}

	quote, err := t.pricer.Quote(params, snap, bal, t.ldg.CommittedNotional())
	if err != nil {
		t.reject(ctx, "sizing", err)
		return
	}

	t.open(ctx, quote, fv, pred)
}

func (t *Trader) open(ctx context.Context, quote models.Quote, fv models.FeatureVector, pred models.Prediction) {
	t.state = StateOpening
	res, err := t.placeWithRetry(ctx, models.OrderRequest{
		Symbol:   t.symbol,
		Side:     models.SideBuy,
		Price:    quote.BuyPrice,
		Quantity: quote.Quantity,
	})
	if err != nil {
		t.reject(ctx, "venue", err)
		return
	}

	pos := models.Position{
		Symbol:      t.symbol,
		OrderID:     res.OrderID,
		EntryPrice:  res.Price,
		TargetPrice: quote.SellPrice,
		Quantity:    res.Quantity,
		EntryFee:    res.Fee,
		Status:      models.PositionOpen,
		OpenedAt:    res.FilledAt,
	}
	if err := t.ldg.TrackOpen(pos); err != nil {
		// should be impossible: Step only evaluates without an open position
		t.l.Error("position tracking refused", logger.String("symbol", t.symbol), logger.Error(err))
		return
	}
	t.entryFeatures = fv
	t.state = StateOpen
	t.metrics.RecordDecision(t.symbol, "opened")
	t.emit(ctx, drepo.Event{
		Kind: "opened", Symbol: t.symbol,
		Price: res.Price, Quantity: res.Quantity,
	})
	t.l.Info("position opened",
		logger.String("symbol", t.symbol),
		logger.Float64("price", res.Price),
		logger.Float64("quantity", res.Quantity),
		logger.Float64("target", pos.TargetPrice),
		logger.Float64("confidence", pred.Probability),
		logger.Bool("fallback", pred.Fallback))
}

func (t *Trader) manage(ctx context.Context, pos models.Position) {
	snap, err := t.market.Snapshot(ctx, t.symbol)
	if err != nil {
		t.skip("market data unavailable", err)
		return
	}
	t.metrics.RecordLastPrice(t.symbol, snap.LastPrice)

	reason := t.closeReason(pos, snap)
	if reason == "" {
		return
	}

	t.state = StateClosing
	pos.Status = models.PositionClosing
	_ = t.ldg.UpdateOpen(pos)

	exit := snap.Bid
	if exit <= 0 {
		exit = snap.LastPrice
	}
	res, err := t.placeWithRetry(ctx, models.OrderRequest{
		Symbol:   t.symbol,
		Side:     models.SideSell,
		Price:    exit,
		Quantity: pos.Quantity,
	})
	if err != nil {
		// stay open, retry next cycle
		pos.Status = models.PositionOpen
		_ = t.ldg.UpdateOpen(pos)
		t.state = StateOpen
		t.metrics.RecordError("venue")
		t.l.Error("close order failed, keeping position",
			logger.String("symbol", t.symbol), logger.Error(err))
		return
	}

	proceeds := res.Price * res.Quantity
	cost := pos.EntryPrice * pos.Quantity
	fees := pos.EntryFee + res.Fee
	rec := models.TradeRecord{
		ID:         fmt.Sprintf("%s-%d", t.symbol, res.FilledAt.UnixNano()),
		Symbol:     t.symbol,
		Side:       models.SideSell,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  res.Price,
		Quantity:   res.Quantity,
		Fees:       fees,
		NetPnL:     proceeds - cost - fees,
		Features:   t.entryFeatures,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   res.FilledAt,
	}
	t.l.Info("position closed",
		logger.String("symbol", t.symbol),
		logger.String("reason", reason),
		logger.Float64("pnl", rec.NetPnL),
		logger.Float64("fees", rec.Fees))
	t.settle(ctx, rec)
}

// closeReason decides whether the open position should exit this cycle.
func (t *Trader) closeReason(pos models.Position, snap models.MarketSnapshot) string {
	if snap.LastPrice >= pos.TargetPrice {
		return "target"
	}
	if t.cfg.StopLossFraction > 0 && snap.LastPrice <= pos.EntryPrice*(1-t.cfg.StopLossFraction) {
		return "stop_loss"
	}
	if t.cfg.MaxHold > 0 && time.Since(pos.OpenedAt) > t.cfg.MaxHold {
		return "max_hold"
	}
	return ""
}

// settle records a completed round trip. If the durable append fails the
// record is kept pending and retried next cycle; the position stays tracked
// so no new entry can race it.
func (t *Trader) settle(ctx context.Context, rec models.TradeRecord) {
	if err := t.ldg.Append(ctx, rec); err != nil {
		t.pending = &rec
		t.state = StateClosing
		t.metrics.RecordError("persistence")
		t.l.Error("trade append failed, will retry",
			logger.String("symbol", t.symbol), logger.Error(err))
		return
	}
	t.pending = nil
	_ = t.ldg.ReleaseOpen(t.symbol)
	t.state = StateIdle
	t.metrics.RecordTrade(t.symbol, rec.NetPnL, rec.Fees)
	t.metrics.RecordDecision(t.symbol, "closed")
	t.emit(ctx, drepo.Event{
		Kind: "closed", Symbol: t.symbol,
		Price: rec.ExitPrice, Quantity: rec.Quantity, NetPnL: rec.NetPnL,
	})
}

// placeWithRetry retries temporary venue failures with doubling backoff.
func (t *Trader) placeWithRetry(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	backoff := t.cfg.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= t.cfg.MaxVenueRetries; attempt++ {
		res, err := t.orders.Place(ctx, req)
		if err == nil {
			// a fill moved money; a memoized balance is now wrong
			if inv, ok := t.account.(interface{ Invalidate() }); ok {
				inv.Invalidate()
			}
			return res, nil
		}
		lastErr = err
		if !drepo.IsRetryableVenue(err) {
			break
		}
		select {
		case <-ctx.Done():
			return models.OrderResult{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return models.OrderResult{}, lastErr
}

func (t *Trader) reject(ctx context.Context, reason string, err error) {
	t.state = StateRejected
	t.metrics.RecordRejection(t.symbol, reason)
	t.emit(ctx, drepo.Event{Kind: "rejected", Symbol: t.symbol, Reason: reason})
	t.l.Debug("entry rejected",
		logger.String("symbol", t.symbol),
		logger.String("reason", reason),
		logger.Error(err))
	t.state = StateIdle
}

func (t *Trader) skip(msg string, err error) {
	t.metrics.RecordError("data")
	t.l.Warn(msg, logger.String("symbol", t.symbol), logger.Error(err))
	if _, held := t.ldg.Open(t.symbol); held {
		t.state = StateOpen
	} else {
		t.state = StateIdle
	}
}

func (t *Trader) emit(ctx context.Context, ev drepo.Event) {
	if t.events == nil {
		return
	}
	ev.Timestamp = time.Now().Unix()
	if err := t.events.Emit(ctx, ev); err != nil {
		t.l.Debug("event emit failed", logger.Error(err))
	}
}
