package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"MicroTrade/internal/domain/models"
	drepo "MicroTrade/internal/domain/repository"
	"MicroTrade/internal/ledger"
	"MicroTrade/internal/services/features"
	"MicroTrade/internal/services/pricing"
	"MicroTrade/pkg/logger"
)

// --- fakes ---

type fakeMarket struct {
	mu   sync.Mutex
	snap models.MarketSnapshot
	err  error
}

func (m *fakeMarket) Snapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.MarketSnapshot{}, m.err
	}
	return m.snap, nil
}
func (m *fakeMarket) Close() error { return nil }

func (m *fakeMarket) setPrice(p float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.LastPrice = p
	m.snap.Bid = p * 0.99
	m.snap.Ask = p * 1.01
	m.snap.Timestamp = time.Now()
}

type fakeAccount struct{ bal models.Balance }

func (a *fakeAccount) Balance(ctx context.Context) (models.Balance, error) { return a.bal, nil }

type fakeOrders struct {
	mu       sync.Mutex
	placed   []models.OrderRequest
	failures int // leading failures before success
	retry    bool
	fee      float64
}

func (o *fakeOrders) Place(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.placed = append(o.placed, req)
	if o.failures > 0 {
		o.failures--
		return models.OrderResult{}, drepo.NewVenueError("place", errors.New("gateway timeout"), o.retry)
	}
	return models.OrderResult{
		OrderID:  fmt.Sprintf("ord-%d", len(o.placed)),
		Symbol:   req.Symbol,
		Side:     req.Side,
		Price:    req.Price,
		Quantity: req.Quantity,
		Fee:      req.Price * req.Quantity * o.fee,
		FilledAt: time.Now(),
	}, nil
}

func (o *fakeOrders) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.placed)
}

type fakePredictor struct{ p float64 }

func (f *fakePredictor) Predict(fv models.FeatureVector, st *models.ModelState) models.Prediction {
	return models.Prediction{Probability: f.p, Fallback: st == nil}
}

type nilModelSource struct{}

func (nilModelSource) Active() *models.ModelState { return nil }

type recordingSink struct {
	mu     sync.Mutex
	events []drepo.Event
}

func (s *recordingSink) Emit(ctx context.Context, ev drepo.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}
func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}

type countingMetrics struct {
	mu         sync.Mutex
	rejections map[string]int
	trades     int
	errors     map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{rejections: map[string]int{}, errors: map[string]int{}}
}
func (m *countingMetrics) RecordCycle(float64)           {}
func (m *countingMetrics) RecordDecision(string, string) {}
func (m *countingMetrics) RecordRejection(sym, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[reason]++
}
func (m *countingMetrics) RecordTrade(string, float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades++
}
func (m *countingMetrics) RecordOpenPositions(int) {}
func (m *countingMetrics) RecordModelVersion(int)  {}
func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}
func (m *countingMetrics) RecordLastPrice(string, float64) {}

type flakyStore struct {
	mu   sync.Mutex
	fail bool
}

func (s *flakyStore) Init(ctx context.Context) error { return nil }
func (s *flakyStore) AppendTrade(ctx context.Context, t models.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("clickhouse down")
	}
	return nil
}
func (s *flakyStore) LoadTrades(ctx context.Context, n int) ([]models.TradeRecord, error) {
	return nil, nil
}
func (s *flakyStore) SavePositions(ctx context.Context, p []models.Position) error { return nil }
func (s *flakyStore) LoadPositions(ctx context.Context) ([]models.Position, error) { return nil, nil }
func (s *flakyStore) Health(ctx context.Context) error                             { return nil }
func (s *flakyStore) Close() error                                                 { return nil }

func (s *flakyStore) setFail(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = v
}

// --- harness ---

type harness struct {
	trader  *Trader
	market  *fakeMarket
	orders  *fakeOrders
	sink    *recordingSink
	metrics *countingMetrics
	ldg     *ledger.Ledger
	store   *flakyStore
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newHarness(t *testing.T, prob float64) *harness {
	t.Helper()
	return newHarnessCfg(t, prob, nil)
}

func newHarnessCfg(t *testing.T, prob float64, tune func(*TraderConfig)) *harness {
	t.Helper()
	l := testLogger(t)
	market := &fakeMarket{}
	market.snap = models.MarketSnapshot{
		Symbol:    "DOGE/USD",
		Volume24h: 600_000,
	}
	market.setPrice(0.003)

	orders := &fakeOrders{fee: 0.0026}
	sink := &recordingSink{}
	metrics := newCountingMetrics()
	store := &flakyStore{}
	ldg := ledger.New(store, l)

	cfg := DefaultTraderConfig()
	cfg.RetryBackoff = time.Millisecond
	if tune != nil {
		tune(&cfg)
	}

	pcfg := pricing.DefaultConfig()
	pricer := pricing.NewEngine(pcfg)
	trader := NewTrader(
		"DOGE/USD", cfg,
		market,
		&fakeAccount{bal: models.Balance{Total: 10_000, Available: 10_000}},
		orders,
		&fakePredictor{p: prob},
		nilModelSource{},
		features.NewExtractor(pricer.RoundTripFee()),
		pricer,
		ldg, sink, metrics, l,
	)
	return &harness{trader: trader, market: market, orders: orders, sink: sink, metrics: metrics, ldg: ldg, store: store}
}

// --- tests ---

func TestConfidenceGateRejects(t *testing.T) {
	h := newHarness(t, 0.55) // below the 0.60 gate
	h.trader.Step(context.Background())

	if h.orders.count() != 0 {
		t.Fatal("rejected evaluation must not place orders")
	}
	if h.metrics.rejections["confidence"] != 1 {
		t.Fatalf("rejections = %+v, want one confidence rejection", h.metrics.rejections)
	}
	if got := h.trader.State(); got != StateIdle {
		t.Fatalf("state = %v, want idle", got)
	}
	if kinds := h.sink.kinds(); len(kinds) != 1 || kinds[0] != "rejected" {
		t.Fatalf("events = %v, want [rejected]", kinds)
	}
}

func TestLiquidityGateRejectsBeforePricing(t *testing.T) {
	h := newHarness(t, 0.90)
	h.market.mu.Lock()
	h.market.snap.Volume24h = 50_000
	h.market.mu.Unlock()
	h.market.setPrice(0.10) // medium tier needs $200k volume

	h.trader.Step(context.Background())
	if h.orders.count() != 0 {
		t.Fatal("illiquid instrument must not be traded")
	}
	if h.metrics.rejections["liquidity"] != 1 {
		t.Fatalf("rejections = %+v, want one liquidity rejection", h.metrics.rejections)
	}
}

func TestFullRoundTrip(t *testing.T) {
	h := newHarness(t, 0.90)
	ctx := context.Background()

	h.trader.Step(ctx)
	pos, ok := h.ldg.Open("DOGE/USD")
	if !ok {
		t.Fatal("expected an open position after the first cycle")
	}
	if h.trader.State() != StateOpen {
		t.Fatalf("state = %v, want open", h.trader.State())
	}
	if h.orders.count() != 1 || h.orders.placed[0].Side != models.SideBuy {
		t.Fatalf("expected exactly one buy order, got %+v", h.orders.placed)
	}

	// while open, another cycle must not enter again
	h.trader.Step(ctx)
	if h.orders.count() != 1 {
		t.Fatal("trader evaluated a new entry while holding a position")
	}

	// price reaches the target: next cycle closes
	h.market.setPrice(pos.TargetPrice * 1.01)
	h.trader.Step(ctx)

	if _, stillOpen := h.ldg.Open("DOGE/USD"); stillOpen {
		t.Fatal("position not released after close")
	}
	if h.ldg.Len() != 1 {
		t.Fatalf("ledger trades = %d, want 1", h.ldg.Len())
	}
	rec := h.ldg.All()[0]
	if rec.NetPnL <= 0 {
		t.Fatalf("fill above target should be profitable net of fees, pnl = %v", rec.NetPnL)
	}
	if h.trader.State() != StateIdle {
		t.Fatalf("state = %v, want idle", h.trader.State())
	}
	kinds := h.sink.kinds()
	if len(kinds) != 2 || kinds[0] != "opened" || kinds[1] != "closed" {
		t.Fatalf("events = %v, want [opened closed]", kinds)
	}
}

func TestVenueRetryThenSuccess(t *testing.T) {
	h := newHarness(t, 0.90)
	h.orders.failures = 2
	h.orders.retry = true

	h.trader.Step(context.Background())
	if _, ok := h.ldg.Open("DOGE/USD"); !ok {
		t.Fatal("expected position after retries succeed")
	}
	if h.orders.count() != 3 {
		t.Fatalf("attempts = %d, want 3", h.orders.count())
	}
}

func TestVenueTerminalErrorRejects(t *testing.T) {
	h := newHarness(t, 0.90)
	h.orders.failures = 1
	h.orders.retry = false // not retryable

	h.trader.Step(context.Background())
	if _, ok := h.ldg.Open("DOGE/USD"); ok {
		t.Fatal("terminal venue error must not open a position")
	}
	if h.orders.count() != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry on terminal errors)", h.orders.count())
	}
	if h.metrics.rejections["venue"] != 1 {
		t.Fatalf("rejections = %+v, want one venue rejection", h.metrics.rejections)
	}
}

func TestPersistenceFailureKeepsTradePending(t *testing.T) {
	h := newHarness(t, 0.90)
	ctx := context.Background()

	h.trader.Step(ctx)
	pos, ok := h.ldg.Open("DOGE/USD")
	if !ok {
		t.Fatal("expected open position")
	}

	h.store.setFail(true)
	h.market.setPrice(pos.TargetPrice * 1.01)
	h.trader.Step(ctx)

	if h.ldg.Len() != 0 {
		t.Fatal("failed append must not count the trade")
	}
	if _, stillTracked := h.ldg.Open("DOGE/USD"); !stillTracked {
		t.Fatal("position must stay tracked until the append succeeds")
	}
	if h.trader.State() != StateClosing {
		t.Fatalf("state = %v, want closing while append pending", h.trader.State())
	}
	sells := h.orders.count()

	// store recovers: the pending record settles before anything else
	h.store.setFail(false)
	h.trader.Step(ctx)
	if h.ldg.Len() != 1 {
		t.Fatalf("ledger trades = %d, want 1 after retry", h.ldg.Len())
	}
	if _, stillTracked := h.ldg.Open("DOGE/USD"); stillTracked {
		t.Fatal("position must be released after the append succeeds")
	}
	if h.orders.count() != sells {
		t.Fatal("settling a pending record must not place new orders")
	}
	if h.metrics.trades != 1 {
		t.Fatalf("recorded trades = %d, want 1", h.metrics.trades)
	}
}

func TestStopLossClosesLosingPosition(t *testing.T) {
	h := newHarnessCfg(t, 0.90, func(cfg *TraderConfig) {
		cfg.StopLossFraction = 0.05
	})
	ctx := context.Background()

	h.trader.Step(ctx)
	pos, ok := h.ldg.Open("DOGE/USD")
	if !ok {
		t.Fatal("expected an open position")
	}

	// above the stop: holds
	h.market.setPrice(pos.EntryPrice * 0.97)
	h.trader.Step(ctx)
	if _, stillOpen := h.ldg.Open("DOGE/USD"); !stillOpen {
		t.Fatal("drawdown above the stop must not close the position")
	}

	// through the stop: closes at a loss
	h.market.setPrice(pos.EntryPrice * 0.94)
	h.trader.Step(ctx)
	if _, stillOpen := h.ldg.Open("DOGE/USD"); stillOpen {
		t.Fatal("position must close once the stop is breached")
	}
	if h.ldg.Len() != 1 {
		t.Fatalf("ledger trades = %d, want 1", h.ldg.Len())
	}
	if rec := h.ldg.All()[0]; rec.NetPnL >= 0 {
		t.Fatalf("stop-loss exit should lose money, pnl = %v", rec.NetPnL)
	}
}

func TestMaxHoldClosesStalePosition(t *testing.T) {
	h := newHarnessCfg(t, 0.90, func(cfg *TraderConfig) {
		cfg.MaxHold = time.Millisecond
	})
	ctx := context.Background()

	h.trader.Step(ctx)
	if _, ok := h.ldg.Open("DOGE/USD"); !ok {
		t.Fatal("expected an open position")
	}

	// price never reaches the target; age alone forces the exit
	time.Sleep(5 * time.Millisecond)
	h.trader.Step(ctx)
	if _, stillOpen := h.ldg.Open("DOGE/USD"); stillOpen {
		t.Fatal("position older than max hold must be closed")
	}
	if h.ldg.Len() != 1 {
		t.Fatalf("ledger trades = %d, want 1", h.ldg.Len())
	}
}

func TestSkipWhileHoldingKeepsOpenState(t *testing.T) {
	h := newHarness(t, 0.90)
	ctx := context.Background()

	h.trader.Step(ctx)
	if _, ok := h.ldg.Open("DOGE/USD"); !ok {
		t.Fatal("expected an open position")
	}

	h.market.mu.Lock()
	h.market.err = errors.New("stream stale")
	h.market.mu.Unlock()
	h.trader.Step(ctx)

	if got := h.trader.State(); got != StateOpen {
		t.Fatalf("state = %v, want open while a position is held", got)
	}
}

func TestMarketDataErrorSkipsCycle(t *testing.T) {
	h := newHarness(t, 0.90)
	h.market.mu.Lock()
	h.market.err = errors.New("stream stale")
	h.market.mu.Unlock()

	h.trader.Step(context.Background())
	if h.orders.count() != 0 {
		t.Fatal("no orders on market data failure")
	}
	if h.metrics.errors["data"] != 1 {
		t.Fatalf("errors = %+v, want one data error", h.metrics.errors)
	}
}
