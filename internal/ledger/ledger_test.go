package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"MicroTrade/internal/domain/models"
	"MicroTrade/pkg/logger"
)

type stubStore struct {
	fail    bool
	appends int
}

func (s *stubStore) Init(ctx context.Context) error { return nil }
func (s *stubStore) AppendTrade(ctx context.Context, t models.TradeRecord) error {
	if s.fail {
		return errors.New("connection refused")
	}
	s.appends++
	return nil
}
func (s *stubStore) LoadTrades(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	return nil, nil
}
func (s *stubStore) SavePositions(ctx context.Context, p []models.Position) error { return nil }
func (s *stubStore) LoadPositions(ctx context.Context) ([]models.Position, error) { return nil, nil }
func (s *stubStore) Health(ctx context.Context) error                             { return nil }
func (s *stubStore) Close() error                                                 { return nil }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func record(symbol string, pnl, fees float64) models.TradeRecord {
	return models.TradeRecord{
		ID:         fmt.Sprintf("%s-%d-%f", symbol, time.Now().UnixNano(), pnl),
		Symbol:     symbol,
		Side:       models.SideSell,
		EntryPrice: 0.003,
		ExitPrice:  0.0031,
		Quantity:   1000,
		Fees:       fees,
		NetPnL:     pnl,
		OpenedAt:   time.Now().Add(-time.Minute),
		ClosedAt:   time.Now(),
	}
}

func TestAppendAndSnapshotAggregates(t *testing.T) {
	store := &stubStore{}
	lg := New(store, testLogger(t))
	ctx := context.Background()

	recs := []models.TradeRecord{
		record("DOGE/USD", 1.5, 0.2),
		record("DOGE/USD", -0.5, 0.2),
		record("SHIB/USD", 2.0, 0.3),
	}
	for _, r := range recs {
		if err := lg.Append(ctx, r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	m := lg.Snapshot()
	if m.TotalTrades != 3 || m.Wins != 2 || m.Losses != 1 {
		t.Fatalf("counts = %d/%d/%d, want 3/2/1", m.TotalTrades, m.Wins, m.Losses)
	}

	var pnl, fees float64
	for _, r := range recs {
		pnl += r.NetPnL
		fees += r.Fees
	}
	if m.NetPnL != pnl {
		t.Errorf("aggregate pnl %v != sum of records %v", m.NetPnL, pnl)
	}
	if m.TotalFees != fees {
		t.Errorf("aggregate fees %v != sum of records %v", m.TotalFees, fees)
	}
	if st := m.Instruments["DOGE/USD"]; st.Trades != 2 || st.Wins != 1 {
		t.Errorf("per-instrument stats = %+v", st)
	}
	if store.appends != 3 {
		t.Errorf("store appends = %d, want 3", store.appends)
	}
}

func TestSnapshotIdempotent(t *testing.T) {
	lg := New(&stubStore{}, testLogger(t))
	if err := lg.Append(context.Background(), record("DOGE/USD", 1, 0.1)); err != nil {
		t.Fatal(err)
	}
	a := lg.Snapshot()
	b := lg.Snapshot()
	if a.TotalTrades != b.TotalTrades || a.NetPnL != b.NetPnL || a.TotalFees != b.TotalFees {
		t.Fatal("two snapshots without appends differ")
	}
	// mutating a snapshot copy must not leak back
	a.Instruments["DOGE/USD"] = models.InstrumentStats{Symbol: "DOGE/USD", Trades: 99}
	if lg.Snapshot().Instruments["DOGE/USD"].Trades == 99 {
		t.Fatal("snapshot shares state with the ledger")
	}
}

func TestAppendRollsBackOnPersistenceFailure(t *testing.T) {
	store := &stubStore{fail: true}
	lg := New(store, testLogger(t))

	err := lg.Append(context.Background(), record("DOGE/USD", 1, 0.1))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if lg.Len() != 0 {
		t.Fatalf("ledger counted a trade that was never persisted")
	}
	if m := lg.Snapshot(); m.TotalTrades != 0 || m.NetPnL != 0 {
		t.Fatalf("metrics mutated on failed append: %+v", m)
	}

	// same record succeeds once the store recovers
	store.fail = false
	if err := lg.Append(context.Background(), record("DOGE/USD", 1, 0.1)); err != nil {
		t.Fatalf("retry append: %v", err)
	}
	if lg.Len() != 1 {
		t.Fatalf("len = %d, want 1", lg.Len())
	}
}

func TestOnePositionPerInstrument(t *testing.T) {
	lg := New(&stubStore{}, testLogger(t))
	pos := models.Position{Symbol: "DOGE/USD", OrderID: "a", EntryPrice: 0.003, Quantity: 1000, Status: models.PositionOpen}

	if err := lg.TrackOpen(pos); err != nil {
		t.Fatalf("TrackOpen: %v", err)
	}
	if err := lg.TrackOpen(pos); !errors.Is(err, ErrPositionExists) {
		t.Fatalf("second TrackOpen: got %v, want ErrPositionExists", err)
	}
	if err := lg.ReleaseOpen("DOGE/USD"); err != nil {
		t.Fatalf("ReleaseOpen: %v", err)
	}
	if err := lg.ReleaseOpen("DOGE/USD"); !errors.Is(err, ErrNoPosition) {
		t.Fatalf("double release: got %v, want ErrNoPosition", err)
	}
}

func TestCommittedNotional(t *testing.T) {
	lg := New(&stubStore{}, testLogger(t))
	_ = lg.TrackOpen(models.Position{Symbol: "A", EntryPrice: 0.01, Quantity: 10_000, Status: models.PositionOpen})
	_ = lg.TrackOpen(models.Position{Symbol: "B", EntryPrice: 0.10, Quantity: 2_000, Status: models.PositionOpen})
	want := 0.01*10_000 + 0.10*2_000
	if got := lg.CommittedNotional(); got != want {
		t.Fatalf("committed = %v, want %v", got, want)
	}
}

func TestSeedRebuildsAggregates(t *testing.T) {
	lg := New(&stubStore{}, testLogger(t))
	lg.Seed(
		[]models.TradeRecord{record("DOGE/USD", 2, 0.1), record("DOGE/USD", -1, 0.1)},
		[]models.Position{{Symbol: "SHIB/USD", EntryPrice: 0.00001, Quantity: 1e6, Status: models.PositionOpen}},
	)
	m := lg.Snapshot()
	if m.TotalTrades != 2 || m.Wins != 1 || m.Losses != 1 {
		t.Fatalf("seeded metrics = %+v", m)
	}
	if _, ok := lg.Open("SHIB/USD"); !ok {
		t.Fatal("seeded open position missing")
	}
}

func TestHistoryFiltersAndLimits(t *testing.T) {
	lg := New(&stubStore{}, testLogger(t))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = lg.Append(ctx, record("DOGE/USD", float64(i), 0.1))
	}
	_ = lg.Append(ctx, record("SHIB/USD", 1, 0.1))

	h := lg.History("DOGE/USD", 3)
	if len(h) != 3 {
		t.Fatalf("history len = %d, want 3", len(h))
	}
	for _, r := range h {
		if r.Symbol != "DOGE/USD" {
			t.Fatalf("history leaked %s", r.Symbol)
		}
	}
	if h[len(h)-1].NetPnL != 4 {
		t.Fatalf("history not most-recent-last: %+v", h)
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	lg := New(&stubStore{}, testLogger(t))
	ctx := context.Background()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = lg.Append(ctx, record("DOGE/USD", 1, 0.1))
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				m := lg.Snapshot()
				if m.TotalTrades != m.Wins+m.Losses {
					t.Error("inconsistent snapshot observed")
					return
				}
				_ = lg.CommittedNotional()
				_ = lg.History("DOGE/USD", 10)
			}
		}()
	}
	wg.Wait()

	if lg.Len() != 200 {
		t.Fatalf("len = %d, want 200", lg.Len())
	}
}
