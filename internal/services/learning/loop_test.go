package learning

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"MicroTrade/internal/domain/models"
	"MicroTrade/internal/ledger"
	"MicroTrade/pkg/logger"
)

type noopStore struct{}

func (noopStore) Init(ctx context.Context) error                                  { return nil }
func (noopStore) AppendTrade(ctx context.Context, t models.TradeRecord) error     { return nil }
func (noopStore) LoadTrades(ctx context.Context, n int) ([]models.TradeRecord, error) { return nil, nil }
func (noopStore) SavePositions(ctx context.Context, p []models.Position) error    { return nil }
func (noopStore) LoadPositions(ctx context.Context) ([]models.Position, error)    { return nil, nil }
func (noopStore) Health(ctx context.Context) error                                { return nil }
func (noopStore) Close() error                                                    { return nil }

type noopMetrics struct{}

func (noopMetrics) RecordCycle(float64)                  {}
func (noopMetrics) RecordDecision(string, string)        {}
func (noopMetrics) RecordRejection(string, string)       {}
func (noopMetrics) RecordTrade(string, float64, float64) {}
func (noopMetrics) RecordOpenPositions(int)              {}
func (noopMetrics) RecordModelVersion(int)               {}
func (noopMetrics) RecordError(string)                   {}
func (noopMetrics) RecordLastPrice(string, float64)      {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func tradeWithOutcome(i int, win bool) models.TradeRecord {
	pnl := 1.0
	if !win {
		pnl = -1.0
	}
	var f models.FeatureVector
	f[models.FeatPrice] = 0.003 + 0.0001*float64(i%9)
	f[models.FeatVolume] = 500_000 + 10_000*float64(i%5)
	f[models.FeatHourOfDay] = float64(i % 24)
	f[models.FeatDayOfWeek] = float64(i % 7)
	f[models.FeatRoundTripFee] = 0.0042
	f[models.FeatVolatility] = 0.01 + 0.001*float64(i%4)
	if win {
		f[models.FeatProfitAfterFees] = 0.01
	} else {
		f[models.FeatProfitAfterFees] = -0.005
	}
	return models.TradeRecord{
		ID:       fmt.Sprintf("t-%d", i),
		Symbol:   "DOGE/USD",
		Side:     models.SideSell,
		Features: f,
		NetPnL:   pnl,
		Fees:     0.1,
		ClosedAt: time.Now(),
	}
}

func seededLoop(t *testing.T, n int, mixed bool) (*Loop, *ledger.Ledger) {
	t.Helper()
	ldg := ledger.New(noopStore{}, testLogger(t))
	recs := make([]models.TradeRecord, 0, n)
	for i := 0; i < n; i++ {
		win := true
		if mixed {
			win = i%3 != 0
		}
		recs = append(recs, tradeWithOutcome(i, win))
	}
	ldg.Seed(recs, nil)
	loop := NewLoop(DefaultLoopConfig(), NewLogitTrainer(DefaultTrainerConfig()), ldg, nil, nil, noopMetrics{}, testLogger(t))
	return loop, ldg
}

func TestNoRetrainBelowIncrement(t *testing.T) {
	loop, _ := seededLoop(t, 19, true)
	loop.MaybeRetrain(context.Background())
	if loop.Active() != nil {
		t.Fatal("retraining ran with only 19 trades")
	}
}

func TestRetrainAtIncrementAndVersionBump(t *testing.T) {
	loop, ldg := seededLoop(t, 20, true)
	ctx := context.Background()

	loop.MaybeRetrain(ctx)
	first := loop.Active()
	if first == nil {
		t.Fatal("expected an active model after 20 trades")
	}
	if first.Version != 1 {
		t.Fatalf("first version = %d, want 1", first.Version)
	}
	if first.TrainedCount != 20 {
		t.Fatalf("trained count = %d, want 20", first.TrainedCount)
	}

	// 19 more trades: below the increment, nothing changes
	for i := 0; i < 19; i++ {
		_ = ldg.Append(ctx, tradeWithOutcome(100+i, i%2 == 0))
	}
	loop.MaybeRetrain(ctx)
	if loop.Active() != first {
		t.Fatal("model swapped before the retrain increment was reached")
	}

	// 20th new trade triggers and bumps the version
	_ = ldg.Append(ctx, tradeWithOutcome(200, false))
	loop.MaybeRetrain(ctx)
	second := loop.Active()
	if second == first {
		t.Fatal("expected a new model state after the retrain increment")
	}
	if second.Version != first.Version+1 {
		t.Fatalf("version = %d, want %d", second.Version, first.Version+1)
	}
}

func TestDegenerateLabelsSkipTraining(t *testing.T) {
	loop, _ := seededLoop(t, 25, false) // all wins
	loop.MaybeRetrain(context.Background())
	if loop.Active() != nil {
		t.Fatal("degenerate dataset must not produce a model")
	}
}

func TestTrainerSkipsSmallDatasets(t *testing.T) {
	tr := NewLogitTrainer(DefaultTrainerConfig())
	recs := []models.TradeRecord{tradeWithOutcome(0, true), tradeWithOutcome(1, false)}
	_, err := tr.Train(recs)
	if !errors.Is(err, ErrTrainingSkipped) {
		t.Fatalf("expected ErrTrainingSkipped, got %v", err)
	}
}

func TestTrainerProducesUsableState(t *testing.T) {
	tr := NewLogitTrainer(DefaultTrainerConfig())
	recs := make([]models.TradeRecord, 0, 40)
	for i := 0; i < 40; i++ {
		recs = append(recs, tradeWithOutcome(i, i%2 == 0))
	}
	state, err := tr.Train(recs)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(state.Weights) != models.FeatureCount {
		t.Fatalf("weights arity = %d, want %d", len(state.Weights), models.FeatureCount)
	}
	if len(state.ScalerMean) != models.FeatureCount || len(state.ScalerStd) != models.FeatureCount {
		t.Fatal("scaler params have wrong arity")
	}
	if state.TrainedCount != 40 {
		t.Fatalf("trained count = %d, want 40", state.TrainedCount)
	}
}
