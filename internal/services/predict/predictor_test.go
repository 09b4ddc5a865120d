package predict

import (
	"testing"
	"time"

	"MicroTrade/internal/domain/models"
	"MicroTrade/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func vector() models.FeatureVector {
	var v models.FeatureVector
	v[models.FeatPrice] = 0.003
	v[models.FeatVolume] = 600_000
	v[models.FeatHourOfDay] = 14
	v[models.FeatDayOfWeek] = 3
	v[models.FeatRoundTripFee] = 0.0042
	v[models.FeatVolatility] = 0.02
	v[models.FeatProfitAfterFees] = 0.0108
	return v
}

func trainedState(count int) *models.ModelState {
	return &models.ModelState{
		Version:      1,
		Weights:      make([]float64, models.FeatureCount),
		Bias:         0.2,
		ScalerMean:   make([]float64, models.FeatureCount),
		ScalerStd:    onesVec(),
		TrainedCount: count,
		TrainedAt:    time.Now(),
	}
}

func onesVec() []float64 {
	s := make([]float64, models.FeatureCount)
	for i := range s {
		s[i] = 1
	}
	return s
}

func TestPredictFallbackWithoutState(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger(t))
	p := e.Predict(vector(), nil)
	if !p.Fallback {
		t.Fatal("expected fallback with nil state")
	}
	if p.Probability < 0 || p.Probability > 1 {
		t.Fatalf("probability %v out of [0,1]", p.Probability)
	}
}

func TestPredictFallbackBelowTrainingFloor(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger(t))
	p := e.Predict(vector(), trainedState(19))
	if !p.Fallback {
		t.Fatal("expected fallback when trained on fewer than 20 trades")
	}
}

func TestPredictFallbackWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	e := NewEngine(cfg, testLogger(t))
	p := e.Predict(vector(), trainedState(100))
	if !p.Fallback {
		t.Fatal("expected fallback when model path disabled")
	}
}

func TestPredictFallbackOnArityMismatch(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger(t))
	st := trainedState(50)
	st.Weights = []float64{0.1, 0.2}
	p := e.Predict(vector(), st)
	if !p.Fallback {
		t.Fatal("expected fallback on weight arity mismatch")
	}
}

func TestPredictTrainedPathInBounds(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger(t))
	st := trainedState(50)
	st.Weights[models.FeatProfitAfterFees] = 3.0
	p := e.Predict(vector(), st)
	if p.Fallback {
		t.Fatal("expected trained path")
	}
	if p.Probability < 0 || p.Probability > 1 {
		t.Fatalf("probability %v out of [0,1]", p.Probability)
	}
}

func TestHeuristicPrefersProfitableSetups(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger(t))

	good := vector() // positive net edge
	bad := vector()
	bad[models.FeatProfitAfterFees] = -0.01
	bad[models.FeatVolatility] = 0.15

	pg := e.Predict(good, nil)
	pb := e.Predict(bad, nil)
	if pg.Probability <= pb.Probability {
		t.Fatalf("heuristic ranked bad setup (%v) above good one (%v)", pb.Probability, pg.Probability)
	}
	if pb.Probability < 0.05 || pg.Probability > 0.95 {
		t.Fatal("heuristic left its [0.05, 0.95] band")
	}
}
