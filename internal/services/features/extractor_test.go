package features

import (
	"errors"
	"testing"
	"time"

	"MicroTrade/internal/domain/models"
)

var when = time.Date(2026, time.March, 4, 14, 30, 0, 0, time.UTC) // Wednesday

func snap(price float64) models.MarketSnapshot {
	return models.MarketSnapshot{
		Symbol:    "DOGE/USD",
		Timestamp: when,
		LastPrice: price,
		Bid:       price * 0.99,
		Ask:       price * 1.01,
		Volume24h: 750_000,
	}
}

func TestExtractFixedArityAndOrder(t *testing.T) {
	e := NewExtractor(0.0042)
	v, err := e.Extract(snap(0.003), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(v) != models.FeatureCount {
		t.Fatalf("arity = %d, want %d", len(v), models.FeatureCount)
	}
	if v[models.FeatPrice] != 0.003 {
		t.Errorf("price feature = %v", v[models.FeatPrice])
	}
	if v[models.FeatVolume] != 750_000 {
		t.Errorf("volume feature = %v", v[models.FeatVolume])
	}
	if v[models.FeatHourOfDay] != 14 {
		t.Errorf("hour feature = %v, want 14", v[models.FeatHourOfDay])
	}
	if v[models.FeatDayOfWeek] != float64(time.Wednesday) {
		t.Errorf("day feature = %v, want %v", v[models.FeatDayOfWeek], float64(time.Wednesday))
	}
	if v[models.FeatRoundTripFee] != 0.0042 {
		t.Errorf("fee feature = %v", v[models.FeatRoundTripFee])
	}
}

func TestExtractColdStartUsesNeutralVolatility(t *testing.T) {
	e := NewExtractor(0.0042)
	v, err := e.Extract(snap(0.003), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if v[models.FeatVolatility] != neutralVolatility {
		t.Errorf("cold-start volatility = %v, want %v", v[models.FeatVolatility], neutralVolatility)
	}
}

func TestExtractVolatilityFromHistory(t *testing.T) {
	e := NewExtractor(0.0042)
	recent := []models.TradeRecord{
		{Symbol: "DOGE/USD", EntryPrice: 0.0028},
		{Symbol: "DOGE/USD", EntryPrice: 0.0034},
	}
	v, err := e.Extract(snap(0.003), recent)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if v[models.FeatVolatility] <= 0 {
		t.Errorf("volatility = %v, want > 0", v[models.FeatVolatility])
	}
	if v[models.FeatVolatility] == neutralVolatility {
		t.Error("volatility should be computed, not the neutral default")
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor(0.0042)
	recent := []models.TradeRecord{{EntryPrice: 0.0031}}
	a, err := e.Extract(snap(0.003), recent)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	b, err := e.Extract(snap(0.003), recent)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if a != b {
		t.Errorf("same inputs produced different vectors:\n%v\n%v", a, b)
	}
}

func TestExtractInvalidSnapshot(t *testing.T) {
	e := NewExtractor(0.0042)
	bad := snap(0.003)
	bad.LastPrice = 0
	if _, err := e.Extract(bad, nil); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
	stale := snap(0.003)
	stale.Timestamp = time.Time{}
	if _, err := e.Extract(stale, nil); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot for zero timestamp, got %v", err)
	}
}

func TestProfitAfterFeesReflectsTierMargin(t *testing.T) {
	e := NewExtractor(0.0042)
	v, err := e.Extract(snap(0.003), nil) // low tier, 1.5% margin
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := 0.015 - 0.0042
	if diff := v[models.FeatProfitAfterFees] - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("profit-after-fees = %v, want %v", v[models.FeatProfitAfterFees], want)
	}
}
