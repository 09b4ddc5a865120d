package pricing

import (
	"errors"
	"testing"
	"time"

	"MicroTrade/internal/domain/models"
	"MicroTrade/internal/services/risk"
)

func snapshot(price, bid, ask, volume float64) models.MarketSnapshot {
	return models.MarketSnapshot{
		Symbol:    "SHIB/USD",
		Timestamp: time.Now(),
		LastPrice: price,
		Bid:       bid,
		Ask:       ask,
		Volume24h: volume,
	}
}

func TestCheckLiquidityLowTierPasses(t *testing.T) {
	e := NewEngine(DefaultConfig())
	// $0.003 instrument, $600k volume, 2% spread: inside low-tier limits.
	snap := snapshot(0.003, 0.00297, 0.00303, 600_000)
	if err := e.CheckLiquidity(risk.ParamsFor(0.003), snap); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
}

func TestCheckLiquidityMediumTierVolumeFloor(t *testing.T) {
	e := NewEngine(DefaultConfig())
	// $0.10 instrument with only $50k daily volume must be rejected.
	snap := snapshot(0.10, 0.0999, 0.1001, 50_000)
	err := e.CheckLiquidity(risk.ParamsFor(0.10), snap)
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestCheckLiquiditySpreadCeiling(t *testing.T) {
	e := NewEngine(DefaultConfig())
	// 10% spread exceeds even the low tier's 8% ceiling.
	snap := snapshot(0.003, 0.0030, 0.0033, 600_000)
	err := e.CheckLiquidity(risk.ParamsFor(0.003), snap)
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestQuoteTargetCoversFeesAndMargin(t *testing.T) {
	e := NewEngine(DefaultConfig())
	params := risk.ParamsFor(0.003)
	snap := snapshot(0.003, 0.00297, 0.00303, 600_000)
	bal := models.Balance{Total: 10_000, Available: 10_000}

	q, err := e.Quote(params, snap, bal, 0)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.BuyPrice != snap.Ask {
		t.Errorf("buy price = %v, want ask %v", q.BuyPrice, snap.Ask)
	}
	want := q.BuyPrice * (1 + params.ProfitMargin + e.RoundTripFee())
	if diff := q.SellPrice - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("sell price = %v, want %v", q.SellPrice, want)
	}
	if q.SellPrice <= q.BuyPrice*(1+e.RoundTripFee()) {
		t.Error("sell target does not cover round-trip fees")
	}
}

func TestQuoteRespectsTradeCap(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := snapshot(0.003, 0.00297, 0.00303, 600_000)
	bal := models.Balance{Total: 10_000, Available: 10_000}

	q, err := e.Quote(risk.ParamsFor(0.003), snap, bal, 0)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	cap := 0.03 * bal.Available
	if q.Notional > cap+1e-9 {
		t.Errorf("notional %v exceeds per-trade cap %v", q.Notional, cap)
	}
}

func TestQuoteRespectsAccountCap(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := snapshot(0.003, 0.00297, 0.00303, 600_000)
	bal := models.Balance{Total: 10_000, Available: 10_000}
	committed := 900.0 // account cap is $1000, only $100 of room left

	q, err := e.Quote(risk.ParamsFor(0.003), snap, bal, committed)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Notional > 100+1e-9 {
		t.Errorf("notional %v exceeds remaining account room 100", q.Notional)
	}
}

func TestQuoteNoRoomLeft(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := snapshot(0.003, 0.00297, 0.00303, 600_000)
	bal := models.Balance{Total: 10_000, Available: 10_000}

	_, err := e.Quote(risk.ParamsFor(0.003), snap, bal, 1_000)
	if !errors.Is(err, ErrOrderTooSmall) {
		t.Fatalf("expected ErrOrderTooSmall, got %v", err)
	}
}

func TestQuoteBelowVenueMinimum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinQuantity = 1_000_000
	e := NewEngine(cfg)
	snap := snapshot(0.003, 0.00297, 0.00303, 600_000)
	bal := models.Balance{Total: 100, Available: 100}

	_, err := e.Quote(risk.ParamsFor(0.003), snap, bal, 0)
	if !errors.Is(err, ErrOrderTooSmall) {
		t.Fatalf("expected ErrOrderTooSmall, got %v", err)
	}
}

func TestQuoteLotStepFlooring(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LotStep = 100
	e := NewEngine(cfg)
	snap := snapshot(0.003, 0.00297, 0.00303, 600_000)
	bal := models.Balance{Total: 10_000, Available: 10_000}

	q, err := e.Quote(risk.ParamsFor(0.003), snap, bal, 0)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if rem := int64(q.Quantity) % 100; rem != 0 {
		t.Errorf("quantity %v not floored to lot step 100", q.Quantity)
	}
}
