// Package pricing turns a market snapshot and a risk tier into a priced,
// sized order intent, after gating on tier liquidity requirements.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"MicroTrade/internal/domain/models"
	"MicroTrade/internal/services/risk"
)

var (
	// ErrInsufficientLiquidity rejects an instrument before pricing.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrOrderTooSmall rejects a computed size below the venue minimum.
	ErrOrderTooSmall = errors.New("order size below venue minimum")
)

// Config holds the sizing knobs shared across tiers.
type Config struct {
	TakerFee           float64 // fraction, entry leg
	MakerFee           float64 // fraction, exit leg
	MaxAccountFraction float64 // cap on total committed notional
	MaxTradeFraction   float64 // cap on a single trade's notional
	LotStep            float64 // quantity granularity, 0 disables flooring
	MinQuantity        float64 // venue minimum order quantity
}

// DefaultConfig mirrors typical micro-cap venue economics.
func DefaultConfig() Config {
	return Config{
		TakerFee:           0.0026,
		MakerFee:           0.0016,
		MaxAccountFraction: 0.10,
		MaxTradeFraction:   0.03,
		LotStep:            0,
		MinQuantity:        0,
	}
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// RoundTripFee returns the combined fee fraction of both legs.
func (e *Engine) RoundTripFee() float64 {
	return e.cfg.TakerFee + e.cfg.MakerFee
}

// CheckLiquidity gates an instrument on its tier's volume floor and spread
// ceiling. It runs before any pricing work.
func (e *Engine) CheckLiquidity(params risk.Params, snap models.MarketSnapshot) error {
	if snap.Volume24h < params.MinDailyVolume {
		return fmt.Errorf("%w: 24h volume %.0f below %s tier floor %.0f",
			ErrInsufficientLiquidity, snap.Volume24h, params.Tier, params.MinDailyVolume)
	}
	if spread := snap.Spread(); spread > params.MaxSpread {
		return fmt.Errorf("%w: spread %.4f above %s tier ceiling %.4f",
			ErrInsufficientLiquidity, spread, params.Tier, params.MaxSpread)
	}
	return nil
}

// Quote prices and sizes an entry. The sell target covers both legs' fees
// plus the tier margin, so a fill at target is profitable net of costs.
// committed is the notional already locked in open positions; size never
// pushes total exposure past MaxAccountFraction nor a single trade past
// MaxTradeFraction.
func (e *Engine) Quote(params risk.Params, snap models.MarketSnapshot, balance models.Balance, committed float64) (models.Quote, error) {
	buy := snap.Ask
	if buy <= 0 {
		buy = snap.LastPrice
	}
	if buy <= 0 {
		return models.Quote{}, fmt.Errorf("%w: no usable price", ErrOrderTooSmall)
	}

	sell := buy * (1 + params.ProfitMargin + e.RoundTripFee())

	perTrade := e.cfg.MaxTradeFraction * balance.Available
	accountRoom := e.cfg.MaxAccountFraction*balance.Total - committed
	budget := math.Min(perTrade, accountRoom)
	if budget <= 0 {
		return models.Quote{}, fmt.Errorf("%w: no budget (committed %.2f)", ErrOrderTooSmall, committed)
	}

	qty := budget / (buy * (1 + e.cfg.TakerFee)) * params.SizeMultiplier
	if e.cfg.LotStep > 0 {
		qty = math.Floor(qty/e.cfg.LotStep) * e.cfg.LotStep
	}
	if qty <= 0 || qty < e.cfg.MinQuantity {
		return models.Quote{}, fmt.Errorf("%w: %.8f %s", ErrOrderTooSmall, qty, snap.Symbol)
	}

	return models.Quote{
		Symbol:    snap.Symbol,
		BuyPrice:  buy,
		SellPrice: sell,
		Quantity:  qty,
		Notional:  buy * qty,
	}, nil
}
