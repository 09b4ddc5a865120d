// Package risk maps instrument prices to risk tiers and their trading
// parameters. Low-priced instruments move violently in percentage terms, so
// the cheaper the instrument the larger the demanded margin and the stricter
// the liquidity requirements, while position size scales the other way.
package risk

import "fmt"

type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Price boundaries between tiers, quote currency. Lower bound inclusive,
// upper bound exclusive.
const (
	lowUpper    = 0.05
	mediumUpper = 0.15
)

// Params are the per-tier trading knobs.
type Params struct {
	Tier           Tier
	SizeMultiplier float64 // scales the computed position size
	ProfitMargin   float64 // minimum margin demanded above round-trip fees
	MinDailyVolume float64 // quote-currency 24h volume floor
	MaxSpread      float64 // relative bid/ask spread ceiling
}

var tierParams = map[Tier]Params{
	TierLow: {
		Tier:           TierLow,
		SizeMultiplier: 1.0,
		ProfitMargin:   0.015,
		MinDailyVolume: 500_000,
		MaxSpread:      0.08,
	},
	TierMedium: {
		Tier:           TierMedium,
		SizeMultiplier: 0.7,
		ProfitMargin:   0.010,
		MinDailyVolume: 200_000,
		MaxSpread:      0.05,
	},
	TierHigh: {
		Tier:           TierHigh,
		SizeMultiplier: 0.4,
		ProfitMargin:   0.005,
		MinDailyVolume: 100_000,
		MaxSpread:      0.03,
	},
}

// Classify maps a non-negative price to exactly one tier.
func Classify(price float64) Tier {
	switch {
	case price < lowUpper:
		return TierLow
	case price < mediumUpper:
		return TierMedium
	default:
		return TierHigh
	}
}

// ParamsFor returns the trading parameters for a price.
func ParamsFor(price float64) Params {
	return tierParams[Classify(price)]
}

func (t Tier) String() string { return string(t) }

// Validate rejects tiers that did not come from Classify.
func (t Tier) Validate() error {
	if _, ok := tierParams[t]; !ok {
		return fmt.Errorf("unknown risk tier %q", string(t))
	}
	return nil
}
