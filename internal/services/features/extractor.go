// Package features derives the fixed-arity numeric view of an instrument
// consumed by the prediction engine and the trainer. Extraction is
// deterministic: the same snapshot and history always yield the same vector.
package features

import (
	"errors"
	"fmt"
	"math"

	"MicroTrade/internal/domain/models"
	"MicroTrade/internal/services/risk"
)

// ErrInvalidSnapshot rejects snapshots without usable market data.
var ErrInvalidSnapshot = errors.New("invalid market snapshot")

// neutralVolatility stands in while an instrument has no trade history yet.
const neutralVolatility = 0.01

type Extractor struct {
	roundTripFee float64
}

// NewExtractor builds an extractor; roundTripFee is the combined fee
// fraction of both legs, baked into every vector so the model sees costs.
func NewExtractor(roundTripFee float64) *Extractor {
	return &Extractor{roundTripFee: roundTripFee}
}

// Extract maps a snapshot plus the instrument's recent completed trades to a
// FeatureVector. Empty history is a cold start and substitutes neutral
// defaults; only an unusable snapshot fails.
func (e *Extractor) Extract(snap models.MarketSnapshot, recent []models.TradeRecord) (models.FeatureVector, error) {
	var v models.FeatureVector
	if !snap.Valid() {
		return v, fmt.Errorf("%w: %s price=%v ts=%v", ErrInvalidSnapshot, snap.Symbol, snap.LastPrice, snap.Timestamp)
	}

	ts := snap.Timestamp.UTC()
	margin := risk.ParamsFor(snap.LastPrice).ProfitMargin

	v[models.FeatPrice] = snap.LastPrice
	v[models.FeatVolume] = snap.Volume24h
	v[models.FeatHourOfDay] = float64(ts.Hour())
	v[models.FeatDayOfWeek] = float64(ts.Weekday())
	v[models.FeatRoundTripFee] = e.roundTripFee
	v[models.FeatVolatility] = priceVolatility(snap.LastPrice, recent)
	v[models.FeatProfitAfterFees] = margin - e.roundTripFee
	return v, nil
}

// priceVolatility is the coefficient of variation over the recent entry
// prices plus the current price. Requires at least one prior record.
func priceVolatility(current float64, recent []models.TradeRecord) float64 {
	if len(recent) == 0 {
		return neutralVolatility
	}
	prices := make([]float64, 0, len(recent)+1)
	for _, r := range recent {
		if r.EntryPrice > 0 {
			prices = append(prices, r.EntryPrice)
		}
	}
	prices = append(prices, current)
	if len(prices) < 2 {
		return neutralVolatility
	}

	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))
	if mean <= 0 {
		return neutralVolatility
	}
	var sq float64
	for _, p := range prices {
		d := p - mean
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(prices))) / mean
}
