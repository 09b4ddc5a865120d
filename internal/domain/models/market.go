package models

import "time"

// MarketSnapshot is a point-in-time observation of one instrument.
type MarketSnapshot struct {
	Symbol    string
	Timestamp time.Time
	LastPrice float64
	Bid       float64
	Ask       float64
	Volume24h float64 // quote-currency volume over the trailing 24h
}

// Spread returns the relative bid/ask spread, 0 when the book is empty.
func (s MarketSnapshot) Spread() float64 {
	if s.Bid <= 0 || s.Ask <= s.Bid {
		return 0
	}
	return (s.Ask - s.Bid) / s.Bid
}

// Valid reports whether the snapshot carries usable market data.
func (s MarketSnapshot) Valid() bool {
	return s.LastPrice > 0 && !s.Timestamp.IsZero()
}

// Balance is the account state used for sizing decisions.
type Balance struct {
	Total     float64 // total account value in quote currency
	Available float64 // free balance not locked in open orders
}

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderRequest is an intent to trade sent to the venue.
type OrderRequest struct {
	Symbol   string
	Side     Side
	Price    float64
	Quantity float64
}

// OrderResult is the venue's acknowledgment of a filled order.
type OrderResult struct {
	OrderID  string
	Symbol   string
	Side     Side
	Price    float64 // average fill price
	Quantity float64
	Fee      float64 // quote-currency fee charged for this fill
	FilledAt time.Time
}

// Quote is the priced and sized order intent produced for one entry.
type Quote struct {
	Symbol    string
	BuyPrice  float64
	SellPrice float64 // target exit covering fees on both legs plus margin
	Quantity  float64
	Notional  float64 // BuyPrice * Quantity
}
