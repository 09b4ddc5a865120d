package models

import "time"

type PositionStatus string

const (
	PositionOpen    PositionStatus = "open"
	PositionClosing PositionStatus = "closing"
)

// Position is one live holding. At most one exists per instrument.
type Position struct {
	Symbol      string
	OrderID     string
	EntryPrice  float64
	TargetPrice float64
	Quantity    float64
	EntryFee    float64
	Status      PositionStatus
	OpenedAt    time.Time
}

// Notional returns the quote-currency value committed to the position.
func (p Position) Notional() float64 {
	return p.EntryPrice * p.Quantity
}

// TradeRecord is the immutable outcome of one completed round trip.
type TradeRecord struct {
	ID         string
	Symbol     string
	Side       Side // side of the closing leg, normally sell
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	Fees       float64 // both legs, quote currency
	NetPnL     float64 // proceeds - cost - fees
	Features   FeatureVector
	OpenedAt   time.Time
	ClosedAt   time.Time
}

// Win reports whether the round trip was profitable net of fees.
func (t TradeRecord) Win() bool { return t.NetPnL > 0 }

// InstrumentStats aggregates outcomes for a single symbol.
type InstrumentStats struct {
	Symbol   string  `json:"symbol"`
	Trades   int     `json:"trades"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	NetPnL   float64 `json:"net_pnl"`
	Fees     float64 `json:"fees"`
	Notional float64 `json:"notional"`
}

// SessionMetrics is the running summary of the trading session.
type SessionMetrics struct {
	StartedAt   time.Time                  `json:"started_at"`
	TotalTrades int                        `json:"total_trades"`
	BuyOrders   int                        `json:"buy_orders"`
	SellOrders  int                        `json:"sell_orders"`
	Wins        int                        `json:"wins"`
	Losses      int                        `json:"losses"`
	NetPnL      float64                    `json:"net_pnl"`
	TotalFees   float64                    `json:"total_fees"`
	Instruments map[string]InstrumentStats `json:"instruments"`
}

// WinRate returns wins over completed trades, 0 before the first trade.
func (m SessionMetrics) WinRate() float64 {
	if m.TotalTrades == 0 {
		return 0
	}
	return float64(m.Wins) / float64(m.TotalTrades)
}
