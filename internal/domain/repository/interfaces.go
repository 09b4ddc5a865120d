package repository

import (
	"context"

	"MicroTrade/internal/domain/models"
)

// MarketData serves point-in-time snapshots for instruments the engine
// trades. Implementations may back this with a live stream and a cache.
type MarketData interface {
	Snapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error)
	Close() error
}

// MarketStream is a live feed of snapshots, used to keep MarketData fresh.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Read(ctx context.Context) (<-chan models.MarketSnapshot, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Account exposes the balance view used for sizing.
type Account interface {
	Balance(ctx context.Context) (models.Balance, error)
}

// OrderExecutor places orders at the venue. Errors may be retryable; see
// venue.IsRetryable.
type OrderExecutor interface {
	Place(ctx context.Context, req models.OrderRequest) (models.OrderResult, error)
}

// TradeStore durably persists completed trades and open positions.
type TradeStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	AppendTrade(ctx context.Context, t models.TradeRecord) error
	LoadTrades(ctx context.Context, limit int) ([]models.TradeRecord, error)
	SavePositions(ctx context.Context, positions []models.Position) error
	LoadPositions(ctx context.Context) ([]models.Position, error)
	Health(ctx context.Context) error
	Close() error
}

// EventSink receives decision and trade lifecycle events. Implementations
// must not block the trading cycle.
type EventSink interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}

// Event is one engine lifecycle notification.
type Event struct {
	Kind      string  `json:"kind"` // "rejected", "opened", "closed", "retrain"
	Symbol    string  `json:"symbol,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Quantity  float64 `json:"quantity,omitempty"`
	NetPnL    float64 `json:"net_pnl,omitempty"`
	Version   int     `json:"version,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

type Metrics interface {
	RecordCycle(seconds float64)
	RecordDecision(symbol, outcome string)
	RecordRejection(symbol, reason string)
	RecordTrade(symbol string, pnl float64, fees float64)
	RecordOpenPositions(n int)
	RecordModelVersion(v int)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
}
