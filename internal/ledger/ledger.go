// Package ledger is the single source of truth for completed trades, open
// positions, and session statistics. One writer (the cycle engine's
// traders, serialized per append) and many readers (HTTP status API,
// learning loop, metrics) share it behind an RWMutex.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MicroTrade/internal/domain/models"
	"MicroTrade/internal/domain/repository"
	"MicroTrade/pkg/logger"
)

var (
	// ErrPersistence marks a failed durable write; the in-memory state is
	// unchanged when it is returned.
	ErrPersistence = errors.New("trade persistence failed")
	// ErrPositionExists enforces one open position per instrument.
	ErrPositionExists = errors.New("position already open for instrument")
	// ErrNoPosition is returned when releasing an instrument with nothing open.
	ErrNoPosition = errors.New("no open position for instrument")
)

type Ledger struct {
	mu      sync.RWMutex
	records []models.TradeRecord
	open    map[string]models.Position
	metrics models.SessionMetrics

	store repository.TradeStore
	l     *logger.Logger
}

func New(store repository.TradeStore, l *logger.Logger) *Ledger {
	return &Ledger{
		open:  make(map[string]models.Position),
		store: store,
		metrics: models.SessionMetrics{
			StartedAt:   time.Now().UTC(),
			Instruments: make(map[string]models.InstrumentStats),
		},
		l: l,
	}
}

// Append durably persists the record, then folds it into the in-memory
// state. On persistence failure nothing is mutated and the caller may retry
// with the same record; the trade is not counted until Append succeeds.
func (lg *Ledger) Append(ctx context.Context, rec models.TradeRecord) error {
	if lg.store != nil {
		if err := lg.store.AppendTrade(ctx, rec); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrPersistence, rec.Symbol, err)
		}
	}

	lg.mu.Lock()
	defer lg.mu.Unlock()
	lg.records = append(lg.records, rec)
	lg.fold(rec)
	return nil
}

// fold updates the running aggregates. Caller holds the write lock.
func (lg *Ledger) fold(rec models.TradeRecord) {
	m := &lg.metrics
	m.TotalTrades++
	m.BuyOrders++ // every round trip has one entry leg
	if rec.Side == models.SideSell {
		m.SellOrders++
	}
	if rec.Win() {
		m.Wins++
	} else {
		m.Losses++
	}
	m.NetPnL += rec.NetPnL
	m.TotalFees += rec.Fees

	st := m.Instruments[rec.Symbol]
	st.Symbol = rec.Symbol
	st.Trades++
	if rec.Win() {
		st.Wins++
	} else {
		st.Losses++
	}
	st.NetPnL += rec.NetPnL
	st.Fees += rec.Fees
	st.Notional += rec.EntryPrice * rec.Quantity
	m.Instruments[rec.Symbol] = st
}

// Seed loads prior-session history and still-open positions, typically at
// startup from the trade store. Aggregates are rebuilt from the records.
func (lg *Ledger) Seed(records []models.TradeRecord, positions []models.Position) {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	for _, rec := range records {
		lg.records = append(lg.records, rec)
		lg.fold(rec)
	}
	for _, pos := range positions {
		if _, ok := lg.open[pos.Symbol]; ok {
			lg.l.Warn("duplicate open position in seed, keeping first",
				logger.String("symbol", pos.Symbol))
			continue
		}
		lg.open[pos.Symbol] = pos
	}
}

// TrackOpen registers a new open position. A second open position for the
// same instrument is a bug upstream and is rejected.
func (lg *Ledger) TrackOpen(pos models.Position) error {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	if _, ok := lg.open[pos.Symbol]; ok {
		return fmt.Errorf("%w: %s", ErrPositionExists, pos.Symbol)
	}
	lg.open[pos.Symbol] = pos
	return nil
}

// UpdateOpen replaces the stored position, e.g. on a status transition.
func (lg *Ledger) UpdateOpen(pos models.Position) error {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	if _, ok := lg.open[pos.Symbol]; !ok {
		return fmt.Errorf("%w: %s", ErrNoPosition, pos.Symbol)
	}
	lg.open[pos.Symbol] = pos
	return nil
}

// ReleaseOpen removes the instrument's open position after its round trip
// has been recorded.
func (lg *Ledger) ReleaseOpen(symbol string) error {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	if _, ok := lg.open[symbol]; !ok {
		return fmt.Errorf("%w: %s", ErrNoPosition, symbol)
	}
	delete(lg.open, symbol)
	return nil
}

// Open returns the instrument's open position, if any.
func (lg *Ledger) Open(symbol string) (models.Position, bool) {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	pos, ok := lg.open[symbol]
	return pos, ok
}

// OpenPositions returns a copy of all open positions.
func (lg *Ledger) OpenPositions() []models.Position {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	out := make([]models.Position, 0, len(lg.open))
	for _, pos := range lg.open {
		out = append(out, pos)
	}
	return out
}

// CommittedNotional is the quote-currency value locked in open positions,
// used by sizing to respect the account-level exposure cap.
func (lg *Ledger) CommittedNotional() float64 {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	total := 0.0
	for _, pos := range lg.open {
		total += pos.Notional()
	}
	return total
}

// Len is the number of completed trades.
func (lg *Ledger) Len() int {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	return len(lg.records)
}

// All returns a copy of every completed trade, oldest first.
func (lg *Ledger) All() []models.TradeRecord {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	out := make([]models.TradeRecord, len(lg.records))
	copy(out, lg.records)
	return out
}

// History returns up to n most recent trades for one instrument, oldest
// first. n <= 0 means no limit.
func (lg *Ledger) History(symbol string, n int) []models.TradeRecord {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	var out []models.TradeRecord
	for _, rec := range lg.records {
		if rec.Symbol == symbol {
			out = append(out, rec)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// Snapshot returns a deep copy of the session metrics. Two snapshots with no
// appends in between are identical.
func (lg *Ledger) Snapshot() models.SessionMetrics {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	out := lg.metrics
	out.Instruments = make(map[string]models.InstrumentStats, len(lg.metrics.Instruments))
	for k, v := range lg.metrics.Instruments {
		out.Instruments[k] = v
	}
	return out
}
