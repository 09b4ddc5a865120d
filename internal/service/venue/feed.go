package venue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MicroTrade/internal/domain/models"
	drepo "MicroTrade/internal/domain/repository"
	"MicroTrade/pkg/logger"
)

// ErrNoSnapshot means the feed has not seen usable data for the symbol
// recently enough to trade on.
var ErrNoSnapshot = errors.New("no fresh market snapshot")

// Feed caches the latest snapshot per symbol from a MarketStream and serves
// it through the MarketData interface. Snapshots older than maxAge are
// treated as missing: stale data must not drive a trade.
type Feed struct {
	stream  drepo.MarketStream
	symbols []string
	maxAge  time.Duration
	l       *logger.Logger

	mu     sync.RWMutex
	latest map[string]models.MarketSnapshot
}

func NewFeed(stream drepo.MarketStream, symbols []string, maxAge time.Duration, l *logger.Logger) *Feed {
	if maxAge <= 0 {
		maxAge = 2 * time.Minute
	}
	return &Feed{
		stream:  stream,
		symbols: symbols,
		maxAge:  maxAge,
		l:       l,
		latest:  make(map[string]models.MarketSnapshot),
	}
}

// Run consumes the stream until the context ends, reconnecting on errors.
func (f *Feed) Run(ctx context.Context) error {
	if err := f.stream.Connect(ctx); err != nil {
		return err
	}
	if err := f.stream.Subscribe(ctx, f.symbols); err != nil {
		return err
	}

	for {
		snaps, errs := f.stream.Read(ctx)
	consume:
		for {
			select {
			case <-ctx.Done():
				return nil
			case snap, ok := <-snaps:
				if !ok {
					break consume
				}
				if !snap.Valid() {
					continue
				}
				f.mu.Lock()
				f.latest[snap.Symbol] = snap
				f.mu.Unlock()
			case err, ok := <-errs:
				if !ok {
					break consume
				}
				f.l.Warn("market stream error, reconnecting", logger.Error(err))
				break consume
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		if err := f.stream.Reconnect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			f.l.Error("market stream reconnect failed", logger.Error(err))
			// keep trying; Reconnect already waited its delay
		}
	}
}

func (f *Feed) Snapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
	f.mu.RLock()
	snap, ok := f.latest[symbol]
	f.mu.RUnlock()
	if !ok {
		return models.MarketSnapshot{}, fmt.Errorf("%w: %s never seen", ErrNoSnapshot, symbol)
	}
	if age := time.Since(snap.Timestamp); age > f.maxAge {
		return models.MarketSnapshot{}, fmt.Errorf("%w: %s stale by %s", ErrNoSnapshot, symbol, age.Round(time.Second))
	}
	return snap, nil
}

func (f *Feed) Close() error {
	return f.stream.Close()
}

// Publish injects a snapshot directly, bypassing the stream. Useful for
// feeding synthetic ticks in dry runs.
func (f *Feed) Publish(snap models.MarketSnapshot) {
	if !snap.Valid() {
		return
	}
	f.mu.Lock()
	f.latest[snap.Symbol] = snap
	f.mu.Unlock()
}

var _ drepo.MarketData = (*Feed)(nil)
