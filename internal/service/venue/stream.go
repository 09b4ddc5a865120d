// Package venue holds the exchange-facing collaborators: the websocket
// ticker stream, the snapshot feed built on it, a paper venue for dry runs,
// and the cached account wrapper.
package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"MicroTrade/internal/domain/models"
	drepo "MicroTrade/internal/domain/repository"
	"MicroTrade/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream implements MarketStream over the venue's public ticker websocket.
type Stream struct {
	url            string
	apiKey         string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *logger.Logger

	conn      *websocket.Conn
	symbols   []string
	connected bool
}

type StreamOption func(*Stream)

func WithAPIKey(key string) StreamOption {
	return func(s *Stream) { s.apiKey = key }
}

func WithReconnectDelay(d time.Duration) StreamOption {
	return func(s *Stream) { s.reconnectDelay = d }
}

func WithPingInterval(d time.Duration) StreamOption {
	return func(s *Stream) { s.pingInterval = d }
}

func NewStream(url string, l *logger.Logger, opts ...StreamOption) *Stream {
	s := &Stream{
		url:            url,
		reconnectDelay: 5 * time.Second,
		pingInterval:   20 * time.Second,
		l:              l,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stream) Connect(ctx context.Context) error {
	u := s.url
	if s.apiKey != "" {
		u = fmt.Sprintf("%s?token=%s", s.url, s.apiKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("venue stream connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	s.l.Info("venue stream connected", logger.String("url", s.url))
	return nil
}

func (s *Stream) Subscribe(ctx context.Context, symbols []string) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("venue stream not connected")
	}
	s.symbols = symbols
	for _, sym := range symbols {
		msg := map[string]string{"type": "subscribe", "channel": "ticker", "symbol": sym}
		if err := s.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}
	s.l.Info("venue stream subscribed", logger.Int("symbols", len(symbols)))
	return nil
}

type tickerFrame struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Volume24h float64 `json:"volume_24h"`
	TsMs      int64   `json:"ts"`
}

// Read streams snapshots and errors. Slow consumers drop frames rather than
// stalling the socket. Both goroutines are pinned to the conn at call time
// and the pinger stops with the read loop, so a reconnect never leaves a
// stale pinger writing to the replacement conn.
func (s *Stream) Read(ctx context.Context) (<-chan models.MarketSnapshot, <-chan error) {
	snaps := make(chan models.MarketSnapshot, 1024)
	errs := make(chan error, 1)
	conn := s.conn
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(snaps)
		defer close(errs)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if conn == nil {
					errs <- fmt.Errorf("venue stream conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("venue stream read: %w", err)
					return
				}
				var f tickerFrame
				if err := json.Unmarshal(b, &f); err != nil {
					continue // ignore non-ticker frames
				}
				if f.Type != "ticker" || f.Symbol == "" {
					continue
				}
				snap := models.MarketSnapshot{
					Symbol:    f.Symbol,
					Timestamp: time.UnixMilli(f.TsMs),
					LastPrice: f.Price,
					Bid:       f.Bid,
					Ask:       f.Ask,
					Volume24h: f.Volume24h,
				}
				select {
				case snaps <- snap:
				default:
				}
			}
		}
	}()

	return snaps, errs
}

func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx, s.symbols)
}

func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Stream) IsConnected() bool { return s.connected }

var _ drepo.MarketStream = (*Stream)(nil)
