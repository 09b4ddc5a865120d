package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MicroTrade/internal/domain/models"
	domrepo "MicroTrade/internal/domain/repository"
	pkgch "MicroTrade/pkg/clickhouse"
	applogger "MicroTrade/pkg/logger"
)

const (
	tradesTable    = "microtrade.trades"
	positionsTable = "microtrade.open_positions"
)

var schemaStmts = []string{
	`CREATE DATABASE IF NOT EXISTS microtrade`,
	`CREATE TABLE IF NOT EXISTS ` + tradesTable + ` (
        id          String,
        symbol      String,
        side        LowCardinality(String),
        entry_price Float64,
        exit_price  Float64,
        quantity    Float64,
        fees        Float64,
        net_pnl     Float64,
        features    Array(Float64),
        opened_at   DateTime64(3),
        closed_at   DateTime64(3)
    ) ENGINE = MergeTree
    ORDER BY (symbol, closed_at)`,
	`CREATE TABLE IF NOT EXISTS ` + positionsTable + ` (
        symbol       String,
        order_id     String,
        entry_price  Float64,
        target_price Float64,
        quantity     Float64,
        entry_fee    Float64,
        status       LowCardinality(String),
        opened_at    DateTime64(3),
        saved_at     DateTime64(3)
    ) ENGINE = ReplacingMergeTree(saved_at)
    ORDER BY symbol`,
}

// CHTradeStore persists completed trades and open-position snapshots in
// ClickHouse.
type CHTradeStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHTradeStore(ch *pkgch.Client) *CHTradeStore {
	return &CHTradeStore{client: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHTradeStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHTradeStore) Init(ctx context.Context) error {
	if err := s.client.InitSchema(ctx, schemaStmts); err != nil {
		return fmt.Errorf("trade store schema: %w", err)
	}
	return s.client.Health(ctx)
}

func (s *CHTradeStore) AppendTrade(ctx context.Context, t models.TradeRecord) error {
	const q = `INSERT INTO ` + tradesTable + `
        (id, symbol, side, entry_price, exit_price, quantity, fees, net_pnl, features, opened_at, closed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		t.ID, t.Symbol, string(t.Side),
		t.EntryPrice, t.ExitPrice, t.Quantity, t.Fees, t.NetPnL,
		t.Features.Slice(), t.OpenedAt, t.ClosedAt,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse append_trade error",
				applogger.String("symbol", t.Symbol),
				applogger.Error(err))
		}
		return fmt.Errorf("append trade: %w", err)
	}
	return nil
}

func (s *CHTradeStore) LoadTrades(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	start := time.Now()
	q := `SELECT id, symbol, side, entry_price, exit_price, quantity, fees, net_pnl, features, opened_at, closed_at
        FROM ` + tradesTable + ` ORDER BY closed_at DESC`
	args := []interface{}{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	defer rows.Close()

	var out []models.TradeRecord
	for rows.Next() {
		var (
			t    models.TradeRecord
			side string
			feat []float64
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &side,
			&t.EntryPrice, &t.ExitPrice, &t.Quantity, &t.Fees, &t.NetPnL,
			&feat, &t.OpenedAt, &t.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Side = models.Side(side)
		copy(t.Features[:], feat)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to oldest-first, the order the ledger expects
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse load_trades ok",
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)))
	}
	return out, nil
}

// SavePositions replaces the stored open-position snapshot. The table is a
// ReplacingMergeTree keyed by symbol; closed symbols are cleared explicitly.
func (s *CHTradeStore) SavePositions(ctx context.Context, positions []models.Position) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE TABLE `+positionsTable); err != nil {
		return fmt.Errorf("clear positions: %w", err)
	}
	if len(positions) == 0 {
		return nil
	}
	values := make([]string, 0, len(positions))
	args := make([]interface{}, 0, len(positions)*9)
	now := time.Now().UTC()
	for _, p := range positions {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, p.Symbol, p.OrderID, p.EntryPrice, p.TargetPrice,
			p.Quantity, p.EntryFee, string(p.Status), p.OpenedAt, now)
	}
	q := `INSERT INTO ` + positionsTable + `
        (symbol, order_id, entry_price, target_price, quantity, entry_fee, status, opened_at, saved_at)
        VALUES ` + strings.Join(values, ",")
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("save positions: %w", err)
	}
	return nil
}

func (s *CHTradeStore) LoadPositions(ctx context.Context) ([]models.Position, error) {
	const q = `SELECT symbol, order_id, entry_price, target_price, quantity, entry_fee, status, opened_at
        FROM ` + positionsTable + ` FINAL`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		var (
			p      models.Position
			status string
		)
		if err := rows.Scan(&p.Symbol, &p.OrderID, &p.EntryPrice, &p.TargetPrice,
			&p.Quantity, &p.EntryFee, &status, &p.OpenedAt); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		p.Status = models.PositionStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *CHTradeStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHTradeStore) Close() error {
	return nil // pool owned by pkg client
}

var _ domrepo.TradeStore = (*CHTradeStore)(nil)
