package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MicroTrade/internal/domain/models"
	drepo "MicroTrade/internal/domain/repository"
	"MicroTrade/internal/service/ratelimit"
)

// Per-symbol order pacing, mirroring what real venues enforce. Breaches are
// retryable.
const (
	orderBurst  = 10
	orderRefill = 5 // tokens per second
)

// Paper is an in-process venue for dry runs. Orders fill immediately at the
// requested price with the configured taker fee; balances move the way a
// real spot account would.
type Paper struct {
	mu       sync.Mutex
	quote    float64 // free quote-currency balance
	locked   float64 // quote value committed to holdings, at cost
	holdings map[string]float64
	takerFee float64
	orderSeq int
	limits   *ratelimit.Limiter
}

func NewPaper(startingBalance, takerFee float64) *Paper {
	return &Paper{
		quote:    startingBalance,
		holdings: make(map[string]float64),
		takerFee: takerFee,
		limits:   ratelimit.New(),
	}
}

func (p *Paper) Balance(ctx context.Context) (models.Balance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return models.Balance{
		Total:     p.quote + p.locked,
		Available: p.quote,
	}, nil
}

func (p *Paper) Place(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	if req.Price <= 0 || req.Quantity <= 0 {
		return models.OrderResult{}, drepo.NewVenueError("place",
			fmt.Errorf("invalid order %s %s: price=%v qty=%v", req.Side, req.Symbol, req.Price, req.Quantity),
			false)
	}

	if !p.limits.Allow(req.Symbol, orderBurst, orderRefill) {
		return models.OrderResult{}, drepo.NewVenueError("place",
			fmt.Errorf("order rate limit for %s", req.Symbol), true)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	notional := req.Price * req.Quantity
	fee := notional * p.takerFee

	switch req.Side {
	case models.SideBuy:
		if cost := notional + fee; cost > p.quote {
			return models.OrderResult{}, drepo.NewVenueError("place",
				fmt.Errorf("insufficient funds: need %.2f, have %.2f", cost, p.quote), false)
		}
		p.quote -= notional + fee
		p.locked += notional
		p.holdings[req.Symbol] += req.Quantity
	case models.SideSell:
		held := p.holdings[req.Symbol]
		if req.Quantity > held+1e-9 {
			return models.OrderResult{}, drepo.NewVenueError("place",
				fmt.Errorf("insufficient holdings: %s have %v, want %v", req.Symbol, held, req.Quantity), false)
		}
		p.holdings[req.Symbol] = held - req.Quantity
		p.quote += notional - fee
		// release cost basis proportionally; approximate with sale notional
		if p.locked < notional {
			p.locked = 0
		} else {
			p.locked -= notional
		}
	default:
		return models.OrderResult{}, drepo.NewVenueError("place",
			fmt.Errorf("unknown side %q", req.Side), false)
	}

	p.orderSeq++
	return models.OrderResult{
		OrderID:  fmt.Sprintf("paper-%d", p.orderSeq),
		Symbol:   req.Symbol,
		Side:     req.Side,
		Price:    req.Price,
		Quantity: req.Quantity,
		Fee:      fee,
		FilledAt: time.Now(),
	}, nil
}

var (
	_ drepo.Account       = (*Paper)(nil)
	_ drepo.OrderExecutor = (*Paper)(nil)
)
