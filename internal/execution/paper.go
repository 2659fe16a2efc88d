// Package execution provides the two ports.Executor implementations: a paper
// executor that simulates fills and a live executor that forwards orders to
// the exchange. The live loop selects one at startup and never branches on
// the mode again.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
	"github.com/1cbyc/SyntheticQuantEngine/internal/ports"
)

type paperPosition struct {
	entryPrice float64
	quantity   float64
	openTime   time.Time
}

// Paper simulates fills at the intent's reference price. No slippage is
// modeled and execution always succeeds. Every simulated order is appended to
// an in-memory trade log for audit.
type Paper struct {
	logger    ports.Logger
	equity    float64
	positions map[string]*paperPosition
	tradeLog  []domain.Fill
	now       func() time.Time
}

// NewPaper creates a paper executor with the given starting equity.
func NewPaper(startingEquity float64, logger ports.Logger) (*Paper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for paper executor")
	}
	if startingEquity <= 0 {
		return nil, fmt.Errorf("%w: starting equity must be positive", ports.ErrConfiguration)
	}
	return &Paper{
		logger:    logger,
		equity:    startingEquity,
		positions: make(map[string]*paperPosition),
		now:       time.Now,
	}, nil
}

// Execute synthesizes a fill at the reference price and updates the simulated
// book. A BUY opens a position for the symbol; a SELL closes it and realizes
// the PnL.
func (p *Paper) Execute(ctx context.Context, intent domain.OrderIntent) (*domain.Fill, error) {
	fill := &domain.Fill{
		Timestamp: p.now().UTC(),
		Symbol:    intent.Symbol,
		Side:      intent.Side,
		Price:     intent.ReferencePrice,
		Quantity:  intent.Quantity,
		Mode:      "paper",
	}

	switch intent.Side {
	case domain.Buy:
		if _, ok := p.positions[intent.Symbol]; ok {
			return nil, fmt.Errorf("paper executor: position already open for %s", intent.Symbol)
		}
		p.positions[intent.Symbol] = &paperPosition{
			entryPrice: intent.ReferencePrice,
			quantity:   intent.Quantity,
			openTime:   fill.Timestamp,
		}
	case domain.Sell:
		pos, ok := p.positions[intent.Symbol]
		if !ok {
			return nil, fmt.Errorf("paper executor: no open position for %s", intent.Symbol)
		}
		fill.RealizedPNL = (intent.ReferencePrice - pos.entryPrice) * pos.quantity
		p.equity += fill.RealizedPNL
		delete(p.positions, intent.Symbol)
	default:
		return nil, fmt.Errorf("%w: unsupported order side %q", ports.ErrInvalidRequest, intent.Side)
	}

	p.tradeLog = append(p.tradeLog, *fill)
	p.logger.Debug(ctx, "Paper fill", map[string]interface{}{
		"symbol":   intent.Symbol,
		"side":     intent.Side,
		"price":    fill.Price,
		"quantity": fill.Quantity,
		"pnl":      fill.RealizedPNL,
		"equity":   p.equity,
	})
	return fill, nil
}

// Restore seeds the simulated book with an open position recovered from
// persistence, so a later closing order fills instead of failing.
func (p *Paper) Restore(pos *domain.Position) {
	if pos == nil || !pos.IsOpen() {
		return
	}
	p.positions[pos.Symbol] = &paperPosition{
		entryPrice: pos.EntryPrice,
		quantity:   pos.Quantity,
		openTime:   pos.EntryTime,
	}
}

// Equity returns the current simulated account equity.
func (p *Paper) Equity() float64 {
	return p.equity
}

// TradeLog returns a copy of the append-only simulated order log.
func (p *Paper) TradeLog() []domain.Fill {
	out := make([]domain.Fill, len(p.tradeLog))
	copy(out, p.tradeLog)
	return out
}
