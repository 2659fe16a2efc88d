package ports

import (
	"context"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
)

// Executor turns an order intent into a fill. Two implementations exist:
// a paper executor that simulates fills against the reference price, and a
// live executor that forwards orders to the exchange. The live loop is
// oblivious to which one it holds.
type Executor interface {
	Execute(ctx context.Context, intent domain.OrderIntent) (*domain.Fill, error)
}

// PositionRestorer is implemented by executors that keep their own book and
// need it reseeded with open positions recovered from persistence, so exits
// on restored positions fill like any other.
type PositionRestorer interface {
	Restore(pos *domain.Position)
}
