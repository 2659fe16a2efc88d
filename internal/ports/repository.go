package ports

import (
	"context"
	"time"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
)

// PositionRepository defines the interface for storing and retrieving positions.
type PositionRepository interface {
	// Create saves a new position and returns its assigned ID.
	Create(ctx context.Context, pos *domain.Position) (int64, error)
	// Update modifies an existing position.
	Update(ctx context.Context, pos *domain.Position) error
	// FindOpenBySymbol retrieves the currently open position for a given symbol, if any.
	// Returns nil, nil if no open position is found.
	FindOpenBySymbol(ctx context.Context, symbol string) (*domain.Position, error)
	// FindAll retrieves all positions, ordered by entry time descending.
	FindAll(ctx context.Context) ([]*domain.Position, error)
}

// TradeRepository defines the interface for storing and retrieving completed trades.
type TradeRepository interface {
	// CreateTrade saves a new trade record and returns its assigned ID.
	CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// FindBySymbol retrieves the most recent trades for a given symbol, up to a limit.
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error)
	// RealizedPNLSince sums the PNL of trades closed at or after the given instant.
	RealizedPNLSince(ctx context.Context, since time.Time) (float64, error)
}

// FillRepository is the append-only audit log of executor fills.
type FillRepository interface {
	// AppendFill records one fill row. Rows are never updated or deleted.
	AppendFill(ctx context.Context, fill *domain.Fill) error
}
