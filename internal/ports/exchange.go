package ports

import (
	"context"
	"time"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
)

// OrderResponse represents the essential details returned after placing an order.
type OrderResponse struct {
	OrderID       int64     // Exchange's order ID
	Symbol        string    // Symbol for the order
	ClientOrderID string    // Client-side order ID
	Price         float64   // Price of the order (might be 0 for market orders initially)
	AvgPrice      float64   // Average filled price
	OrigQuantity  float64   // Original quantity requested
	ExecutedQty   float64   // Quantity filled
	Status        string    // Order status (e.g., NEW, FILLED)
	Type          string    // Order type (e.g., MARKET)
	Side          string    // Order side (BUY, SELL)
	Timestamp     time.Time // Time the order response was generated
}

// CandleSource provides price bars from an external feed.
// The live loop polls Fetch once per cycle; the fetch pipeline uses FetchRange
// for historical downloads.
type CandleSource interface {
	// Fetch retrieves the most recent count candles for the symbol/interval.
	Fetch(ctx context.Context, symbol, interval string, count int) (domain.Series, error)
}

// ExchangeClient defines the interface for interacting with a trading exchange.
// This abstraction decouples the core loop from any specific exchange implementation.
type ExchangeClient interface {
	CandleSource

	// FetchRange retrieves candles between start and end, paginating as needed.
	FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) (domain.Series, error)

	// GetTickerPrice retrieves the last ticker price for a given symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// PlaceMarketOrder places a market order and returns the fill details.
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*OrderResponse, error)

	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error

	// GetServerTime retrieves the current server time from the exchange.
	GetServerTime(ctx context.Context) (time.Time, error)
}
