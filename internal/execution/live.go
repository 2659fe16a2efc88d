package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
	"github.com/1cbyc/SyntheticQuantEngine/internal/ports"
)

// Live forwards order intents to the exchange terminal session. Order
// rejection and connectivity errors are returned to the caller; the loop
// treats them as cycle-local and leaves its risk state untouched.
type Live struct {
	exchange ports.ExchangeClient
	logger   ports.Logger
}

// NewLive creates a live executor on top of an exchange client.
func NewLive(exchange ports.ExchangeClient, logger ports.Logger) (*Live, error) {
	if exchange == nil {
		return nil, fmt.Errorf("exchange client is required for live executor")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for live executor")
	}
	return &Live{exchange: exchange, logger: logger}, nil
}

// Execute places a market order and reports the fill. When the exchange does
// not return an average fill price the reference price is used as fallback.
func (l *Live) Execute(ctx context.Context, intent domain.OrderIntent) (*domain.Fill, error) {
	resp, err := l.exchange.PlaceMarketOrder(ctx, intent.Symbol, intent.Side, intent.Quantity)
	if err != nil {
		return nil, fmt.Errorf("live order for %s failed: %w", intent.Symbol, err)
	}

	price := resp.AvgPrice
	if price == 0 {
		l.logger.Warn(ctx, "Order response has no average price, using reference price", map[string]interface{}{
			"orderID":  resp.OrderID,
			"symbol":   intent.Symbol,
			"fallback": intent.ReferencePrice,
		})
		price = intent.ReferencePrice
	}

	return &domain.Fill{
		Timestamp: time.Now().UTC(),
		Symbol:    intent.Symbol,
		Side:      intent.Side,
		Price:     price,
		Quantity:  intent.Quantity,
		Mode:      "live",
	}, nil
}
