package domain

import "time"

// Position represents a long exposure held by the engine.
// A position is owned exclusively by the backtest run or live loop that
// created it and must not be shared between runs.
type Position struct {
	ID            int64          // Unique identifier for the position (usually from DB)
	Symbol        string         // Trading symbol
	EntryPrice    float64        // Price at which the position was entered
	ExitPrice     float64        // Price at which the position was exited (0 if open)
	Quantity      float64        // Size of the position
	EntryTime     time.Time      // Timestamp when the position was entered
	ExitTime      time.Time      // Timestamp when the position was exited (zero value if open)
	Status        PositionStatus // Current status (open, closed)
	PNL           float64        // Profit and loss, set on close
	CloseReason   CloseReason    // Reason for closing
	HighWaterMark float64        // Best price observed since entry, drives the trailing stop
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// ObservePrice raises the high-water-mark if price is a new best.
func (p *Position) ObservePrice(price float64) {
	if price > p.HighWaterMark {
		p.HighWaterMark = price
	}
}
