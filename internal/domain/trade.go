package domain

import "time"

// Trade represents a completed round-trip. Immutable after creation.
type Trade struct {
	ID          int64       // Unique identifier for the trade (usually from DB)
	PositionID  int64       // Identifier of the position this trade closed (optional)
	Symbol      string      // Trading symbol
	EntryPrice  float64     // Price at which the position was entered
	ExitPrice   float64     // Price at which the position was exited
	Quantity    float64     // Size of the position traded
	Return      float64     // Fractional return: exit/entry - 1
	PNL         float64     // Profit and loss in quote currency
	EntryTime   time.Time   // Timestamp when the position was entered
	ExitTime    time.Time   // Timestamp when the position was exited
	CloseReason CloseReason // Reason why the position was closed
}

// OrderIntent describes a market order the loop wants executed.
type OrderIntent struct {
	Symbol         string
	Side           OrderSide
	Quantity       float64
	ReferencePrice float64 // Last known price, used by the paper executor as the fill price
	Reason         CloseReason
}

// Fill is the result of executing an order intent.
type Fill struct {
	Timestamp   time.Time
	Symbol      string
	Side        OrderSide
	Price       float64
	Quantity    float64
	RealizedPNL float64 // Non-zero only on closing fills
	Mode        string  // "paper" or "live", for the audit log
}
