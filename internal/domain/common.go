package domain

// Signal is the discrete position signal derived from a price series.
type Signal int

const (
	SignalFlat Signal = 0
	SignalLong Signal = 1
)

// String returns the string representation of the signal.
func (s Signal) String() string {
	if s == SignalLong {
		return "LONG"
	}
	return "FLAT"
}

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// PositionStatus represents the status of a trading position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonSignal       CloseReason = "SIGNAL"        // Crossover flipped back to flat
	CloseReasonTrailingStop CloseReason = "TRAILING_STOP" // Retraced from high-water-mark
	CloseReasonTakeProfit   CloseReason = "TP"            // Reached take-profit distance
	CloseReasonDailyLoss    CloseReason = "DAILY_LOSS"    // Daily loss limit breached
	CloseReasonDailyProfit  CloseReason = "DAILY_PROFIT"  // Daily profit lock reached
	CloseReasonEndOfData    CloseReason = "END_OF_DATA"   // Forced close at series end (backtest)
	CloseReasonShutdown     CloseReason = "SHUTDOWN"      // Loop stopping
	CloseReasonUnknown      CloseReason = "UNKNOWN"
)
