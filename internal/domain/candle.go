package domain

import "time"

// Candle represents a single OHLC price bar. Immutable once ingested.
type Candle struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Trading symbol
	Interval  string    // Candle interval (e.g., "1m", "5m")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Trading volume (may be zero for synthetic instruments)
}

// Series is an ordered sequence of candles for one symbol/interval pair.
// Invariant: strictly increasing open times.
type Series []*Candle

// Closes returns the closing prices of the series in order.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, c := range s {
		closes[i] = c.Close
	}
	return closes
}

// IsSorted reports whether open times are strictly increasing.
func (s Series) IsSorted() bool {
	for i := 1; i < len(s); i++ {
		if !s[i].OpenTime.After(s[i-1].OpenTime) {
			return false
		}
	}
	return true
}

// Last returns the most recent candle, or nil for an empty series.
func (s Series) Last() *Candle {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}
