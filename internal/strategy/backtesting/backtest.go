// Package backtesting replays a historical candle series bar-by-bar against
// the SMA crossover signal and aggregates performance into an immutable
// result. Runs are deterministic and share no state, so independent parameter
// sweeps can execute in parallel.
package backtesting

import (
	"time"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
	"github.com/1cbyc/SyntheticQuantEngine/internal/strategy/signals"
)

// EquityPoint is one point on the simulated equity curve.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// Result holds the outcome of a backtest run. Produced once per run and not
// modified afterwards.
type Result struct {
	TotalReturn    float64        // final_equity/initial_equity - 1
	MaxDrawdown    float64        // Peak-to-trough decline as a fraction of the peak, in [0, 1]
	WinRate        float64        // Fraction of closed trades with positive return; 0 when no trades
	NumberOfTrades int            // Closed round-trips only
	FinalEquity    float64        // Equity curve endpoint (starts at 1.0)
	EquityCurve    []EquityPoint  // One point per input candle
	Trades         []*domain.Trade
}

// Run replays the series against the crossover signal.
//
// Equity is normalized to 1.0 and accrues multiplicatively while long; flat
// bars leave it unchanged. A position still open at the final bar is closed
// at the last available price and recorded with close reason END_OF_DATA.
//
// Invalid parameters are the only error condition. An empty, too-short, or
// out-of-order series yields a zero-metrics result with a flat equity curve
// of the input length.
func Run(series domain.Series, params signals.SMAParameters) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	result := &Result{FinalEquity: 1.0}
	if len(series) < params.MinSeriesLength() || !series.IsSorted() {
		result.EquityCurve = flatCurve(series)
		return result, nil
	}

	sigs, err := signals.Generate(series, params)
	if err != nil {
		return nil, err
	}

	equity := 1.0
	peak := 1.0
	var position *domain.Position
	curve := make([]EquityPoint, 0, len(series))

	for i, candle := range series {
		// Accrue the bar's return if we were long over the interval.
		if i > 0 && sigs[i-1] == domain.SignalLong {
			equity *= candle.Close / series[i-1].Close
		}

		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > result.MaxDrawdown {
			result.MaxDrawdown = dd
		}

		prev := domain.SignalFlat
		if i > 0 {
			prev = sigs[i-1]
		}
		switch {
		case position == nil && prev == domain.SignalFlat && sigs[i] == domain.SignalLong:
			position = &domain.Position{
				Symbol:        candle.Symbol,
				EntryPrice:    candle.Close,
				Quantity:      1.0,
				EntryTime:     candle.OpenTime,
				Status:        domain.StatusOpen,
				HighWaterMark: candle.Close,
			}
		case position != nil && prev == domain.SignalLong && sigs[i] == domain.SignalFlat:
			result.Trades = append(result.Trades, closeTrade(position, candle, domain.CloseReasonSignal))
			position = nil
		}

		curve = append(curve, EquityPoint{Time: candle.OpenTime, Equity: equity})
	}

	// A position open at the final bar is force-closed at the last price so
	// the metrics cover every entry.
	if position != nil {
		result.Trades = append(result.Trades, closeTrade(position, series.Last(), domain.CloseReasonEndOfData))
	}

	result.EquityCurve = curve
	result.FinalEquity = equity
	result.TotalReturn = equity - 1.0
	result.NumberOfTrades = len(result.Trades)
	if result.NumberOfTrades > 0 {
		wins := 0
		for _, t := range result.Trades {
			if t.Return > 0 {
				wins++
			}
		}
		result.WinRate = float64(wins) / float64(result.NumberOfTrades)
	}
	return result, nil
}

func closeTrade(position *domain.Position, candle *domain.Candle, reason domain.CloseReason) *domain.Trade {
	ret := candle.Close/position.EntryPrice - 1.0
	return &domain.Trade{
		Symbol:      position.Symbol,
		EntryPrice:  position.EntryPrice,
		ExitPrice:   candle.Close,
		Quantity:    position.Quantity,
		Return:      ret,
		PNL:         (candle.Close - position.EntryPrice) * position.Quantity,
		EntryTime:   position.EntryTime,
		ExitTime:    candle.OpenTime,
		CloseReason: reason,
	}
}

func flatCurve(series domain.Series) []EquityPoint {
	curve := make([]EquityPoint, len(series))
	for i, c := range series {
		curve[i] = EquityPoint{Time: c.OpenTime, Equity: 1.0}
	}
	return curve
}
