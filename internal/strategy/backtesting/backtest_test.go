package backtesting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
	"github.com/1cbyc/SyntheticQuantEngine/internal/strategy/signals"
)

func makeSeries(closes ...float64) domain.Series {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(domain.Series, len(closes))
	for i, c := range closes {
		open := base.Add(time.Duration(i) * time.Minute)
		series[i] = &domain.Candle{
			OpenTime:  open,
			CloseTime: open.Add(time.Minute),
			Symbol:    "BTCUSDT",
			Interval:  "1m",
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1,
		}
	}
	return series
}

func risingSeries(n int) domain.Series {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return makeSeries(closes...)
}

func TestRunRisingSeriesSingleTrade(t *testing.T) {
	params := signals.SMAParameters{FastWindow: 5, SlowWindow: 20}
	series := risingSeries(60)

	result, err := Run(series, params)
	require.NoError(t, err)

	// One entry when the slow SMA becomes defined, held to the end.
	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, domain.CloseReasonEndOfData, trade.CloseReason)
	assert.Equal(t, 119.0, trade.EntryPrice)
	assert.Equal(t, 159.0, trade.ExitPrice)

	// Equity accrues from the bar after entry: 159/119.
	assert.InDelta(t, 159.0/119.0, result.FinalEquity, 1e-9)
	assert.InDelta(t, 159.0/119.0-1.0, result.TotalReturn, 1e-9)
	assert.Equal(t, 1, result.NumberOfTrades)
	assert.Equal(t, 1.0, result.WinRate)
	assert.Equal(t, 0.0, result.MaxDrawdown)
	assert.Len(t, result.EquityCurve, len(series))
}

func TestRunConstantPriceNoTrades(t *testing.T) {
	params := signals.SMAParameters{FastWindow: 5, SlowWindow: 20}
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 250
	}

	result, err := Run(makeSeries(closes...), params)
	require.NoError(t, err)

	assert.Equal(t, 0, result.NumberOfTrades)
	assert.Equal(t, 0.0, result.TotalReturn)
	assert.Equal(t, 1.0, result.FinalEquity)
	assert.Equal(t, 0.0, result.WinRate)
	require.Len(t, result.EquityCurve, 40)
	for _, p := range result.EquityCurve {
		assert.Equal(t, 1.0, p.Equity)
	}
}

func TestRunShortSeriesDegrades(t *testing.T) {
	params := signals.SMAParameters{FastWindow: 5, SlowWindow: 20}
	series := risingSeries(10) // below MinSeriesLength

	result, err := Run(series, params)
	require.NoError(t, err)

	assert.Equal(t, 0, result.NumberOfTrades)
	assert.Equal(t, 0.0, result.TotalReturn)
	assert.Equal(t, 1.0, result.FinalEquity)
	require.Len(t, result.EquityCurve, len(series))
	for _, p := range result.EquityCurve {
		assert.Equal(t, 1.0, p.Equity)
	}
}

func TestRunUnsortedSeriesDegrades(t *testing.T) {
	params := signals.SMAParameters{FastWindow: 2, SlowWindow: 4}
	series := risingSeries(30)
	series[10], series[11] = series[11], series[10]

	result, err := Run(series, params)
	require.NoError(t, err)
	assert.Equal(t, 0, result.NumberOfTrades)
	assert.Equal(t, 1.0, result.FinalEquity)
	assert.Len(t, result.EquityCurve, 30)
}

func TestRunInvalidParams(t *testing.T) {
	_, err := Run(risingSeries(60), signals.SMAParameters{FastWindow: 20, SlowWindow: 5})
	require.Error(t, err)
}

func TestRunRoundTripAndDrawdown(t *testing.T) {
	params := signals.SMAParameters{FastWindow: 2, SlowWindow: 4}
	// Ramp up to go long, decline to cross back flat, then idle.
	series := makeSeries(10, 20, 30, 40, 50, 45, 30, 20, 20, 20, 20, 20)

	result, err := Run(series, params)
	require.NoError(t, err)

	require.NotEmpty(t, result.Trades)
	first := result.Trades[0]
	assert.Equal(t, domain.CloseReasonSignal, first.CloseReason)
	assert.Less(t, first.Return, 0.0)

	assert.Greater(t, result.MaxDrawdown, 0.0)
	assert.LessOrEqual(t, result.MaxDrawdown, 1.0)
	assert.Less(t, result.FinalEquity, 1.0)
	assert.Equal(t, 0.0, result.WinRate)
}
