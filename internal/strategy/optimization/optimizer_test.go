package optimization

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
	"github.com/1cbyc/SyntheticQuantEngine/internal/strategy/backtesting"
)

func risingSeries(n int) domain.Series {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(domain.Series, n)
	for i := range series {
		open := base.Add(time.Duration(i) * time.Minute)
		c := 100 + float64(i)
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

func TestRunSweepsGrid(t *testing.T) {
	opt := New(Config{
		FastRange: WindowRange{Min: 2, Max: 4, Step: 1},
		SlowRange: WindowRange{Min: 4, Max: 8, Step: 2},
		Workers:   2,
	})

	results, err := opt.Run(context.Background(), risingSeries(60))
	require.NoError(t, err)

	// fast in {2,3,4}, slow in {4,6,8}, minus pairs with fast >= slow.
	assert.Len(t, results, 8)

	// Sorted best-first.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	for _, r := range results {
		assert.Less(t, r.Params.FastWindow, r.Params.SlowWindow)
		require.NotNil(t, r.Backtest)
	}
}

func TestRunEmptyGrid(t *testing.T) {
	opt := New(Config{
		FastRange: WindowRange{Min: 10, Max: 12, Step: 1},
		SlowRange: WindowRange{Min: 4, Max: 8, Step: 2},
	})

	results, err := opt.Run(context.Background(), risingSeries(30))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opt := New(Config{
		FastRange: WindowRange{Min: 2, Max: 10, Step: 1},
		SlowRange: WindowRange{Min: 11, Max: 40, Step: 1},
	})
	_, err := opt.Run(ctx, risingSeries(100))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultScore(t *testing.T) {
	assert.Equal(t, 0.0, DefaultScore(&backtesting.Result{}))

	active := &backtesting.Result{
		TotalReturn:    0.2,
		MaxDrawdown:    0.1,
		WinRate:        0.6,
		NumberOfTrades: 3,
	}
	idle := &backtesting.Result{NumberOfTrades: 0, TotalReturn: 10}
	assert.Greater(t, DefaultScore(active), DefaultScore(idle))
}
