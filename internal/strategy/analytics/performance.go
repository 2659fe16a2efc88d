// Package analytics derives trade-level statistics from a closed trade log.
// It operates on fractional returns, so the numbers are comparable across
// symbols and position sizes.
package analytics

import (
	"sort"
	"time"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
)

// TradeStats holds aggregate statistics over a set of closed trades.
type TradeStats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	AverageWin  float64 // Mean fractional return of winning trades
	AverageLoss float64 // Mean fractional return of losing trades (negative)
	BestTrade   float64
	WorstTrade  float64

	ProfitFactor float64 // Gross wins / gross losses; 0 when no losses
	Expectancy   float64 // Expected fractional return per trade

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageTradeDuration time.Duration

	MonthlyReturns map[string]float64 // "2006-01" -> compounded fractional return
}

// MonthlyReturn is one month's compounded return.
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}

// AnalyzeTrades computes statistics over the given trades. The input is not
// modified; trades are processed in exit-time order.
func AnalyzeTrades(trades []*domain.Trade) *TradeStats {
	stats := &TradeStats{MonthlyReturns: make(map[string]float64)}
	if len(trades) == 0 {
		return stats
	}

	ordered := make([]*domain.Trade, len(trades))
	copy(ordered, trades)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ExitTime.Before(ordered[j].ExitTime)
	})

	var grossWins, grossLosses float64
	var winStreak, lossStreak int
	var totalDuration time.Duration

	// Monthly compounding: track (1+r) products per month, convert at the end.
	monthGrowth := make(map[string]float64)

	for _, trade := range ordered {
		stats.TotalTrades++
		totalDuration += trade.ExitTime.Sub(trade.EntryTime)

		if trade.Return > stats.BestTrade || stats.TotalTrades == 1 {
			stats.BestTrade = trade.Return
		}
		if trade.Return < stats.WorstTrade || stats.TotalTrades == 1 {
			stats.WorstTrade = trade.Return
		}

		if trade.Return > 0 {
			stats.WinningTrades++
			grossWins += trade.Return
			winStreak++
			lossStreak = 0
		} else {
			stats.LosingTrades++
			grossLosses += -trade.Return
			lossStreak++
			winStreak = 0
		}
		if winStreak > stats.MaxConsecutiveWins {
			stats.MaxConsecutiveWins = winStreak
		}
		if lossStreak > stats.MaxConsecutiveLosses {
			stats.MaxConsecutiveLosses = lossStreak
		}

		monthKey := trade.ExitTime.Format("2006-01")
		if _, ok := monthGrowth[monthKey]; !ok {
			monthGrowth[monthKey] = 1.0
		}
		monthGrowth[monthKey] *= 1.0 + trade.Return
	}

	stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades)
	if stats.WinningTrades > 0 {
		stats.AverageWin = grossWins / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AverageLoss = -grossLosses / float64(stats.LosingTrades)
	}
	if grossLosses > 0 {
		stats.ProfitFactor = grossWins / grossLosses
	}
	stats.Expectancy = stats.WinRate*stats.AverageWin + (1-stats.WinRate)*stats.AverageLoss
	stats.AverageTradeDuration = totalDuration / time.Duration(stats.TotalTrades)

	for month, growth := range monthGrowth {
		stats.MonthlyReturns[month] = growth - 1.0
	}

	return stats
}

// SortedMonthlyReturns returns the monthly returns in chronological order.
func (s *TradeStats) SortedMonthlyReturns() []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(s.MonthlyReturns))
	for month, ret := range s.MonthlyReturns {
		date, err := time.Parse("2006-01", month)
		if err != nil {
			continue
		}
		returns = append(returns, MonthlyReturn{Month: date, Return: ret})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}
