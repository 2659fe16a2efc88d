package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
)

func tradeAt(exit time.Time, ret float64, dur time.Duration) *domain.Trade {
	return &domain.Trade{
		Symbol:    "BTCUSDT",
		Return:    ret,
		EntryTime: exit.Add(-dur),
		ExitTime:  exit,
	}
}

func TestAnalyzeTradesEmpty(t *testing.T) {
	stats := AnalyzeTrades(nil)
	if stats.TotalTrades != 0 {
		t.Fatalf("TotalTrades = %d, want 0", stats.TotalTrades)
	}
	if len(stats.MonthlyReturns) != 0 {
		t.Fatalf("MonthlyReturns not empty: %v", stats.MonthlyReturns)
	}
}

func TestAnalyzeTrades(t *testing.T) {
	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	trades := []*domain.Trade{
		tradeAt(jan, 0.10, time.Hour),
		tradeAt(jan.Add(24*time.Hour), -0.05, 2*time.Hour),
		tradeAt(feb, -0.02, time.Hour),
		tradeAt(feb.Add(24*time.Hour), 0.04, 4*time.Hour),
	}

	stats := AnalyzeTrades(trades)

	if stats.TotalTrades != 4 {
		t.Fatalf("TotalTrades = %d, want 4", stats.TotalTrades)
	}
	if stats.WinningTrades != 2 || stats.LosingTrades != 2 {
		t.Errorf("wins/losses = %d/%d, want 2/2", stats.WinningTrades, stats.LosingTrades)
	}
	if stats.WinRate != 0.5 {
		t.Errorf("WinRate = %v, want 0.5", stats.WinRate)
	}
	if math.Abs(stats.AverageWin-0.07) > 1e-9 {
		t.Errorf("AverageWin = %v, want 0.07", stats.AverageWin)
	}
	if math.Abs(stats.AverageLoss-(-0.035)) > 1e-9 {
		t.Errorf("AverageLoss = %v, want -0.035", stats.AverageLoss)
	}
	if math.Abs(stats.ProfitFactor-2.0) > 1e-9 {
		t.Errorf("ProfitFactor = %v, want 2.0", stats.ProfitFactor)
	}
	if stats.BestTrade != 0.10 || stats.WorstTrade != -0.05 {
		t.Errorf("best/worst = %v/%v, want 0.10/-0.05", stats.BestTrade, stats.WorstTrade)
	}
	if stats.AverageTradeDuration != 2*time.Hour {
		t.Errorf("AverageTradeDuration = %v, want 2h", stats.AverageTradeDuration)
	}

	// January compounds 1.10 * 0.95 - 1.
	if got := stats.MonthlyReturns["2025-01"]; math.Abs(got-(1.10*0.95-1)) > 1e-9 {
		t.Errorf("January return = %v", got)
	}

	months := stats.SortedMonthlyReturns()
	if len(months) != 2 || !months[0].Month.Before(months[1].Month) {
		t.Errorf("SortedMonthlyReturns not chronological: %+v", months)
	}
}

func TestAnalyzeTradesStreaks(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rets := []float64{-0.01, -0.01, -0.01, 0.02, 0.02, -0.01}
	trades := make([]*domain.Trade, len(rets))
	for i, r := range rets {
		trades[i] = tradeAt(base.Add(time.Duration(i)*time.Hour), r, time.Minute)
	}

	stats := AnalyzeTrades(trades)
	if stats.MaxConsecutiveLosses != 3 {
		t.Errorf("MaxConsecutiveLosses = %d, want 3", stats.MaxConsecutiveLosses)
	}
	if stats.MaxConsecutiveWins != 2 {
		t.Errorf("MaxConsecutiveWins = %d, want 2", stats.MaxConsecutiveWins)
	}
}

func TestAnalyzeTradesDoesNotMutateInput(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	trades := []*domain.Trade{
		tradeAt(base.Add(2*time.Hour), 0.01, time.Minute),
		tradeAt(base, 0.02, time.Minute),
	}

	AnalyzeTrades(trades)
	if !trades[0].ExitTime.After(trades[1].ExitTime) {
		t.Fatal("input slice order changed")
	}
}
