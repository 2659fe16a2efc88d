package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/1cbyc/SyntheticQuantEngine/config"
	"github.com/1cbyc/SyntheticQuantEngine/internal/adapters/logger"
	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
	"github.com/1cbyc/SyntheticQuantEngine/internal/strategy/analytics"
	"github.com/1cbyc/SyntheticQuantEngine/internal/strategy/backtesting"
	"github.com/1cbyc/SyntheticQuantEngine/internal/strategy/optimization"
	"github.com/1cbyc/SyntheticQuantEngine/internal/strategy/signals"
	"github.com/1cbyc/SyntheticQuantEngine/internal/utils"
)

func main() {
	input := flag.String("input", "", "CSV file with candles (required)")
	fast := flag.Int("fast", 0, "fast SMA window (default from config)")
	slow := flag.Int("slow", 0, "slow SMA window (default from config)")
	sweep := flag.Bool("sweep", false, "sweep the window grid instead of a single run")
	fastMin := flag.Int("fast-min", 5, "sweep: fast window lower bound")
	fastMax := flag.Int("fast-max", 30, "sweep: fast window upper bound")
	slowMin := flag.Int("slow-min", 20, "sweep: slow window lower bound")
	slowMax := flag.Int("slow-max", 100, "sweep: slow window upper bound")
	step := flag.Int("step", 5, "sweep: grid step")
	top := flag.Int("top", 10, "sweep: how many results to print")
	flag.Parse()

	if *input == "" {
		log.Fatal("FATAL: -input is required")
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)

	// 2. Load candles from CSV
	series, err := utils.ReadCandlesFromCSV(*input)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error loading candles", map[string]interface{}{"file": *input})
		log.Fatalf("Error loading candles: %v", err)
	}
	appLogger.Info(context.Background(), "Loaded candles", map[string]interface{}{"file": *input, "count": len(series)})

	if *sweep {
		runSweep(cfg, series, *fastMin, *fastMax, *slowMin, *slowMax, *step, *top)
		return
	}

	params := signals.SMAParameters{FastWindow: cfg.FastWindow, SlowWindow: cfg.SlowWindow}
	if *fast > 0 {
		params.FastWindow = *fast
	}
	if *slow > 0 {
		params.SlowWindow = *slow
	}

	// 3. Run the backtest
	result, err := backtesting.Run(series, params)
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	fmt.Printf("\n=== Backtest %d/%d over %d candles ===\n", params.FastWindow, params.SlowWindow, len(series))
	fmt.Printf("Total return:   %+.2f%%\n", result.TotalReturn*100)
	fmt.Printf("Final equity:   %.4f\n", result.FinalEquity)
	fmt.Printf("Max drawdown:   %.2f%%\n", result.MaxDrawdown*100)
	fmt.Printf("Win rate:       %.1f%%\n", result.WinRate*100)
	fmt.Printf("Trades:         %d\n", result.NumberOfTrades)

	// 4. Trade-level statistics
	stats := analytics.AnalyzeTrades(result.Trades)
	if stats.TotalTrades > 0 {
		fmt.Printf("\n=== Trade statistics ===\n")
		fmt.Printf("Avg win:        %+.2f%%\n", stats.AverageWin*100)
		fmt.Printf("Avg loss:       %+.2f%%\n", stats.AverageLoss*100)
		fmt.Printf("Profit factor:  %.2f\n", stats.ProfitFactor)
		fmt.Printf("Expectancy:     %+.3f%%\n", stats.Expectancy*100)
		fmt.Printf("Best / worst:   %+.2f%% / %+.2f%%\n", stats.BestTrade*100, stats.WorstTrade*100)
		fmt.Printf("Max win/loss streak: %d / %d\n", stats.MaxConsecutiveWins, stats.MaxConsecutiveLosses)
		fmt.Printf("Avg duration:   %s\n", stats.AverageTradeDuration)

		fmt.Printf("\nMonthly returns:\n")
		for _, mr := range stats.SortedMonthlyReturns() {
			fmt.Printf("  %s  %+.2f%%\n", mr.Month.Format("2006-01"), mr.Return*100)
		}
	}
}

func runSweep(cfg *config.Config, series domain.Series, fastMin, fastMax, slowMin, slowMax, step, top int) {
	opt := optimization.New(optimization.Config{
		FastRange: optimization.WindowRange{Min: fastMin, Max: fastMax, Step: step},
		SlowRange: optimization.WindowRange{Min: slowMin, Max: slowMax, Step: step},
	})

	results, err := opt.Run(context.Background(), series)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	if len(results) == 0 {
		fmt.Println("No valid parameter combinations in the given ranges.")
		return
	}

	if top > len(results) {
		top = len(results)
	}
	fmt.Printf("\n=== Top %d of %d combinations ===\n", top, len(results))
	fmt.Printf("%-6s %-6s %10s %10s %8s %7s %8s\n", "fast", "slow", "return", "drawdown", "winrate", "trades", "score")
	for _, r := range results[:top] {
		fmt.Printf("%-6d %-6d %+9.2f%% %9.2f%% %7.1f%% %7d %8.3f\n",
			r.Params.FastWindow, r.Params.SlowWindow,
			r.Backtest.TotalReturn*100, r.Backtest.MaxDrawdown*100,
			r.Backtest.WinRate*100, r.Backtest.NumberOfTrades, r.Score)
	}
}
