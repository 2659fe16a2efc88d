// Package optimization sweeps the SMA window grid and ranks parameter pairs
// by backtest performance. Each combination runs against the same immutable
// series, so the sweep parallelizes across goroutines without locking.
package optimization

import (
	"context"
	"sort"
	"sync"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
	"github.com/1cbyc/SyntheticQuantEngine/internal/strategy/backtesting"
	"github.com/1cbyc/SyntheticQuantEngine/internal/strategy/signals"
)

// WindowRange defines the inclusive grid of window sizes to sweep.
type WindowRange struct {
	Min  int
	Max  int
	Step int
}

// Result pairs one parameter combination with its backtest outcome and score.
type Result struct {
	Params   signals.SMAParameters
	Backtest *backtesting.Result
	Score    float64
}

// ScoreFunc ranks one backtest outcome. Higher is better.
type ScoreFunc func(*backtesting.Result) float64

// Config holds the sweep definition.
type Config struct {
	FastRange WindowRange
	SlowRange WindowRange
	Workers   int       // Concurrent backtests; defaults to 4
	Score     ScoreFunc // Defaults to DefaultScore
}

// Optimizer runs SMA parameter sweeps.
type Optimizer struct {
	cfg Config
}

// New creates an optimizer, applying defaults for unset fields.
func New(cfg Config) *Optimizer {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Score == nil {
		cfg.Score = DefaultScore
	}
	if cfg.FastRange.Step <= 0 {
		cfg.FastRange.Step = 1
	}
	if cfg.SlowRange.Step <= 0 {
		cfg.SlowRange.Step = 1
	}
	return &Optimizer{cfg: cfg}
}

// Run evaluates every valid fast/slow combination against the series and
// returns the results sorted by score, best first. Combinations where fast
// is not strictly less than slow are skipped. Cancelling the context stops
// the sweep and returns the results collected so far.
func (o *Optimizer) Run(ctx context.Context, series domain.Series) ([]Result, error) {
	combos := o.combinations()

	jobs := make(chan signals.SMAParameters)
	resultChan := make(chan Result, len(combos))
	var wg sync.WaitGroup

	for w := 0; w < o.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for params := range jobs {
				bt, err := backtesting.Run(series, params)
				if err != nil {
					continue
				}
				resultChan <- Result{
					Params:   params,
					Backtest: bt,
					Score:    o.cfg.Score(bt),
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, params := range combos {
			select {
			case jobs <- params:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]Result, 0, len(combos))
	for result := range resultChan {
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, ctx.Err()
}

func (o *Optimizer) combinations() []signals.SMAParameters {
	var combos []signals.SMAParameters
	for fast := o.cfg.FastRange.Min; fast <= o.cfg.FastRange.Max; fast += o.cfg.FastRange.Step {
		for slow := o.cfg.SlowRange.Min; slow <= o.cfg.SlowRange.Max; slow += o.cfg.SlowRange.Step {
			if fast >= slow {
				continue
			}
			combos = append(combos, signals.SMAParameters{FastWindow: fast, SlowWindow: slow})
		}
	}
	return combos
}

// DefaultScore balances return against drawdown and trade count. A run with
// no trades scores zero so it never outranks an active combination.
func DefaultScore(r *backtesting.Result) float64 {
	if r.NumberOfTrades == 0 {
		return 0
	}
	score := r.TotalReturn
	score += (1 - r.MaxDrawdown) * 0.5
	score += r.WinRate * 0.25
	return score
}
