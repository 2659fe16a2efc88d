// Package app wires the candle feed, signal engine, risk manager, executor
// and persistence into the live trading loop.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1cbyc/SyntheticQuantEngine/config"
	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
	"github.com/1cbyc/SyntheticQuantEngine/internal/ports"
	"github.com/1cbyc/SyntheticQuantEngine/internal/risk"
	"github.com/1cbyc/SyntheticQuantEngine/internal/strategy/signals"
)

// TradingService runs the poll-driven trading loop: each cycle it fetches a
// candle window per whitelisted symbol, derives the crossover signal, gates
// the resulting action through the risk manager and routes approved orders to
// the executor. All state mutation happens on the loop goroutine.
type TradingService struct {
	cfg       *config.Config
	logger    ports.Logger
	source    ports.CandleSource
	executor  ports.Executor
	posRepo   ports.PositionRepository
	tradeRepo ports.TradeRepository
	fillRepos []ports.FillRepository
	riskMgr   *risk.Manager
	params    signals.SMAParameters

	// Loop-owned state; no mutex because the loop is the single writer.
	riskState  risk.State
	positions  map[string]*domain.Position
	lastPrices map[string]float64

	now func() time.Time // Injectable clock for tests
}

// NewTradingService creates a new application service instance.
func NewTradingService(
	cfg *config.Config,
	logger ports.Logger,
	source ports.CandleSource,
	executor ports.Executor,
	posRepo ports.PositionRepository,
	tradeRepo ports.TradeRepository,
	riskMgr *risk.Manager,
	fillRepos ...ports.FillRepository,
) (*TradingService, error) {
	if cfg == nil || logger == nil || source == nil || executor == nil || posRepo == nil || tradeRepo == nil || riskMgr == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}
	if cfg.Quantity <= 0 {
		return nil, fmt.Errorf("%w: Quantity must be positive", ports.ErrConfiguration)
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol is required", ports.ErrConfiguration)
	}

	params := signals.SMAParameters{FastWindow: cfg.FastWindow, SlowWindow: cfg.SlowWindow}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &TradingService{
		cfg:        cfg,
		logger:     logger,
		source:     source,
		executor:   executor,
		posRepo:    posRepo,
		tradeRepo:  tradeRepo,
		fillRepos:  fillRepos,
		riskMgr:    riskMgr,
		params:     params,
		positions:  make(map[string]*domain.Position),
		lastPrices: make(map[string]float64),
		now:        time.Now,
	}, nil
}

// Start runs the trading loop until the context is canceled or MaxCycles is
// reached. The cycle in flight always completes before the loop exits; open
// positions are then flattened and recorded with close reason SHUTDOWN.
func (s *TradingService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Trading Service...", map[string]interface{}{
		"symbols":      s.cfg.Symbols,
		"interval":     s.cfg.Interval,
		"fastWindow":   s.params.FastWindow,
		"slowWindow":   s.params.SlowWindow,
		"pollInterval": s.cfg.PollInterval.String(),
		"paperMode":    s.cfg.PaperMode,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.restoreState(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	// Cycles run on a detached context: a stop signal arriving mid-cycle must
	// not interrupt an in-flight order, so cancellation only takes effect at
	// the tick boundary below.
	cycleCtx := context.WithoutCancel(ctx)

	cycles := 0
	for {
		s.maybeResetDaily(cycleCtx)
		s.runCycle(cycleCtx)
		cycles++

		if s.cfg.MaxCycles > 0 && cycles >= s.cfg.MaxCycles {
			s.logger.Info(ctx, "Max cycles reached, stopping", map[string]interface{}{"cycles": cycles})
			break
		}

		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Context canceled, stopping after current cycle")
			return s.shutdown()
		case <-ticker.C:
		}
	}

	return s.shutdown()
}

// restoreState rebuilds loop state from persistence: open positions per
// symbol, and the daily PnL counter from trades closed since the last
// cutover boundary.
func (s *TradingService) restoreState(ctx context.Context) error {
	for _, symbol := range s.cfg.Symbols {
		pos, err := s.posRepo.FindOpenBySymbol(ctx, symbol)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to check for existing open position", map[string]interface{}{"symbol": symbol})
			return fmt.Errorf("failed to query open position for %s: %w", symbol, err)
		}
		if pos != nil {
			s.positions[symbol] = pos
			s.riskState.RecordOpen()
			if restorer, ok := s.executor.(ports.PositionRestorer); ok {
				restorer.Restore(pos)
			}
			s.logger.Info(ctx, "Restored open position", map[string]interface{}{
				"positionID": pos.ID,
				"symbol":     symbol,
				"entryPrice": pos.EntryPrice,
			})
		}
	}

	dayStart := s.startOfDay(s.now())
	pnl, err := s.tradeRepo.RealizedPNLSince(ctx, dayStart)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to restore daily PnL")
		return fmt.Errorf("failed to restore daily pnl: %w", err)
	}
	s.riskState.DailyPnL = pnl
	s.riskState.LastDailyReset = dayStart
	s.logger.Info(ctx, "Initial state synchronized", map[string]interface{}{
		"openPositions": s.riskState.OpenPositions,
		"dailyPnL":      s.riskState.DailyPnL,
	})
	return nil
}

func (s *TradingService) startOfDay(t time.Time) time.Time {
	local := t.In(s.cfg.DayCutover)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.cfg.DayCutover)
}

// maybeResetDaily clears the daily risk counters when a cutover boundary has
// been crossed since the last reset.
func (s *TradingService) maybeResetDaily(ctx context.Context) {
	now := s.now()
	if s.startOfDay(now).After(s.riskState.LastDailyReset) {
		s.logger.Info(ctx, "Daily cutover reached, resetting risk counters", map[string]interface{}{
			"previousDailyPnL": s.riskState.DailyPnL,
			"timezone":         s.cfg.DayCutover.String(),
		})
		s.riskState.ResetDaily(s.startOfDay(now))
	}
}

// runCycle processes every whitelisted symbol once. A failure on one symbol
// never blocks the others.
func (s *TradingService) runCycle(ctx context.Context) {
	for _, symbol := range s.cfg.Symbols {
		s.processSymbol(ctx, symbol)
	}
}

func (s *TradingService) processSymbol(ctx context.Context, symbol string) {
	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.PollTimeout)
	defer cancel()

	windowSize := s.params.MinSeriesLength() + s.cfg.WindowBuffer
	series, err := s.source.Fetch(pollCtx, symbol, s.cfg.Interval, windowSize)
	if err != nil {
		// A slow or failed poll skips this symbol's cycle; the next tick retries.
		s.logger.Warn(ctx, "Candle poll failed, skipping cycle", map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		})
		return
	}
	if len(series) < s.params.MinSeriesLength() || !series.IsSorted() {
		s.logger.Warn(ctx, "Candle window unusable, skipping cycle", map[string]interface{}{
			"symbol":   symbol,
			"received": len(series),
			"required": s.params.MinSeriesLength(),
		})
		return
	}

	current, previous, confidence, err := signals.Latest(series, s.params)
	if err != nil {
		s.logger.Error(ctx, err, "Signal evaluation failed", map[string]interface{}{"symbol": symbol})
		return
	}
	price := series.Last().Close
	s.lastPrices[symbol] = price

	pos := s.positions[symbol]
	var posView *risk.PositionView
	if pos != nil {
		before := pos.HighWaterMark
		pos.ObservePrice(price)
		if pos.HighWaterMark > before {
			// Persist the advanced mark so the trailing stop survives a restart.
			if err := s.posRepo.Update(ctx, pos); err != nil {
				s.logger.Error(ctx, err, "Failed to persist high-water-mark", map[string]interface{}{"positionID": pos.ID})
			}
		}
		posView = &risk.PositionView{EntryPrice: pos.EntryPrice, HighWaterMark: pos.HighWaterMark}
	}

	action := s.proposeAction(symbol, price, pos, previous, current)
	if action.Kind == risk.ActionOpenLong && s.cfg.MinConfidence > 0 && confidence < s.cfg.MinConfidence {
		s.logger.Info(ctx, "Entry signal below confidence threshold", map[string]interface{}{
			"symbol":     symbol,
			"confidence": confidence,
			"threshold":  s.cfg.MinConfidence,
		})
		action.Kind = risk.ActionHold
	}
	eval := s.riskMgr.Evaluate(action, s.riskState, posView)

	s.logger.Debug(ctx, "Cycle evaluated", map[string]interface{}{
		"symbol":     symbol,
		"price":      price,
		"signal":     current.String(),
		"prevSignal": previous.String(),
		"confidence": confidence,
		"action":     string(action.Kind),
		"decision":   eval.Decision.String(),
	})

	switch eval.Decision {
	case risk.ForceFlatten:
		if pos == nil {
			return
		}
		s.logger.Warn(ctx, "Risk manager forcing position flat", map[string]interface{}{
			"symbol": symbol,
			"reason": eval.Reason,
		})
		s.closePosition(ctx, pos, price, eval.CloseReason)

	case risk.Block:
		s.logger.Info(ctx, "Action blocked by risk manager", map[string]interface{}{
			"symbol": symbol,
			"action": string(action.Kind),
			"reason": eval.Reason,
		})

	case risk.Approve:
		switch action.Kind {
		case risk.ActionOpenLong:
			s.openPosition(ctx, symbol, price)
		case risk.ActionCloseLong:
			s.closePosition(ctx, pos, price, domain.CloseReasonSignal)
		}
	}
}

// proposeAction maps the signal transition onto a trading action. Only the
// flat-to-long and long-to-flat edges act; everything else holds.
func (s *TradingService) proposeAction(symbol string, price float64, pos *domain.Position, previous, current domain.Signal) risk.ProposedAction {
	kind := risk.ActionHold
	switch {
	case pos == nil && previous == domain.SignalFlat && current == domain.SignalLong:
		kind = risk.ActionOpenLong
	case pos != nil && previous == domain.SignalLong && current == domain.SignalFlat:
		kind = risk.ActionCloseLong
	}
	return risk.ProposedAction{Kind: kind, Symbol: symbol, Price: price}
}

func (s *TradingService) openPosition(ctx context.Context, symbol string, price float64) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PollTimeout)
	defer cancel()

	intent := domain.OrderIntent{
		Symbol:         symbol,
		Side:           domain.Buy,
		Quantity:       s.cfg.Quantity,
		ReferencePrice: price,
	}
	fill, err := s.executor.Execute(ctx, intent)
	if err != nil {
		s.logger.Error(ctx, err, "Entry order failed", map[string]interface{}{"symbol": symbol})
		return
	}

	pos := &domain.Position{
		Symbol:        symbol,
		EntryPrice:    fill.Price,
		Quantity:      fill.Quantity,
		EntryTime:     fill.Timestamp,
		Status:        domain.StatusOpen,
		HighWaterMark: fill.Price,
	}
	if _, err := s.posRepo.Create(ctx, pos); err != nil {
		s.logger.Error(ctx, err, "Failed to persist new position", map[string]interface{}{"symbol": symbol})
		// The fill happened; keep trading on the in-memory position.
	}
	s.positions[symbol] = pos
	s.riskState.RecordOpen()
	s.appendFill(ctx, fill)

	s.logger.Info(ctx, "Opened long position", map[string]interface{}{
		"symbol":     symbol,
		"entryPrice": fill.Price,
		"quantity":   fill.Quantity,
		"positionID": pos.ID,
	})
}

func (s *TradingService) closePosition(ctx context.Context, pos *domain.Position, price float64, reason domain.CloseReason) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PollTimeout)
	defer cancel()

	intent := domain.OrderIntent{
		Symbol:         pos.Symbol,
		Side:           domain.Sell,
		Quantity:       pos.Quantity,
		ReferencePrice: price,
		Reason:         reason,
	}
	fill, err := s.executor.Execute(ctx, intent)
	if err != nil {
		s.logger.Error(ctx, err, "Exit order failed, position stays open", map[string]interface{}{
			"symbol": pos.Symbol,
			"reason": string(reason),
		})
		return
	}

	pnl := (fill.Price - pos.EntryPrice) * pos.Quantity
	pos.ExitPrice = fill.Price
	pos.ExitTime = fill.Timestamp
	pos.Status = domain.StatusClosed
	pos.PNL = pnl
	pos.CloseReason = reason

	if err := s.posRepo.Update(ctx, pos); err != nil {
		s.logger.Error(ctx, err, "Failed to persist closed position", map[string]interface{}{"positionID": pos.ID})
	}

	trade := &domain.Trade{
		PositionID:  pos.ID,
		Symbol:      pos.Symbol,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   fill.Price,
		Quantity:    pos.Quantity,
		Return:      fill.Price/pos.EntryPrice - 1.0,
		PNL:         pnl,
		EntryTime:   pos.EntryTime,
		ExitTime:    fill.Timestamp,
		CloseReason: reason,
	}
	if _, err := s.tradeRepo.CreateTrade(ctx, trade); err != nil {
		s.logger.Error(ctx, err, "Failed to persist trade", map[string]interface{}{"symbol": pos.Symbol})
	}

	fill.RealizedPNL = pnl
	s.appendFill(ctx, fill)

	delete(s.positions, pos.Symbol)
	s.riskState.RecordClose(pnl)

	s.logger.Info(ctx, "Closed position", map[string]interface{}{
		"symbol":      pos.Symbol,
		"exitPrice":   fill.Price,
		"pnl":         pnl,
		"closeReason": string(reason),
		"dailyPnL":    s.riskState.DailyPnL,
	})
}

func (s *TradingService) appendFill(ctx context.Context, fill *domain.Fill) {
	for _, repo := range s.fillRepos {
		if err := repo.AppendFill(ctx, fill); err != nil {
			s.logger.Error(ctx, err, "Failed to append fill to audit log", map[string]interface{}{"symbol": fill.Symbol})
		}
	}
}

// shutdown flattens any open positions at their last known price. Runs on a
// fresh context because the loop context is already canceled; closePosition
// bounds each order with the poll timeout.
func (s *TradingService) shutdown() error {
	ctx := context.Background()

	for symbol, pos := range s.positions {
		price, ok := s.lastPrices[symbol]
		if !ok {
			price = pos.EntryPrice
		}
		s.logger.Info(ctx, "Flattening position on shutdown", map[string]interface{}{"symbol": symbol})
		s.closePosition(ctx, pos, price, domain.CloseReasonShutdown)
	}
	s.logger.Info(ctx, "Trading Service stopped", map[string]interface{}{
		"dailyPnL": s.riskState.DailyPnL,
	})
	return nil
}
