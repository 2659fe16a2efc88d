// Package risk gates proposed trading actions against configured limits.
//
// Evaluate is a pure function over immutable inputs: it never mutates the
// risk state and never reads the clock. The live loop applies the returned
// decision and then updates the state through the State methods, including
// the daily reset at the configured cutover.
package risk

import (
	"fmt"
	"time"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
	"github.com/1cbyc/SyntheticQuantEngine/internal/ports"
)

// Decision is the outcome of a risk evaluation. A risk breach is routine
// control flow, never an error.
type Decision int

const (
	Approve Decision = iota
	Block
	ForceFlatten
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	switch d {
	case Approve:
		return "APPROVE"
	case Block:
		return "BLOCK"
	case ForceFlatten:
		return "FORCE_FLATTEN"
	default:
		return "UNKNOWN"
	}
}

// ActionKind classifies the proposed action.
type ActionKind string

const (
	ActionOpenLong  ActionKind = "OPEN_LONG"
	ActionCloseLong ActionKind = "CLOSE_LONG"
	ActionHold      ActionKind = "HOLD"
)

// ProposedAction describes what the caller wants to do at the current price.
type ProposedAction struct {
	Kind   ActionKind
	Symbol string
	Price  float64
}

// Limits holds the configured risk limits. Distances are in price units;
// MaxDailyProfit, TrailingStopDistance and TakeProfitDistance are optional
// (zero disables the corresponding rule).
type Limits struct {
	MaxDailyLoss         float64
	MaxDailyProfit       float64
	MaxOpenPositions     int
	MaxConsecutiveLosses int
	TrailingStopDistance float64
	TakeProfitDistance   float64
}

// Validate checks the limit invariants. Violations are configuration errors
// reported before any evaluation runs.
func (l Limits) Validate() error {
	if l.MaxDailyLoss <= 0 {
		return fmt.Errorf("%w: MaxDailyLoss must be positive, got %v", ports.ErrConfiguration, l.MaxDailyLoss)
	}
	if l.MaxDailyProfit < 0 {
		return fmt.Errorf("%w: MaxDailyProfit cannot be negative, got %v", ports.ErrConfiguration, l.MaxDailyProfit)
	}
	if l.MaxOpenPositions < 1 {
		return fmt.Errorf("%w: MaxOpenPositions must be at least 1, got %d", ports.ErrConfiguration, l.MaxOpenPositions)
	}
	if l.MaxConsecutiveLosses < 1 {
		return fmt.Errorf("%w: MaxConsecutiveLosses must be at least 1, got %d", ports.ErrConfiguration, l.MaxConsecutiveLosses)
	}
	if l.TrailingStopDistance < 0 || l.TakeProfitDistance < 0 {
		return fmt.Errorf("%w: stop distances cannot be negative", ports.ErrConfiguration)
	}
	return nil
}

// State holds the account-level risk counters. It lives for the duration of
// the live loop process and has a single writer: the loop's control thread.
type State struct {
	DailyPnL          float64
	OpenPositions     int
	ConsecutiveLosses int
	LastDailyReset    time.Time
}

// RecordOpen accounts for a newly opened position.
func (s *State) RecordOpen() {
	s.OpenPositions++
}

// RecordClose accounts for a closed position and its realized PnL.
// A winning trade clears the consecutive-loss run.
func (s *State) RecordClose(pnl float64) {
	if s.OpenPositions > 0 {
		s.OpenPositions--
	}
	s.DailyPnL += pnl
	if pnl < 0 {
		s.ConsecutiveLosses++
	} else {
		s.ConsecutiveLosses = 0
	}
}

// ResetDaily clears the daily counters. Invoked once per boundary crossing
// by the live loop, never by the manager itself.
func (s *State) ResetDaily(now time.Time) {
	s.DailyPnL = 0
	s.ConsecutiveLosses = 0
	s.LastDailyReset = now
}

// PositionView is the per-position trailing-stop state for the symbol under
// evaluation: entry price and the best price seen since entry. Nil means no
// open position for the symbol.
type PositionView struct {
	EntryPrice    float64
	HighWaterMark float64
}

// Evaluation is the decision plus context for logging and order routing.
type Evaluation struct {
	Decision    Decision
	Reason      string
	CloseReason domain.CloseReason // Set when Decision is ForceFlatten
}

// Manager evaluates proposed actions against the configured limits.
type Manager struct {
	limits Limits
}

// NewManager creates a risk manager, validating the limits up front.
func NewManager(limits Limits) (*Manager, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Manager{limits: limits}, nil
}

// Limits returns the configured limits.
func (m *Manager) Limits() Limits {
	return m.limits
}

// Evaluate applies the risk rules in order; the first matching rule wins.
// FORCE_FLATTEN must dominate a fresh entry signal, so the daily-loss and
// daily-profit rules run before anything else.
func (m *Manager) Evaluate(action ProposedAction, state State, pos *PositionView) Evaluation {
	// 1. Daily loss stop: flatten anything open, block everything new.
	if state.DailyPnL <= -m.limits.MaxDailyLoss {
		if pos != nil {
			return Evaluation{
				Decision:    ForceFlatten,
				Reason:      fmt.Sprintf("daily loss limit reached (%.2f <= -%.2f)", state.DailyPnL, m.limits.MaxDailyLoss),
				CloseReason: domain.CloseReasonDailyLoss,
			}
		}
		return Evaluation{
			Decision: Block,
			Reason:   fmt.Sprintf("daily loss limit reached (%.2f <= -%.2f)", state.DailyPnL, m.limits.MaxDailyLoss),
		}
	}

	// 2. Daily profit lock, when configured.
	if m.limits.MaxDailyProfit > 0 && state.DailyPnL >= m.limits.MaxDailyProfit {
		if pos != nil {
			return Evaluation{
				Decision:    ForceFlatten,
				Reason:      fmt.Sprintf("daily profit target reached (%.2f >= %.2f)", state.DailyPnL, m.limits.MaxDailyProfit),
				CloseReason: domain.CloseReasonDailyProfit,
			}
		}
		return Evaluation{
			Decision: Block,
			Reason:   fmt.Sprintf("daily profit target reached (%.2f >= %.2f)", state.DailyPnL, m.limits.MaxDailyProfit),
		}
	}

	// 3. Consecutive-loss pause blocks new entries only.
	if action.Kind == ActionOpenLong && state.ConsecutiveLosses >= m.limits.MaxConsecutiveLosses {
		return Evaluation{
			Decision: Block,
			Reason:   fmt.Sprintf("paused after %d consecutive losses", state.ConsecutiveLosses),
		}
	}

	// 4. Position-count cap blocks new entries only.
	if action.Kind == ActionOpenLong && state.OpenPositions >= m.limits.MaxOpenPositions {
		return Evaluation{
			Decision: Block,
			Reason:   fmt.Sprintf("max open positions reached (%d/%d)", state.OpenPositions, m.limits.MaxOpenPositions),
		}
	}

	// 5. Trailing stop / take profit on the open position.
	if pos != nil {
		if m.limits.TrailingStopDistance > 0 && pos.HighWaterMark-action.Price >= m.limits.TrailingStopDistance {
			return Evaluation{
				Decision: ForceFlatten,
				Reason: fmt.Sprintf("trailing stop hit (hwm=%.4f, price=%.4f, distance=%.4f)",
					pos.HighWaterMark, action.Price, m.limits.TrailingStopDistance),
				CloseReason: domain.CloseReasonTrailingStop,
			}
		}
		if m.limits.TakeProfitDistance > 0 && action.Price-pos.EntryPrice >= m.limits.TakeProfitDistance {
			return Evaluation{
				Decision: ForceFlatten,
				Reason: fmt.Sprintf("take profit hit (entry=%.4f, price=%.4f, distance=%.4f)",
					pos.EntryPrice, action.Price, m.limits.TakeProfitDistance),
				CloseReason: domain.CloseReasonTakeProfit,
			}
		}
	}

	// 6. Nothing tripped.
	return Evaluation{Decision: Approve}
}
