package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
	"github.com/1cbyc/SyntheticQuantEngine/internal/ports"
)

func testLimits() Limits {
	return Limits{
		MaxDailyLoss:         100,
		MaxDailyProfit:       200,
		MaxOpenPositions:     1,
		MaxConsecutiveLosses: 3,
		TrailingStopDistance: 10,
		TakeProfitDistance:   50,
	}
}

func mustManager(t *testing.T, limits Limits) *Manager {
	t.Helper()
	m, err := NewManager(limits)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestLimitsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Limits)
		wantErr bool
	}{
		{"valid", func(l *Limits) {}, false},
		{"zero daily loss", func(l *Limits) { l.MaxDailyLoss = 0 }, true},
		{"negative daily profit", func(l *Limits) { l.MaxDailyProfit = -1 }, true},
		{"zero max positions", func(l *Limits) { l.MaxOpenPositions = 0 }, true},
		{"zero consecutive losses", func(l *Limits) { l.MaxConsecutiveLosses = 0 }, true},
		{"negative trailing distance", func(l *Limits) { l.TrailingStopDistance = -5 }, true},
		{"optional rules disabled", func(l *Limits) {
			l.MaxDailyProfit = 0
			l.TrailingStopDistance = 0
			l.TakeProfitDistance = 0
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := testLimits()
			tt.mutate(&limits)
			err := limits.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !errors.Is(err, ports.ErrConfiguration) {
					t.Errorf("error %v does not wrap ErrConfiguration", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEvaluateApprovesWithinLimits(t *testing.T) {
	m := mustManager(t, testLimits())
	action := ProposedAction{Kind: ActionOpenLong, Symbol: "BTCUSDT", Price: 100}

	eval := m.Evaluate(action, State{}, nil)
	if eval.Decision != Approve {
		t.Fatalf("decision = %v, want APPROVE", eval.Decision)
	}
}

func TestEvaluateDailyLossStop(t *testing.T) {
	m := mustManager(t, testLimits())
	state := State{DailyPnL: -100}

	// New entries are blocked.
	eval := m.Evaluate(ProposedAction{Kind: ActionOpenLong, Price: 100}, state, nil)
	if eval.Decision != Block {
		t.Fatalf("entry decision = %v, want BLOCK", eval.Decision)
	}

	// An open position is force-flattened, even on a fresh entry signal.
	pos := &PositionView{EntryPrice: 100, HighWaterMark: 100}
	eval = m.Evaluate(ProposedAction{Kind: ActionHold, Price: 100}, state, pos)
	if eval.Decision != ForceFlatten {
		t.Fatalf("position decision = %v, want FORCE_FLATTEN", eval.Decision)
	}
	if eval.CloseReason != domain.CloseReasonDailyLoss {
		t.Errorf("close reason = %v, want DAILY_LOSS", eval.CloseReason)
	}
}

func TestEvaluateDailyProfitLock(t *testing.T) {
	m := mustManager(t, testLimits())
	state := State{DailyPnL: 200}

	eval := m.Evaluate(ProposedAction{Kind: ActionOpenLong, Price: 100}, state, nil)
	if eval.Decision != Block {
		t.Fatalf("entry decision = %v, want BLOCK", eval.Decision)
	}

	pos := &PositionView{EntryPrice: 100, HighWaterMark: 110}
	eval = m.Evaluate(ProposedAction{Kind: ActionHold, Price: 110}, state, pos)
	if eval.Decision != ForceFlatten {
		t.Fatalf("position decision = %v, want FORCE_FLATTEN", eval.Decision)
	}
	if eval.CloseReason != domain.CloseReasonDailyProfit {
		t.Errorf("close reason = %v, want DAILY_PROFIT", eval.CloseReason)
	}
}

func TestEvaluateDailyProfitDisabled(t *testing.T) {
	limits := testLimits()
	limits.MaxDailyProfit = 0
	m := mustManager(t, limits)

	eval := m.Evaluate(ProposedAction{Kind: ActionOpenLong, Price: 100}, State{DailyPnL: 10000}, nil)
	if eval.Decision != Approve {
		t.Fatalf("decision = %v, want APPROVE with profit lock disabled", eval.Decision)
	}
}

func TestEvaluateConsecutiveLossPause(t *testing.T) {
	m := mustManager(t, testLimits())
	state := State{ConsecutiveLosses: 3}

	eval := m.Evaluate(ProposedAction{Kind: ActionOpenLong, Price: 100}, state, nil)
	if eval.Decision != Block {
		t.Fatalf("entry decision = %v, want BLOCK after 3 losses", eval.Decision)
	}

	// Exits are unaffected by the pause.
	pos := &PositionView{EntryPrice: 100, HighWaterMark: 100}
	eval = m.Evaluate(ProposedAction{Kind: ActionCloseLong, Price: 100}, state, pos)
	if eval.Decision != Approve {
		t.Fatalf("exit decision = %v, want APPROVE", eval.Decision)
	}
}

func TestEvaluatePositionCap(t *testing.T) {
	m := mustManager(t, testLimits())
	state := State{OpenPositions: 1}

	eval := m.Evaluate(ProposedAction{Kind: ActionOpenLong, Price: 100}, state, nil)
	if eval.Decision != Block {
		t.Fatalf("decision = %v, want BLOCK at the position cap", eval.Decision)
	}
}

func TestEvaluateTrailingStop(t *testing.T) {
	m := mustManager(t, testLimits())
	pos := &PositionView{EntryPrice: 100, HighWaterMark: 120}

	// 120 -> 109 retraces 11 against a distance of 10.
	eval := m.Evaluate(ProposedAction{Kind: ActionHold, Price: 109}, State{OpenPositions: 1}, pos)
	if eval.Decision != ForceFlatten {
		t.Fatalf("decision = %v, want FORCE_FLATTEN", eval.Decision)
	}
	if eval.CloseReason != domain.CloseReasonTrailingStop {
		t.Errorf("close reason = %v, want TRAILING_STOP", eval.CloseReason)
	}

	// A retrace smaller than the distance holds.
	eval = m.Evaluate(ProposedAction{Kind: ActionHold, Price: 111}, State{OpenPositions: 1}, pos)
	if eval.Decision != Approve {
		t.Fatalf("decision = %v, want APPROVE above the stop", eval.Decision)
	}
}

func TestEvaluateTakeProfit(t *testing.T) {
	m := mustManager(t, testLimits())
	pos := &PositionView{EntryPrice: 100, HighWaterMark: 151}

	eval := m.Evaluate(ProposedAction{Kind: ActionHold, Price: 151}, State{OpenPositions: 1}, pos)
	if eval.Decision != ForceFlatten {
		t.Fatalf("decision = %v, want FORCE_FLATTEN", eval.Decision)
	}
	if eval.CloseReason != domain.CloseReasonTakeProfit {
		t.Errorf("close reason = %v, want TP", eval.CloseReason)
	}
}

func TestEvaluateRuleOrder(t *testing.T) {
	// Daily loss dominates the trailing stop when both trip.
	m := mustManager(t, testLimits())
	pos := &PositionView{EntryPrice: 100, HighWaterMark: 120}
	state := State{DailyPnL: -150, OpenPositions: 1}

	eval := m.Evaluate(ProposedAction{Kind: ActionHold, Price: 105}, state, pos)
	if eval.Decision != ForceFlatten {
		t.Fatalf("decision = %v, want FORCE_FLATTEN", eval.Decision)
	}
	if eval.CloseReason != domain.CloseReasonDailyLoss {
		t.Errorf("close reason = %v, want DAILY_LOSS to dominate", eval.CloseReason)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	m := mustManager(t, testLimits())
	state := State{DailyPnL: -50, OpenPositions: 1, ConsecutiveLosses: 1}
	pos := &PositionView{EntryPrice: 100, HighWaterMark: 105}
	action := ProposedAction{Kind: ActionHold, Price: 104}

	first := m.Evaluate(action, state, pos)
	second := m.Evaluate(action, state, pos)
	if first != second {
		t.Fatalf("evaluations differ: %+v vs %+v", first, second)
	}
	if state.DailyPnL != -50 || state.OpenPositions != 1 || state.ConsecutiveLosses != 1 {
		t.Fatal("Evaluate mutated the state")
	}
}

func TestStateRecordClose(t *testing.T) {
	var s State
	s.RecordOpen()
	if s.OpenPositions != 1 {
		t.Fatalf("OpenPositions = %d, want 1", s.OpenPositions)
	}

	s.RecordClose(-20)
	s.RecordClose(-10)
	if s.ConsecutiveLosses != 2 {
		t.Errorf("ConsecutiveLosses = %d, want 2", s.ConsecutiveLosses)
	}
	if s.DailyPnL != -30 {
		t.Errorf("DailyPnL = %v, want -30", s.DailyPnL)
	}

	// A win clears the run.
	s.RecordClose(15)
	if s.ConsecutiveLosses != 0 {
		t.Errorf("ConsecutiveLosses = %d, want 0 after a win", s.ConsecutiveLosses)
	}
}

func TestStateResetDaily(t *testing.T) {
	s := State{DailyPnL: -80, OpenPositions: 1, ConsecutiveLosses: 2}
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	s.ResetDaily(now)
	if s.DailyPnL != 0 || s.ConsecutiveLosses != 0 {
		t.Errorf("daily counters not cleared: %+v", s)
	}
	if s.OpenPositions != 1 {
		t.Errorf("OpenPositions = %d, reset must not touch open positions", s.OpenPositions)
	}
	if !s.LastDailyReset.Equal(now) {
		t.Errorf("LastDailyReset = %v, want %v", s.LastDailyReset, now)
	}
}
