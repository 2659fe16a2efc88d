package domain

import (
	"testing"
	"time"
)

func candleAt(minute int, close float64) *Candle {
	open := time.Date(2025, 1, 1, 0, minute, 0, 0, time.UTC)
	return &Candle{OpenTime: open, CloseTime: open.Add(time.Minute), Close: close}
}

func TestSeriesCloses(t *testing.T) {
	s := Series{candleAt(0, 10), candleAt(1, 11), candleAt(2, 12)}
	closes := s.Closes()
	if len(closes) != 3 || closes[0] != 10 || closes[2] != 12 {
		t.Fatalf("Closes = %v", closes)
	}
}

func TestSeriesIsSorted(t *testing.T) {
	sorted := Series{candleAt(0, 1), candleAt(1, 1), candleAt(2, 1)}
	if !sorted.IsSorted() {
		t.Error("sorted series reported unsorted")
	}

	unsorted := Series{candleAt(0, 1), candleAt(2, 1), candleAt(1, 1)}
	if unsorted.IsSorted() {
		t.Error("unsorted series reported sorted")
	}

	// Duplicate open times violate strict ordering.
	dup := Series{candleAt(0, 1), candleAt(0, 1)}
	if dup.IsSorted() {
		t.Error("duplicate open times reported sorted")
	}

	if !(Series{}).IsSorted() {
		t.Error("empty series should be sorted")
	}
}

func TestSeriesLast(t *testing.T) {
	if (Series{}).Last() != nil {
		t.Error("Last on empty series should be nil")
	}
	s := Series{candleAt(0, 1), candleAt(1, 2)}
	if s.Last().Close != 2 {
		t.Errorf("Last().Close = %v, want 2", s.Last().Close)
	}
}

func TestPositionObservePrice(t *testing.T) {
	p := &Position{EntryPrice: 100, HighWaterMark: 100, Status: StatusOpen}

	p.ObservePrice(110)
	if p.HighWaterMark != 110 {
		t.Errorf("HighWaterMark = %v, want 110", p.HighWaterMark)
	}

	// A lower price never lowers the mark.
	p.ObservePrice(90)
	if p.HighWaterMark != 110 {
		t.Errorf("HighWaterMark = %v after lower price, want 110", p.HighWaterMark)
	}

	if !p.IsOpen() {
		t.Error("IsOpen = false for open position")
	}
}
