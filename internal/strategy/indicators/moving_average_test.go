package indicators

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	tests := []struct {
		name    string
		closes  []float64
		period  int
		want    float64
		wantErr bool
	}{
		{
			name:   "simple average",
			closes: []float64{1, 2, 3, 4, 5},
			period: 5,
			want:   3,
		},
		{
			name:   "trailing window only",
			closes: []float64{100, 100, 10, 20, 30},
			period: 3,
			want:   20,
		},
		{
			name:    "not enough data",
			closes:  []float64{1, 2},
			period:  3,
			wantErr: true,
		},
		{
			name:    "zero period",
			closes:  []float64{1, 2, 3},
			period:  0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SMA(tt.closes, tt.period)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got value %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SMA = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSMASeries(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	out, err := SMASeries(closes, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(closes) {
		t.Fatalf("length = %d, want %d", len(out), len(closes))
	}

	// First period-1 entries are undefined.
	for i := 0; i < 2; i++ {
		if !math.IsNaN(out[i]) {
			t.Errorf("out[%d] = %v, want NaN", i, out[i])
		}
	}

	want := []float64{2, 3, 4}
	for i, w := range want {
		if math.Abs(out[i+2]-w) > 1e-9 {
			t.Errorf("out[%d] = %v, want %v", i+2, out[i+2], w)
		}
	}
}

func TestSMASeriesMatchesSMA(t *testing.T) {
	closes := []float64{10, 12, 11, 13, 15, 14, 16, 18, 17, 19}
	const period = 4

	out, err := SMASeries(closes, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := period - 1; i < len(closes); i++ {
		direct, err := SMA(closes[:i+1], period)
		if err != nil {
			t.Fatalf("unexpected error at %d: %v", i, err)
		}
		if math.Abs(out[i]-direct) > 1e-9 {
			t.Errorf("index %d: rolling %v != direct %v", i, out[i], direct)
		}
	}
}

func TestSMASeriesInvalidPeriod(t *testing.T) {
	if _, err := SMASeries([]float64{1, 2, 3}, -1); err == nil {
		t.Fatal("expected error for negative period")
	}
}
