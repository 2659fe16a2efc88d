package indicators

import (
	"fmt"
	"math"
)

// SMA computes the simple moving average of the trailing window ending at the
// last element of closes.
func SMA(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("SMA period must be positive, got %d", period)
	}
	if len(closes) < period {
		return 0, fmt.Errorf("not enough data (%d) to calculate SMA for period %d", len(closes), period)
	}

	total := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		total += closes[i]
	}
	return total / float64(period), nil
}

// SMASeries computes the rolling simple moving average for every index of
// closes. Indexes with insufficient trailing history are NaN. The value at
// index i depends only on closes[0..i].
func SMASeries(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("SMA period must be positive, got %d", period)
	}

	out := make([]float64, len(closes))
	var sum float64
	for i := range closes {
		sum += closes[i]
		if i >= period {
			sum -= closes[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}
