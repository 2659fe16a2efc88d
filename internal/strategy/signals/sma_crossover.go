// Package signals derives discrete position signals from candle series.
//
// The only signal implemented is the SMA crossover: long while the fast
// moving average is strictly above the slow one, flat otherwise. Equality
// resolves to flat so the signal does not dither on exact crossings.
package signals

import (
	"fmt"
	"math"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
	"github.com/1cbyc/SyntheticQuantEngine/internal/ports"
	"github.com/1cbyc/SyntheticQuantEngine/internal/strategy/indicators"
)

// SMAParameters configures the crossover windows.
// Invariant: 0 < FastWindow < SlowWindow, enforced at validation time.
type SMAParameters struct {
	FastWindow int
	SlowWindow int
}

// Validate checks the window invariants. A violation is a configuration
// error and is reported before any computation runs.
func (p SMAParameters) Validate() error {
	if p.FastWindow <= 0 || p.SlowWindow <= 0 {
		return fmt.Errorf("%w: SMA windows must be positive (fast=%d, slow=%d)",
			ports.ErrConfiguration, p.FastWindow, p.SlowWindow)
	}
	if p.FastWindow >= p.SlowWindow {
		return fmt.Errorf("%w: fast SMA window (%d) must be less than slow SMA window (%d)",
			ports.ErrConfiguration, p.FastWindow, p.SlowWindow)
	}
	return nil
}

// MinSeriesLength returns the minimum series length for a well-defined signal.
func (p SMAParameters) MinSeriesLength() int {
	return p.SlowWindow + 1
}

// Generate produces one signal per candle. Leading entries where either
// moving average is undefined are flat. signal[i] depends only on closes
// up to and including index i.
func Generate(series domain.Series, params SMAParameters) ([]domain.Signal, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	closes := series.Closes()
	fast, err := indicators.SMASeries(closes, params.FastWindow)
	if err != nil {
		return nil, err
	}
	slow, err := indicators.SMASeries(closes, params.SlowWindow)
	if err != nil {
		return nil, err
	}

	sigs := make([]domain.Signal, len(series))
	for i := range sigs {
		if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) {
			continue
		}
		if fast[i] > slow[i] {
			sigs[i] = domain.SignalLong
		}
	}
	return sigs, nil
}

// Latest computes the signal for the final bar of the series together with
// the previous bar's signal, which is what the live loop needs to detect a
// transition. The confidence value is the absolute fast/slow spread as a
// fraction of the last close.
func Latest(series domain.Series, params SMAParameters) (current, previous domain.Signal, confidence float64, err error) {
	sigs, err := Generate(series, params)
	if err != nil {
		return domain.SignalFlat, domain.SignalFlat, 0, err
	}
	if len(sigs) == 0 {
		return domain.SignalFlat, domain.SignalFlat, 0, fmt.Errorf("%w: empty series", ports.ErrMalformedData)
	}

	current = sigs[len(sigs)-1]
	previous = current
	if len(sigs) > 1 {
		previous = sigs[len(sigs)-2]
	}

	closes := series.Closes()
	fastMA, fastErr := indicators.SMA(closes, params.FastWindow)
	slowMA, slowErr := indicators.SMA(closes, params.SlowWindow)
	if fastErr == nil && slowErr == nil && closes[len(closes)-1] != 0 {
		confidence = math.Abs(fastMA-slowMA) / closes[len(closes)-1]
	}
	return current, previous, confidence, nil
}
