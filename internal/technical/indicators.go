// Package technical computes the indicator overlays attached to synthesized
// series: exponential moving averages with a warm-up gap and a flat average
// true range. The EMA slices align index-for-index with their input so chart
// overlays and table rows can be zipped without bookkeeping.
package technical

import "github.com/syntick/syntick/pkg/models"

// EMA computes an exponential moving average over a close-price series.
// The result has the same length as the input. Entries before index
// period-1 are nil; the seed value at period-1 is the simple average of the
// first period closes and later entries follow the standard recurrence.
//
// When the series is shorter than the period there is no seed window, so
// every entry falls back to the first close. Charts then draw a flat line
// instead of nothing.
func EMA(series []float64, period int) []*float64 {
	if len(series) == 0 || period <= 0 {
		return nil
	}

	out := make([]*float64, len(series))
	if len(series) < period {
		for i := range out {
			v := series[0]
			out[i] = &v
		}
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += series[i]
	}
	seed := sum / float64(period)
	out[period-1] = &seed

	multiplier := 2.0 / (float64(period) + 1)
	prev := seed
	for i := period; i < len(series); i++ {
		v := (series[i]-prev)*multiplier + prev
		out[i] = &v
		prev = v
	}
	return out
}

// LatestEMA returns the most recent non-nil value, or 0 when the series
// carries none.
func LatestEMA(values []*float64) float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] != nil {
			return *values[i]
		}
	}
	return 0
}

// ATR is the flat-window variant of average true range: the mean high-low
// span across the whole series, with no smoothing and no gap term. A single
// candle has no span history, so it falls back to 2% of its close.
func ATR(candles []models.Candle) float64 {
	switch len(candles) {
	case 0:
		return 0
	case 1:
		return candles[0].Close * 0.02
	}
	var sum float64
	for _, c := range candles {
		sum += c.High - c.Low
	}
	return sum / float64(len(candles))
}

// Closes extracts the close-price series from a candle slice.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
