package chart

import "github.com/syntick/syntick/pkg/models"

// axisBounds computes the price axis for a series. The normal case pads the
// observed range by 5% on each side. When the whole series moves less than a
// cent, auto-scaling would zoom into rounding noise and draw garbage wicks,
// so the axis is pinned to the observed extremes plus a 2%-of-mean buffer.
func axisBounds(candles []models.Candle) (min, max float64, pinned bool) {
	if len(candles) == 0 {
		return 0, 0, false
	}

	min, max = candles[0].Low, candles[0].High
	var sum float64
	for _, c := range candles {
		for _, v := range [4]float64{c.Open, c.High, c.Low, c.Close} {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			sum += v
		}
	}

	if max-min < 0.01 && min > 0 {
		mean := sum / float64(len(candles)*4)
		buffer := mean * 0.02
		return min - buffer, max + buffer, true
	}

	pad := (max - min) * 0.05
	return min - pad, max + pad, false
}
