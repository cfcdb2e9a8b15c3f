package market

import (
	"time"

	"github.com/syntick/syntick/internal/synth"
	"github.com/syntick/syntick/internal/technical"
	"github.com/syntick/syntick/pkg/models"
)

// BuildMetrics assembles the complete per-ticker record from a validated
// series. Scalar metrics come from the latest candle; vwap, rsi, bid and ask
// are seeded presentation approximations, deliberately not the textbook
// indicator formulas. EMA overlays are computed once over the full series and
// carried into the windowed points, so narrowing the window never changes a
// point's value. The input series is never mutated.
//
// The service guarantees a non-empty series; an empty one returns nil.
func BuildMetrics(ticker, name string, candles []models.Candle, seed int64, windowDays int) *models.FinancialMetrics {
	if len(candles) == 0 {
		return nil
	}

	closes := technical.Closes(candles)
	ema9 := technical.EMA(closes, 9)
	ema20 := technical.EMA(closes, 20)

	latest := candles[len(candles)-1]
	vwap := latest.Close * (1 + synth.Rand(seed, synth.OffsetVWAP, 0, -0.005, 0.005))
	bid := synth.Round2(latest.Close * (1 - synth.Rand(seed, synth.OffsetBid, 0, 0, 0.003)))
	ask := synth.Round2(latest.Close * (1 + synth.Rand(seed, synth.OffsetAsk, 0, 0, 0.003)))

	start := windowStart(candles, windowDays)
	historical := make([]models.HistoricalPoint, 0, len(candles)-start)
	for i := start; i < len(candles); i++ {
		c := candles[i]
		historical = append(historical, models.HistoricalPoint{
			Date:   c.Date.Format(time.DateOnly),
			Close:  c.Close,
			Volume: c.Volume,
			EMA9:   roundPtr(ema9[i]),
			EMA20:  roundPtr(ema20[i]),
		})
	}

	return &models.FinancialMetrics{
		Ticker:     ticker,
		Name:       name,
		Volume:     latest.Volume,
		VWAP:       synth.Round2(vwap),
		RSI:        synth.Round2(synth.Rand(seed, synth.OffsetRSI, 0, 40, 60)),
		EMA9:       synth.Round2(technical.LatestEMA(ema9)),
		EMA20:      synth.Round2(technical.LatestEMA(ema20)),
		ATR:        synth.Round2(technical.ATR(candles)),
		Bid:        bid,
		Ask:        ask,
		Spread:     synth.Round2(ask - bid),
		Historical: historical,
		Candles:    models.CandlePoints(candles[start:]),
	}
}

// windowStart returns the index of the first candle inside the trailing
// window of windowDays calendar days, measured back from the latest candle's
// date. Non-positive windows mean the full series.
func windowStart(candles []models.Candle, windowDays int) int {
	if windowDays <= 0 || len(candles) == 0 {
		return 0
	}
	cutoff := candles[len(candles)-1].Date.AddDate(0, 0, -windowDays)
	for i, c := range candles {
		if c.Date.After(cutoff) {
			return i
		}
	}
	// The latest candle always lies after its own cutoff.
	return len(candles) - 1
}

// roundPtr rounds an optional EMA value to the two-decimal wire convention,
// allocating a fresh pointer so the overlay slices stay untouched.
func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := synth.Round2(*v)
	return &r
}
