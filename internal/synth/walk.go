package synth

import (
	"math"
	"time"

	"github.com/syntick/syntick/pkg/models"
	"github.com/syntick/syntick/pkg/utils"
)

// DefaultDays is the canonical history depth of a synthesized series.
const DefaultDays = 40

// Synthesize walks the price from BasePrice across `days` trading days ending
// on the last trading day on or before anchor. Weekends emit no candle but
// still advance the calendar offset, so the cycle and trend terms stay
// continuous across gaps. The raw series is unvalidated; callers pass it
// through ValidateSeries before use.
func Synthesize(p Parameters, anchor time.Time, days int) []models.Candle {
	if days <= 0 {
		return nil
	}

	end := utils.LastTradingDayOnOrBefore(midnightUTC(anchor))
	start := end
	for i := 1; i < days; i++ {
		start = utils.PrevTradingDay(start)
	}

	candles := make([]models.Candle, 0, days)
	currentPrice := p.BasePrice
	dayIndex := 0
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if utils.IsTradingDay(date) {
			c := p.step(date, dayIndex, len(candles), currentPrice)
			currentPrice = c.Close
			candles = append(candles, c)
		}
		dayIndex++
	}
	return candles
}

// step produces one candle. dayIndex is the calendar offset from the walk
// start (weekends included), candleIndex the position in the emitted series.
func (p Parameters) step(date time.Time, dayIndex, candleIndex int, currentPrice float64) models.Candle {
	cyclical := math.Sin(float64(dayIndex)*2*math.Pi/p.CycleLength) * p.CycleAmplitude
	volatility := p.DailyVolatility * currentPrice

	rawChange := Rand(p.Seed, offsetChange, candleIndex, -1, 1)*volatility +
		p.TrendBias*currentPrice + cyclical/20

	// Dead-flat days read as broken data; force at least a 0.1% move,
	// preserving direction.
	if floor := 0.001 * currentPrice; math.Abs(rawChange) < floor {
		if rawChange < 0 {
			rawChange = -floor
		} else {
			rawChange = floor
		}
	}

	open := currentPrice
	// A single day never loses more than 7%.
	close := math.Max(open+rawChange, open*0.93)

	highMul := Rand(p.Seed, offsetHighMul, candleIndex, p.DailyVolatility, 2*p.DailyVolatility)
	lowMul := Rand(p.Seed, offsetLowMul, candleIndex, p.DailyVolatility, 2*p.DailyVolatility)
	high := math.Max(open, close) * (1 + highMul*Rand(p.Seed, offsetHighWick, candleIndex, 0.2, 1))
	low := math.Min(open, close) * (1 - lowMul*Rand(p.Seed, offsetLowWick, candleIndex, 0.2, 1))

	// Volume scales with how outsized the day's move was relative to the
	// ticker's own volatility.
	volume := math.Floor(p.BasePrice * 10000 *
		(0.5 + math.Abs(rawChange)/volatility + Rand(p.Seed, offsetVolume, candleIndex, 0, 1)))
	if volume < 100 || math.IsNaN(volume) {
		volume = 100
	}

	return models.Candle{
		Date:   date,
		Open:   Round2(open),
		High:   Round2(high),
		Low:    Round2(low),
		Close:  Round2(close),
		Volume: int64(volume),
	}
}

// midnightUTC pins a timestamp to its own calendar date at UTC midnight. The
// caller's reading of "today" wins; no zone conversion happens here.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
