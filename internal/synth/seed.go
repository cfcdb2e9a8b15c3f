// Package synth implements the deterministic market-data synthesizer: ticker
// string to seed, seed to tiered synthesis parameters, parameters to a
// validated OHLCV candle series. Everything here is a pure function of its
// inputs; two runs with the same inputs produce byte-identical output.
package synth

import "math"

// Draw-site offsets. Every call site that consumes randomness owns one
// constant, so no two sites ever share a draw.
const (
	offsetBasePrice  = 1
	offsetVolatility = 2
	offsetTrendBias  = 3
	offsetCycleLen   = 4
	offsetCycleAmp   = 5

	offsetChange   = 11
	offsetHighMul  = 12
	offsetHighWick = 13
	offsetLowMul   = 14
	offsetLowWick  = 15
	offsetVolume   = 16

	// Presentation-metric draws, used by the metrics assembler.
	OffsetVWAP = 21
	OffsetRSI  = 22
	OffsetBid  = 23
	OffsetAsk  = 24
)

// Seed derives the deterministic seed for a ticker string:
// sum(charCode * position), position starting at 1. The ticker is the sole
// seed input; company names never influence synthesis. Position weighting
// keeps anagrams like "ABC" and "CBA" from colliding.
func Seed(ticker string) int64 {
	var seed int64
	pos := int64(0)
	for _, r := range ticker {
		pos++
		seed += int64(r) * pos
	}
	return seed
}

// Rand is the engine's pure seeded generator. The seed is mixed with the draw
// site (offset) and the position within the series (callIndex), pushed
// through the classic 9301/49297/233280 LCG step, and scaled into [min, max).
// There is no mutable state anywhere. Presentation-grade randomness only,
// never for anything security-sensitive.
func Rand(seed int64, offset, callIndex int, min, max float64) float64 {
	localSeed := (seed * int64(callIndex+1+offset)) % 10000
	normalized := float64((localSeed*9301+49297)%233280) / 233280.0
	return min + normalized*(max-min)
}

// Round2 rounds a price to the engine's two-decimal convention.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
