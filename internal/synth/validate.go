package synth

import (
	"fmt"
	"math"
	"time"

	"github.com/syntick/syntick/pkg/models"
)

// ErrNoValidCandles is returned when validation drops every candle in a
// series. Callers must treat it as a hard generation failure, never as an
// empty-but-successful result.
var ErrNoValidCandles = fmt.Errorf("no valid candles after validation")

// Invariant identifiers recorded on dropped candles.
const (
	ViolationNonFinite      = "non_finite_price"
	ViolationLowNotPositive = "low_not_positive"
	ViolationHighBelowBody  = "high_below_body"
	ViolationLowAboveBody   = "low_above_body"
	ViolationBadVolume      = "volume_not_positive"
)

// Violation names the first invariant a dropped candle failed, with its
// index in the raw series.
type Violation struct {
	Index     int    `json:"index"`
	Invariant string `json:"invariant"`
}

// Report summarizes one validation pass.
type Report struct {
	RawCount   int         `json:"raw_count"`
	ValidCount int         `json:"valid_count"`
	Dropped    []Violation `json:"dropped,omitempty"`
}

// ValidateSeries filters a raw series down to candles that satisfy the OHLC
// invariants, preserving order. Each dropped candle records the first check
// it failed. Checks run in a fixed order: finiteness, positive low, high
// covers the body, low covers the body, positive volume.
func ValidateSeries(candles []models.Candle) ([]models.Candle, Report) {
	report := Report{RawCount: len(candles)}
	valid := make([]models.Candle, 0, len(candles))
	for i, c := range candles {
		if reason, ok := checkCandle(c); !ok {
			report.Dropped = append(report.Dropped, Violation{Index: i, Invariant: reason})
			continue
		}
		valid = append(valid, c)
	}
	report.ValidCount = len(valid)
	return valid, report
}

func checkCandle(c models.Candle) (string, bool) {
	for _, v := range [4]float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ViolationNonFinite, false
		}
	}
	if c.Low <= 0 {
		return ViolationLowNotPositive, false
	}
	if c.High < math.Max(c.Open, c.Close) {
		return ViolationHighBelowBody, false
	}
	if c.Low > math.Min(c.Open, c.Close) {
		return ViolationLowAboveBody, false
	}
	if c.Volume <= 0 {
		return ViolationBadVolume, false
	}
	return "", true
}

// GenerateSeries runs the full pipeline for one set of parameters: synthesize
// the raw walk, validate it, and fail hard when nothing survives.
func GenerateSeries(p Parameters, anchor time.Time, days int) ([]models.Candle, Report, error) {
	raw := Synthesize(p, anchor, days)
	valid, report := ValidateSeries(raw)
	if len(valid) == 0 {
		return nil, report, fmt.Errorf("seed %d: %w", p.Seed, ErrNoValidCandles)
	}
	return valid, report, nil
}
