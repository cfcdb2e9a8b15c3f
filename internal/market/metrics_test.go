package market

import (
	"reflect"
	"testing"
	"time"

	"github.com/syntick/syntick/internal/synth"
	"github.com/syntick/syntick/internal/technical"
	"github.com/syntick/syntick/pkg/models"
	"github.com/syntick/syntick/pkg/utils"
)

// metricsAnchor is a Monday; the fixture series ends on it.
var metricsAnchor = time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

// generateFixture builds a validated series the way the service does.
func generateFixture(t *testing.T, ticker string) ([]models.Candle, int64) {
	t.Helper()
	seed := synth.Seed(ticker)
	candles, _, err := synth.GenerateSeries(synth.DeriveParameters(seed), metricsAnchor, synth.DefaultDays)
	if err != nil {
		t.Fatalf("GenerateSeries(%q): %v", ticker, err)
	}
	return candles, seed
}

// tradingDays builds n minimal candles on consecutive trading days.
func tradingDays(start time.Time, n int) []models.Candle {
	candles := make([]models.Candle, 0, n)
	for d := start; len(candles) < n; d = d.AddDate(0, 0, 1) {
		if !utils.IsTradingDay(d) {
			continue
		}
		candles = append(candles, models.Candle{
			Date: d, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000,
		})
	}
	return candles
}

func TestBuildMetricsScalars(t *testing.T) {
	candles, seed := generateFixture(t, "NLMN")
	m := BuildMetrics("NLMN", "Neulumen Labs", candles, seed, 0)
	if m == nil {
		t.Fatal("BuildMetrics returned nil for a valid series")
	}

	latest := candles[len(candles)-1]
	if m.Ticker != "NLMN" {
		t.Errorf("Ticker: got %q, want %q", m.Ticker, "NLMN")
	}
	if m.Name != "Neulumen Labs" {
		t.Errorf("Name: got %q, want %q", m.Name, "Neulumen Labs")
	}
	if m.Volume != latest.Volume {
		t.Errorf("Volume: got %d, want latest candle's %d", m.Volume, latest.Volume)
	}

	wantVWAP := synth.Round2(latest.Close * (1 + synth.Rand(seed, synth.OffsetVWAP, 0, -0.005, 0.005)))
	if m.VWAP != wantVWAP {
		t.Errorf("VWAP: got %v, want %v", m.VWAP, wantVWAP)
	}
	if m.RSI < 40 || m.RSI > 60 {
		t.Errorf("RSI: got %v, want within [40, 60]", m.RSI)
	}
	if m.Bid > latest.Close {
		t.Errorf("Bid %v should not exceed close %v", m.Bid, latest.Close)
	}
	if m.Ask < latest.Close {
		t.Errorf("Ask %v should not undercut close %v", m.Ask, latest.Close)
	}
	if want := synth.Round2(m.Ask - m.Bid); m.Spread != want {
		t.Errorf("Spread: got %v, want %v", m.Spread, want)
	}

	closes := technical.Closes(candles)
	if want := synth.Round2(technical.LatestEMA(technical.EMA(closes, 9))); m.EMA9 != want {
		t.Errorf("EMA9: got %v, want %v", m.EMA9, want)
	}
	if want := synth.Round2(technical.LatestEMA(technical.EMA(closes, 20))); m.EMA20 != want {
		t.Errorf("EMA20: got %v, want %v", m.EMA20, want)
	}
	if want := synth.Round2(technical.ATR(candles)); m.ATR != want {
		t.Errorf("ATR: got %v, want %v", m.ATR, want)
	}
}

func TestBuildMetricsDeterminism(t *testing.T) {
	candles, seed := generateFixture(t, "VYTL")
	a := BuildMetrics("VYTL", "Vytalis Biosciences", candles, seed, 14)
	b := BuildMetrics("VYTL", "Vytalis Biosciences", candles, seed, 14)
	if !reflect.DeepEqual(a, b) {
		t.Error("two BuildMetrics runs over the same inputs should be identical")
	}
}

func TestBuildMetricsEmptySeries(t *testing.T) {
	if m := BuildMetrics("NLMN", "Neulumen Labs", nil, 773, 30); m != nil {
		t.Errorf("BuildMetrics with no candles: got %+v, want nil", m)
	}
}

func TestBuildMetricsWindowedSeriesIsTailOfFull(t *testing.T) {
	candles, seed := generateFixture(t, "NLMN")
	full := BuildMetrics("NLMN", "Neulumen Labs", candles, seed, 0)
	windowed := BuildMetrics("NLMN", "Neulumen Labs", candles, seed, 7)

	n := len(windowed.Candles)
	if n == 0 || n >= len(full.Candles) {
		t.Fatalf("7-day window kept %d of %d candles, want a proper tail", n, len(full.Candles))
	}
	if !reflect.DeepEqual(windowed.Candles, full.Candles[len(full.Candles)-n:]) {
		t.Error("windowed candlestick data should equal the tail of the full series")
	}
	if !reflect.DeepEqual(windowed.Historical, full.Historical[len(full.Historical)-n:]) {
		t.Error("windowed historical data should equal the tail of the full series")
	}
	// Scalars are window-independent.
	if windowed.VWAP != full.VWAP || windowed.ATR != full.ATR || windowed.EMA9 != full.EMA9 {
		t.Error("scalar metrics should not depend on the requested window")
	}
}

func TestBuildMetricsWindowWiderThanSpanKeepsAll(t *testing.T) {
	candles, seed := generateFixture(t, "ARQT")
	m := BuildMetrics("ARQT", "Arqtra Systems", candles, seed, 365)
	if len(m.Candles) != len(candles) {
		t.Errorf("365-day window: got %d candles, want all %d", len(m.Candles), len(candles))
	}
}

func TestBuildMetricsEMAWarmupNulls(t *testing.T) {
	candles, seed := generateFixture(t, "VYTL")
	m := BuildMetrics("VYTL", "Vytalis Biosciences", candles, seed, 0)

	for i := 0; i < 8; i++ {
		if m.Historical[i].EMA9 != nil {
			t.Errorf("Historical[%d].EMA9 should be nil during warm-up", i)
		}
	}
	if m.Historical[8].EMA9 == nil {
		t.Fatal("Historical[8].EMA9 should carry the seed value")
	}
	closes := technical.Closes(candles)
	var sum float64
	for i := 0; i < 9; i++ {
		sum += closes[i]
	}
	if want := synth.Round2(sum / 9); *m.Historical[8].EMA9 != want {
		t.Errorf("Historical[8].EMA9: got %v, want simple mean %v", *m.Historical[8].EMA9, want)
	}

	for i := 0; i < 19; i++ {
		if m.Historical[i].EMA20 != nil {
			t.Errorf("Historical[%d].EMA20 should be nil during warm-up", i)
		}
	}
	if m.Historical[19].EMA20 == nil {
		t.Error("Historical[19].EMA20 should carry the seed value")
	}
}

func TestBuildMetricsDoesNotMutateInput(t *testing.T) {
	candles, seed := generateFixture(t, "ARQT")
	before := make([]models.Candle, len(candles))
	copy(before, candles)

	BuildMetrics("ARQT", "Arqtra Systems", candles, seed, 7)

	if !reflect.DeepEqual(before, candles) {
		t.Error("BuildMetrics must not mutate the input series")
	}
}

func TestWindowStart(t *testing.T) {
	// Ten trading days: Jun 1-5 and Jun 8-12, 2026.
	candles := tradingDays(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), 10)

	tests := []struct {
		days int
		want int
	}{
		{0, 0},   // full series
		{-5, 0},  // full series
		{1, 9},   // only the latest (Jun 12)
		{4, 6},   // after Jun 8: Jun 9-12
		{7, 5},   // after Jun 5: Jun 8-12
		{14, 0},  // window covers everything
		{365, 0}, // window covers everything
	}
	for _, tc := range tests {
		if got := windowStart(candles, tc.days); got != tc.want {
			t.Errorf("windowStart(%d days): got %d, want %d", tc.days, got, tc.want)
		}
	}
}

func TestWindowStartEmptySeries(t *testing.T) {
	if got := windowStart(nil, 7); got != 0 {
		t.Errorf("windowStart on empty series: got %d, want 0", got)
	}
}

func TestRoundPtr(t *testing.T) {
	if roundPtr(nil) != nil {
		t.Error("roundPtr(nil) should stay nil")
	}
	v := 103.456789
	got := roundPtr(&v)
	if got == nil || *got != 103.46 {
		t.Errorf("roundPtr(103.456789): got %v, want 103.46", got)
	}
	if got == &v {
		t.Error("roundPtr must allocate a fresh pointer")
	}
	if v != 103.456789 {
		t.Error("roundPtr must not write through the input pointer")
	}
}
