package chart

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/syntick/syntick/pkg/models"
)

// testCandles builds a rising bullish series starting at 100.
func testCandles(n int) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		base := 100 + float64(i)
		candles[i] = models.Candle{
			Date:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:   base,
			High:   base + 2,
			Low:    base - 2,
			Close:  base + 1,
			Volume: int64(1000 + i*10),
		}
	}
	return candles
}

// testEMA fakes an overlay: nil through the warm-up, then the close price.
func testEMA(candles []models.Candle, period int) []*float64 {
	out := make([]*float64, len(candles))
	for i := range candles {
		if i >= period-1 {
			v := candles[i].Close
			out[i] = &v
		}
	}
	return out
}

func testSeries(n int) SeriesData {
	candles := testCandles(n)
	return SeriesData{
		Ticker:  "NLMN",
		Name:    "Neulumen Labs",
		Candles: candles,
		EMA9:    testEMA(candles, 9),
		EMA20:   testEMA(candles, 20),
	}
}

// ── Registry ──

func TestBackendsRegistered(t *testing.T) {
	backends := Backends()
	want := map[string]bool{"svg": false, "json": false}
	for _, b := range backends {
		if _, ok := want[b]; ok {
			want[b] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("backend %q not registered (got %v)", name, backends)
		}
	}
	for i := 1; i < len(backends); i++ {
		if backends[i] < backends[i-1] {
			t.Errorf("Backends() not sorted: %v", backends)
		}
	}
}

func TestMountUnknownBackend(t *testing.T) {
	_, err := Mount("png", Options{})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("err: got %v, want ErrUnknownBackend", err)
	}
}

func TestMountAppliesDefaults(t *testing.T) {
	h, err := Mount("svg", Options{})
	if err != nil {
		t.Fatalf("Mount error: %v", err)
	}
	defer h.Dispose()
	if err := h.Update(testSeries(10)); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	body, _, err := h.Render()
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !strings.Contains(string(body), `width="800"`) || !strings.Contains(string(body), `height="400"`) {
		t.Error("default geometry not applied")
	}
}

// ── axisBounds ──

func TestAxisBoundsEmpty(t *testing.T) {
	min, max, pinned := axisBounds(nil)
	if min != 0 || max != 0 || pinned {
		t.Errorf("got (%v, %v, %v), want (0, 0, false)", min, max, pinned)
	}
}

func TestAxisBoundsNormalPadding(t *testing.T) {
	candles := testCandles(10)
	min, max, pinned := axisBounds(candles)
	if pinned {
		t.Fatal("healthy range should not pin the axis")
	}
	// Lows span 98..107, highs 102..111.
	wantMin := 98.0 - (111.0-98.0)*0.05
	wantMax := 111.0 + (111.0-98.0)*0.05
	if min != wantMin || max != wantMax {
		t.Errorf("bounds: got (%v, %v), want (%v, %v)", min, max, wantMin, wantMax)
	}
}

func TestAxisBoundsPinsFlatSeries(t *testing.T) {
	candles := make([]models.Candle, 5)
	for i := range candles {
		candles[i] = models.Candle{Open: 5, High: 5, Low: 5, Close: 5, Volume: 100}
	}
	min, max, pinned := axisBounds(candles)
	if !pinned {
		t.Fatal("sub-cent range should pin the axis")
	}
	wantMin := 5.0 - 5.0*0.02
	wantMax := 5.0 + 5.0*0.02
	if min != wantMin || max != wantMax {
		t.Errorf("pinned bounds: got (%v, %v), want (%v, %v)", min, max, wantMin, wantMax)
	}
}

func TestAxisBoundsNoPinAtZero(t *testing.T) {
	candles := []models.Candle{{Open: 0, High: 0, Low: 0, Close: 0, Volume: 1}}
	_, _, pinned := axisBounds(candles)
	if pinned {
		t.Error("non-positive prices must not pin the axis")
	}
}

// ── SVG backend ──

func TestSVGRenderBasics(t *testing.T) {
	h, err := Mount("svg", Options{Width: 640, Height: 320})
	if err != nil {
		t.Fatalf("Mount error: %v", err)
	}
	defer h.Dispose()
	if err := h.Update(testSeries(30)); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	body, contentType, err := h.Render()
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if contentType != "image/svg+xml" {
		t.Errorf("content type: got %q", contentType)
	}
	svg := string(body)
	for _, want := range []string{"<svg", "</svg>", `width="640"`, "Neulumen Labs (NLMN)", "<rect", "<line"} {
		if !strings.Contains(svg, want) {
			t.Errorf("rendered SVG missing %q", want)
		}
	}
}

func TestSVGRenderEmptySeries(t *testing.T) {
	h, _ := Mount("svg", Options{})
	defer h.Dispose()
	h.Update(SeriesData{Ticker: "NLMN"})
	body, _, err := h.Render()
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !strings.Contains(string(body), "No data available") {
		t.Error("empty series should render the no-data placeholder")
	}
}

func TestSVGOverlayThresholds(t *testing.T) {
	tests := []struct {
		n         int
		wantEMA9  bool
		wantEMA20 bool
	}{
		{8, false, false},
		{12, true, false},
		{19, true, false},
		{25, true, true},
	}
	for _, tc := range tests {
		h, _ := Mount("svg", Options{})
		h.Update(testSeries(tc.n))
		body, _, err := h.Render()
		h.Dispose()
		if err != nil {
			t.Fatalf("n=%d: Render error: %v", tc.n, err)
		}
		svg := string(body)
		if got := strings.Contains(svg, ">EMA 9<"); got != tc.wantEMA9 {
			t.Errorf("n=%d: EMA 9 overlay drawn=%v, want %v", tc.n, got, tc.wantEMA9)
		}
		if got := strings.Contains(svg, ">EMA 20<"); got != tc.wantEMA20 {
			t.Errorf("n=%d: EMA 20 overlay drawn=%v, want %v", tc.n, got, tc.wantEMA20)
		}
	}
}

func TestSVGBearishCandleColor(t *testing.T) {
	candles := testCandles(10)
	candles[4].Close = candles[4].Open - 3
	candles[4].Low = candles[4].Close - 1
	h, _ := Mount("svg", Options{})
	defer h.Dispose()
	h.Update(SeriesData{Ticker: "X", Candles: candles})
	body, _, _ := h.Render()
	if !strings.Contains(string(body), bearColor) {
		t.Error("bearish candle not drawn in bear color")
	}
}

func TestSVGTitleEscaped(t *testing.T) {
	candles := testCandles(5)
	h, _ := Mount("svg", Options{})
	defer h.Dispose()
	h.Update(SeriesData{Ticker: "ORCH", Name: "Orchard & Vale", Candles: candles})
	body, _, _ := h.Render()
	if !strings.Contains(string(body), "Orchard &amp; Vale") {
		t.Error("ampersand in company name not escaped")
	}
}

func TestSVGResizeRefits(t *testing.T) {
	h, _ := Mount("svg", Options{Width: 800, Height: 400})
	defer h.Dispose()
	h.Update(testSeries(10))
	if err := h.Resize(1024, 480); err != nil {
		t.Fatalf("Resize error: %v", err)
	}
	body, _, _ := h.Render()
	if !strings.Contains(string(body), `width="1024"`) {
		t.Error("Render did not pick up resized geometry")
	}
}

func TestSVGResizeRejectsNonPositive(t *testing.T) {
	h, _ := Mount("svg", Options{})
	defer h.Dispose()
	if err := h.Resize(0, 400); err == nil {
		t.Error("Resize(0, 400) should fail")
	}
	if err := h.Resize(800, -1); err == nil {
		t.Error("Resize(800, -1) should fail")
	}
}

// ── Dispose lifecycle ──

func TestDisposeLifecycle(t *testing.T) {
	for _, backend := range []string{"svg", "json"} {
		h, err := Mount(backend, Options{})
		if err != nil {
			t.Fatalf("%s: Mount error: %v", backend, err)
		}
		if err := h.Dispose(); err != nil {
			t.Errorf("%s: first Dispose error: %v", backend, err)
		}
		if err := h.Dispose(); err != nil {
			t.Errorf("%s: second Dispose should be safe, got %v", backend, err)
		}
		if err := h.Update(testSeries(5)); !errors.Is(err, ErrDisposed) {
			t.Errorf("%s: Update after Dispose: got %v, want ErrDisposed", backend, err)
		}
		if err := h.Resize(100, 100); !errors.Is(err, ErrDisposed) {
			t.Errorf("%s: Resize after Dispose: got %v, want ErrDisposed", backend, err)
		}
		if _, _, err := h.Render(); !errors.Is(err, ErrDisposed) {
			t.Errorf("%s: Render after Dispose: got %v, want ErrDisposed", backend, err)
		}
	}
}

// ── JSON backend ──

func TestJSONRenderPayload(t *testing.T) {
	h, err := Mount("json", Options{Width: 800, Height: 400})
	if err != nil {
		t.Fatalf("Mount error: %v", err)
	}
	defer h.Dispose()
	h.Update(testSeries(25))

	body, contentType, err := h.Render()
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("content type: got %q", contentType)
	}

	var payload struct {
		Ticker  string `json:"ticker"`
		Name    string `json:"name"`
		Width   int    `json:"width"`
		Height  int    `json:"height"`
		NoData  bool   `json:"no_data"`
		Candles []struct {
			Date  string  `json:"date"`
			Close float64 `json:"close"`
		} `json:"candles"`
		EMA9  []struct{ Date string } `json:"ema9"`
		EMA20 []struct{ Date string } `json:"ema20"`
		Axis  struct {
			Min    float64 `json:"min"`
			Max    float64 `json:"max"`
			Pinned bool    `json:"pinned"`
		} `json:"price_axis"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if payload.Ticker != "NLMN" || payload.Name != "Neulumen Labs" {
		t.Errorf("identity: got %q/%q", payload.Ticker, payload.Name)
	}
	if payload.NoData {
		t.Error("no_data set on a populated series")
	}
	if len(payload.Candles) != 25 {
		t.Errorf("candles: got %d, want 25", len(payload.Candles))
	}
	if payload.Candles[0].Date != "2026-06-01" {
		t.Errorf("first candle date: got %q", payload.Candles[0].Date)
	}
	// Warm-up entries are skipped, not emitted as nulls.
	if len(payload.EMA9) != 25-8 {
		t.Errorf("ema9 points: got %d, want %d", len(payload.EMA9), 25-8)
	}
	if len(payload.EMA20) != 25-19 {
		t.Errorf("ema20 points: got %d, want %d", len(payload.EMA20), 25-19)
	}
	if payload.Axis.Min >= payload.Axis.Max {
		t.Errorf("axis bounds degenerate: %+v", payload.Axis)
	}
	if payload.Axis.Pinned {
		t.Error("healthy range should not pin")
	}
}

func TestJSONOverlayThreshold(t *testing.T) {
	h, _ := Mount("json", Options{})
	defer h.Dispose()
	h.Update(testSeries(10))
	body, _, _ := h.Render()
	s := string(body)
	if !strings.Contains(s, `"ema9"`) {
		t.Error("ema9 missing at 10 candles")
	}
	if strings.Contains(s, `"ema20"`) {
		t.Error("ema20 present below 20 candles")
	}
}

func TestJSONNoData(t *testing.T) {
	h, _ := Mount("json", Options{})
	defer h.Dispose()
	h.Update(SeriesData{Ticker: "EMPTY"})
	body, _, err := h.Render()
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !strings.Contains(string(body), `"no_data":true`) {
		t.Errorf("payload missing no_data flag: %s", body)
	}
}
