package chart

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/syntick/syntick/pkg/models"
)

func init() {
	Register("json", newJSONHandle)
}

// linePoint is one overlay sample in the JSON payload.
type linePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// priceAxis mirrors the axis the SVG backend would draw, so a frontend can
// reproduce the same framing.
type priceAxis struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Pinned bool    `json:"pinned"`
}

// jsonPayload is the renderable chart model for frontend chart widgets.
type jsonPayload struct {
	Ticker    string               `json:"ticker"`
	Name      string               `json:"name,omitempty"`
	Width     int                  `json:"width"`
	Height    int                  `json:"height"`
	NoData    bool                 `json:"no_data,omitempty"`
	Candles   []models.CandlePoint `json:"candles"`
	EMA9      []linePoint          `json:"ema9,omitempty"`
	EMA20     []linePoint          `json:"ema20,omitempty"`
	PriceAxis priceAxis            `json:"price_axis"`
}

// jsonHandle renders the series as a machine-readable chart payload instead
// of drawn output. Same data, same axis rules, no pixels.
type jsonHandle struct {
	mu       sync.Mutex
	opts     Options
	data     SeriesData
	disposed bool
}

func newJSONHandle(opts Options) Handle {
	return &jsonHandle{opts: opts}
}

func (h *jsonHandle) Update(data SeriesData) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return ErrDisposed
	}
	h.data = data
	return nil
}

func (h *jsonHandle) Resize(width, height int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return ErrDisposed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid chart size %dx%d", width, height)
	}
	h.opts.Width, h.opts.Height = width, height
	return nil
}

func (h *jsonHandle) Render() ([]byte, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return nil, "", ErrDisposed
	}

	payload := jsonPayload{
		Ticker:  h.data.Ticker,
		Name:    h.data.Name,
		Width:   h.opts.Width,
		Height:  h.opts.Height,
		Candles: models.CandlePoints(h.data.Candles),
	}

	n := len(h.data.Candles)
	if n == 0 {
		payload.NoData = true
	} else {
		min, max, pinned := axisBounds(h.data.Candles)
		payload.PriceAxis = priceAxis{Min: min, Max: max, Pinned: pinned}
		if n >= ema9MinCandles {
			payload.EMA9 = overlayPoints(h.data.Candles, h.data.EMA9)
		}
		if n >= ema20MinCandles {
			payload.EMA20 = overlayPoints(h.data.Candles, h.data.EMA20)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("marshal chart payload: %w", err)
	}
	return body, "application/json", nil
}

func (h *jsonHandle) Dispose() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disposed = true
	return nil
}

// overlayPoints zips candle dates with overlay values, skipping the warm-up
// gap. A length mismatch yields no overlay rather than a misaligned one.
func overlayPoints(candles []models.Candle, values []*float64) []linePoint {
	if len(values) != len(candles) {
		return nil
	}
	var points []linePoint
	for i, v := range values {
		if v == nil {
			continue
		}
		points = append(points, linePoint{
			Date:  candles[i].Date.Format(time.DateOnly),
			Value: *v,
		})
	}
	return points
}
