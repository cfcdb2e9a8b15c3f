package models

import "time"

// Candle is one synthesized trading day. Prices carry two decimals and Date
// always falls on a weekday.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// CandlePoint is the wire form of a Candle with a YYYY-MM-DD date string.
type CandlePoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// HistoricalPoint is one day of the close series with its EMA overlay values.
// EMA fields are nil (JSON null) for dates before the indicator's seed index.
type HistoricalPoint struct {
	Date   string   `json:"date"`
	Close  float64  `json:"close"`
	Volume int64    `json:"volume"`
	EMA9   *float64 `json:"ema9"`
	EMA20  *float64 `json:"ema20"`
}

// FinancialMetrics is the complete per-ticker record served to clients.
// VWAP, RSI, bid and ask are seeded presentation approximations derived from
// the latest close, not market microstructure.
type FinancialMetrics struct {
	Ticker     string            `json:"ticker"`
	Name       string            `json:"name"`
	Volume     int64             `json:"volume"`
	VWAP       float64           `json:"vwap"`
	RSI        float64           `json:"rsi"`
	EMA9       float64           `json:"ma_ema9"`
	EMA20      float64           `json:"ma_ema20"`
	ATR        float64           `json:"atr"`
	Bid        float64           `json:"bid"`
	Ask        float64           `json:"ask"`
	Spread     float64           `json:"spread"`
	Historical []HistoricalPoint `json:"historical_data"`
	Candles    []CandlePoint     `json:"candlestick_data"`
}

// NewCandlePoint converts a Candle to its wire form.
func NewCandlePoint(c Candle) CandlePoint {
	return CandlePoint{
		Date:   c.Date.Format(time.DateOnly),
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
		Volume: c.Volume,
	}
}

// CandlePoints converts a candle series to wire form, preserving order.
func CandlePoints(candles []Candle) []CandlePoint {
	points := make([]CandlePoint, len(candles))
	for i, c := range candles {
		points[i] = NewCandlePoint(c)
	}
	return points
}
