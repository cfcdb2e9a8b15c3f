package chart

import (
	"fmt"
	"strings"
	"sync"

	"github.com/syntick/syntick/pkg/utils"
)

// Shared styling.
const (
	svgBgColor   = "#ffffff"
	svgGridColor = "#e8e8e8"
	svgTextColor = "#333333"
	svgFontSize  = 11

	bullColor    = "#26a69a"
	bearColor    = "#ef5350"
	bullVolColor = "#c8e6c9"
	bearVolColor = "#ffcdd2"
	ema9Color    = "#4caf50"
	ema20Color   = "#2196f3"

	marginTop    = 40
	marginRight  = 60
	marginBottom = 50
	marginLeft   = 70
)

// Overlay visibility thresholds. Below a full period the EMA is the flat
// short-series fallback, which would draw as a misleading horizontal line,
// so the overlay stays hidden until the window covers one period.
const (
	ema9MinCandles  = 9
	ema20MinCandles = 20
)

func init() {
	Register("svg", newSVGHandle)
}

// svgHandle renders a static SVG candlestick chart with a volume strip and
// EMA overlays.
type svgHandle struct {
	mu       sync.Mutex
	opts     Options
	data     SeriesData
	disposed bool
}

func newSVGHandle(opts Options) Handle {
	return &svgHandle{opts: opts}
}

func (h *svgHandle) Update(data SeriesData) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return ErrDisposed
	}
	h.data = data
	return nil
}

func (h *svgHandle) Resize(width, height int) error {
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

func (h *svgHandle) Render() ([]byte, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return nil, "", ErrDisposed
	}
	return []byte(renderSVG(h.opts, h.data)), "image/svg+xml", nil
}

func (h *svgHandle) Dispose() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disposed = true
	return nil
}

// chartTitle builds the header line: "Neulumen Labs (NLMN)", falling back to
// the bare ticker when no distinct name is known.
func chartTitle(data SeriesData) string {
	if data.Name == "" || data.Name == data.Ticker {
		return data.Ticker
	}
	return fmt.Sprintf("%s (%s)", data.Name, data.Ticker)
}

func renderSVG(opts Options, data SeriesData) string {
	if len(data.Candles) == 0 {
		return emptySVG(opts, "No data available")
	}

	candles := data.Candles
	n := len(candles)

	px, py := marginLeft, marginTop
	pw := opts.Width - marginLeft - marginRight
	ph := opts.Height - marginTop - marginBottom

	minPrice, maxPrice, _ := axisBounds(candles)
	priceRange := maxPrice - minPrice

	var maxVol int64
	for _, c := range candles {
		if c.Volume > maxVol {
			maxVol = c.Volume
		}
	}

	candleWidth := float64(pw) / float64(n)
	if candleWidth > 12 {
		candleWidth = 12
	}
	bodyWidth := candleWidth * 0.7
	volHeight := float64(ph) * 0.2 // bottom strip for volume

	// Center x of candle i.
	centerX := func(i int) float64 {
		return float64(px) + float64(i)*float64(pw)/float64(n) + float64(pw)/float64(n)/2
	}
	priceToY := func(p float64) int {
		ratio := (p - minPrice) / priceRange
		return py + ph - int(volHeight) - int(ratio*float64(ph-int(volHeight)))
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(opts))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		opts.Width, opts.Height, svgBgColor))

	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		opts.Width/2, svgTextColor, escapeXML(chartTitle(data))))

	// Price grid and labels.
	gridLines := 6
	for i := 0; i <= gridLines; i++ {
		price := minPrice + priceRange*float64(i)/float64(gridLines)
		y := py + ph - int(volHeight) - int(float64(ph-int(volHeight))*float64(i)/float64(gridLines))
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, svgGridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, y+4, svgFontSize, svgTextColor, utils.FormatUSD(price)))
	}

	// Volume strip.
	if maxVol > 0 {
		for i, c := range candles {
			cx := centerX(i)
			vh := float64(c.Volume) / float64(maxVol) * volHeight
			vy := float64(py+ph) - vh
			color := bullVolColor
			if c.Close < c.Open {
				color = bearVolColor
			}
			sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" opacity="0.6"/>`,
				cx-bodyWidth/2, vy, bodyWidth, vh, color))
		}
	}

	// Candles.
	for i, c := range candles {
		cx := centerX(i)
		color := bullColor
		if c.Close < c.Open {
			color = bearColor
		}

		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="%s" stroke-width="1"/>`,
			cx, priceToY(c.High), cx, priceToY(c.Low), color))

		openY, closeY := priceToY(c.Open), priceToY(c.Close)
		bodyTop, bodyH := openY, closeY-openY
		if bodyH < 0 {
			bodyTop, bodyH = closeY, -bodyH
		}
		if bodyH < 1 {
			bodyH = 1
		}
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%d" width="%.1f" height="%d" fill="%s"/>`,
			cx-bodyWidth/2, bodyTop, bodyWidth, bodyH, color))
	}

	// EMA overlays with legend.
	legendRow := 0
	drawOverlay := func(label string, values []*float64, minCandles int, color string) {
		if n < minCandles || len(values) != n {
			return
		}
		var pathParts []string
		for i, v := range values {
			if v == nil {
				continue
			}
			cmd := "L"
			if len(pathParts) == 0 {
				cmd = "M"
			}
			pathParts = append(pathParts, fmt.Sprintf("%s%.1f,%d", cmd, centerX(i), priceToY(*v)))
		}
		if len(pathParts) < 2 {
			return
		}
		sb.WriteString(fmt.Sprintf(`<path d="%s" fill="none" stroke="%s" stroke-width="1.5" opacity="0.8"/>`,
			strings.Join(pathParts, " "), color))

		legendRow++
		ly := py + legendRow*16
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"/>`,
			px+10, ly, px+30, ly, color))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`,
			px+35, ly+4, svgTextColor, escapeXML(label)))
	}
	drawOverlay("EMA 9", data.EMA9, ema9MinCandles, ema9Color)
	drawOverlay("EMA 20", data.EMA20, ema20MinCandles, ema20Color)

	// Date labels, rotated to survive dense windows.
	labelInterval := n / 6
	if labelInterval < 1 {
		labelInterval = 1
	}
	for i := 0; i < n; i += labelInterval {
		cx := centerX(i)
		label := candles[i].Date.Format("02 Jan")
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle" transform="rotate(-45,%.1f,%d)">%s</text>`,
			cx, py+ph+15, svgFontSize-1, svgTextColor, cx, py+ph+15, label))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func svgHeader(opts Options) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		opts.Width, opts.Height, opts.Width, opts.Height)
}

func emptySVG(opts Options, msg string) string {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		opts.Width, opts.Height, opts.Width, opts.Height, opts.Width/2, opts.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
