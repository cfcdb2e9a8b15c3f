// Package market orchestrates the synthesis pipeline: ticker normalization,
// seeded generation, snapshot caching, run recording and metrics assembly.
// A Service is the single entry point the API server and the CLI share.
package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/syntick/syntick/internal/chart"
	"github.com/syntick/syntick/internal/directory"
	"github.com/syntick/syntick/internal/infra"
	"github.com/syntick/syntick/internal/recorder"
	"github.com/syntick/syntick/internal/synth"
	"github.com/syntick/syntick/internal/technical"
	"github.com/syntick/syntick/pkg/models"
	"github.com/syntick/syntick/pkg/utils"
)

// ErrEmptyTicker is returned when normalization leaves nothing to seed.
var ErrEmptyTicker = fmt.Errorf("empty ticker")

// DefaultWindowDays is the trailing calendar window served when a caller
// does not ask for one.
const DefaultWindowDays = 30

// ServiceConfig wires a Service's collaborators. Zero fields fall back to
// defaults, so tests can build a Service from an almost-empty config.
type ServiceConfig struct {
	HistoryDays       int           // trading days per generated series
	DefaultWindowDays int           // substituted when Metrics gets windowDays <= 0
	CacheTTL          time.Duration // snapshot cache lifetime
	MaxConcurrent     int           // batch generation parallelism

	Recorder   recorder.Recorder
	Directory  *directory.Directory
	Logger     zerolog.Logger
	AnchorFunc func() time.Time // injectable clock; series end on its last trading day
}

// Service generates, caches and assembles synthetic market data. Safe for
// concurrent use.
type Service struct {
	historyDays   int
	windowDays    int
	maxConcurrent int

	cache    *infra.Cache
	group    singleflight.Group
	rec      recorder.Recorder
	dir      *directory.Directory
	log      zerolog.Logger
	anchorFn func() time.Time

	// deriveParams is swapped by tests to inject pathological parameters.
	deriveParams func(seed int64) synth.Parameters
}

// NewService builds a Service, filling unset config fields with defaults.
func NewService(cfg ServiceConfig) *Service {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = synth.DefaultDays
	}
	if cfg.DefaultWindowDays <= 0 {
		cfg.DefaultWindowDays = DefaultWindowDays
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if cfg.Recorder == nil {
		cfg.Recorder = recorder.NewNoopRecorder()
	}
	if cfg.Directory == nil {
		cfg.Directory = directory.New()
	}
	if cfg.AnchorFunc == nil {
		cfg.AnchorFunc = time.Now
	}

	return &Service{
		historyDays:   cfg.HistoryDays,
		windowDays:    cfg.DefaultWindowDays,
		maxConcurrent: cfg.MaxConcurrent,
		cache:         infra.NewCache(cfg.CacheTTL),
		rec:           cfg.Recorder,
		dir:           cfg.Directory,
		log:           cfg.Logger,
		anchorFn:      cfg.AnchorFunc,
		deriveParams:  synth.DeriveParameters,
	}
}

// snapshot is one cached generation. Every window view (metrics, candles,
// chart series) derives from it without re-running synthesis.
type snapshot struct {
	params  synth.Parameters
	candles []models.Candle
	report  synth.Report
}

// Metrics assembles the FinancialMetrics record for a ticker. An empty name
// falls back to the directory; windowDays <= 0 falls back to the configured
// default window.
func (s *Service) Metrics(ctx context.Context, ticker, name string, windowDays int) (*models.FinancialMetrics, error) {
	normalized := utils.NormalizeTicker(ticker)
	if normalized == "" {
		return nil, ErrEmptyTicker
	}

	snap, err := s.generate(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = s.dir.DisplayName(normalized)
	}
	if windowDays <= 0 {
		windowDays = s.windowDays
	}
	return BuildMetrics(normalized, name, snap.candles, snap.params.Seed, windowDays), nil
}

// Candles returns the validated series for a ticker, sliced to windowDays
// (<= 0 means the full series), plus the full-series validation report.
func (s *Service) Candles(ctx context.Context, ticker string, windowDays int) ([]models.Candle, synth.Report, error) {
	normalized := utils.NormalizeTicker(ticker)
	if normalized == "" {
		return nil, synth.Report{}, ErrEmptyTicker
	}

	snap, err := s.generate(ctx, normalized)
	if err != nil {
		return nil, synth.Report{}, err
	}

	start := windowStart(snap.candles, windowDays)
	out := make([]models.Candle, len(snap.candles)-start)
	copy(out, snap.candles[start:])
	return out, snap.report, nil
}

// ChartSeries returns the windowed series with index-aligned EMA overlays,
// ready to hand to a chart backend. Overlay values come from the full-series
// EMA computation, so the window never shifts the warm-up gap.
func (s *Service) ChartSeries(ctx context.Context, ticker, name string, windowDays int) (chart.SeriesData, error) {
	normalized := utils.NormalizeTicker(ticker)
	if normalized == "" {
		return chart.SeriesData{}, ErrEmptyTicker
	}

	snap, err := s.generate(ctx, normalized)
	if err != nil {
		return chart.SeriesData{}, err
	}

	if name == "" {
		name = s.dir.DisplayName(normalized)
	}

	closes := technical.Closes(snap.candles)
	ema9 := technical.EMA(closes, 9)
	ema20 := technical.EMA(closes, 20)

	start := windowStart(snap.candles, windowDays)
	candles := make([]models.Candle, len(snap.candles)-start)
	copy(candles, snap.candles[start:])

	return chart.SeriesData{
		Ticker:  normalized,
		Name:    name,
		Candles: candles,
		EMA9:    ema9[start:],
		EMA20:   ema20[start:],
	}, nil
}

// FlushCache drops every cached snapshot. Called when engine configuration
// changes at runtime.
func (s *Service) FlushCache() {
	s.cache.Flush()
}

// CleanupCache evicts expired snapshots. The API server runs this on a timer.
func (s *Service) CleanupCache() {
	s.cache.Cleanup()
}

// generate returns the snapshot for a normalized ticker, generating and
// caching it on first use. Concurrent misses for the same key collapse into
// one synthesis pass.
func (s *Service) generate(ctx context.Context, ticker string) (*snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	anchor := s.anchorDate()
	key := ticker + "|" + anchor.Format(time.DateOnly)
	if v, ok := s.cache.Get(key); ok {
		return v.(*snapshot), nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// A previous flight may have cached while this caller queued.
		if v, ok := s.cache.Get(key); ok {
			return v.(*snapshot), nil
		}

		params := s.deriveParams(synth.Seed(ticker))

		started := time.Now()
		candles, report, err := synth.GenerateSeries(params, anchor, s.historyDays)
		elapsed := time.Since(started)
		s.recordRun(ticker, params, anchor, report, err, elapsed)
		if err != nil {
			s.log.Error().Err(err).Str("ticker", ticker).Int64("seed", params.Seed).Msg("generation failed")
			return nil, err
		}

		s.log.Debug().
			Str("ticker", ticker).
			Int64("seed", params.Seed).
			Str("tier", params.Tier.String()).
			Int("valid", report.ValidCount).
			Int("dropped", len(report.Dropped)).
			Dur("duration", elapsed).
			Msg("series generated")

		snap := &snapshot{params: params, candles: candles, report: report}
		if ctx.Err() == nil {
			s.cache.Set(key, snap)
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot), nil
}

// anchorDate resolves "now" to the trading day the series ends on: the
// calendar date at UTC midnight, walked back past any weekend.
func (s *Service) anchorDate() time.Time {
	now := s.anchorFn()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return utils.LastTradingDayOnOrBefore(day)
}

// recordRun persists one generation attempt. Recorder failures are logged,
// never propagated; diagnostics must not break data serving.
func (s *Service) recordRun(ticker string, p synth.Parameters, anchor time.Time, report synth.Report, genErr error, elapsed time.Duration) {
	run := &recorder.Run{
		Ticker:     ticker,
		Seed:       p.Seed,
		Tier:       p.Tier.String(),
		Anchor:     anchor.Format(time.DateOnly),
		RawCount:   report.RawCount,
		ValidCount: report.ValidCount,
		Dropped:    len(report.Dropped),
		Violations: joinViolations(report.Dropped),
		DurationUS: elapsed.Microseconds(),
	}
	if genErr != nil {
		run.Error = genErr.Error()
	}
	if err := s.rec.RecordRun(run); err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("failed to record generation run")
	}
}

// joinViolations flattens a drop list to the distinct invariant identifiers,
// first occurrence first.
func joinViolations(dropped []synth.Violation) string {
	if len(dropped) == 0 {
		return ""
	}
	seen := make(map[string]bool, len(dropped))
	names := make([]string, 0, 4)
	for _, v := range dropped {
		if !seen[v.Invariant] {
			seen[v.Invariant] = true
			names = append(names, v.Invariant)
		}
	}
	return strings.Join(names, ",")
}
