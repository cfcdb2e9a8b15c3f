// Syntick generates deterministic synthetic market data from ticker strings.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rs/zerolog"

	"github.com/syntick/syntick/api"
	"github.com/syntick/syntick/internal/chart"
	"github.com/syntick/syntick/internal/config"
	"github.com/syntick/syntick/internal/directory"
	"github.com/syntick/syntick/internal/logging"
	"github.com/syntick/syntick/internal/market"
	"github.com/syntick/syntick/internal/recorder"
	"github.com/syntick/syntick/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, populated by PersistentPreRunE.
var (
	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	api.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "syntick",
	Short: "Deterministic synthetic market data engine",
	Long: `Syntick synthesizes OHLCV candle series, technical indicators, and
candlestick charts from nothing but a ticker string. Generation is
seeded by the ticker and the current trading day, so the same ticker
yields the same data all day, on any machine, with no market feed.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logCfg := logging.Config{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			FilePath:   cfg.Logging.FilePath,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			logCfg.Level = level
		}
		// Logs go to stderr so piped command output stays clean.
		logger = logging.NewWithOutput(logCfg, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(tickersCmd)
	rootCmd.AddCommand(statusCmd)
}

// buildService wires a market service from the loaded config. The returned
// cleanup closes the run recorder when one was opened.
func buildService() (*market.Service, func(), error) {
	var rec recorder.Recorder
	cleanup := func() {}
	if cfg.Recorder.Enabled {
		sqlite, err := recorder.NewSQLiteRecorder(cfg.Recorder.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("recorder setup failed: %w", err)
		}
		rec = sqlite
		cleanup = func() { sqlite.Close() } //nolint:errcheck
	}

	svc := market.NewService(market.ServiceConfig{
		HistoryDays:       cfg.Engine.HistoryDays,
		DefaultWindowDays: cfg.Engine.DefaultWindowDays,
		CacheTTL:          time.Duration(cfg.Engine.CacheTTLSeconds) * time.Second,
		MaxConcurrent:     cfg.Engine.MaxConcurrent,
		Recorder:          rec,
		Directory:         directory.New(),
		Logger:            logger,
	})
	return svc, cleanup, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Syntick %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := api.NewServer(cfg, logger)
		if err != nil {
			return err
		}
		defer srv.Close() //nolint:errcheck

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting Syntick API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Generate Command ---

var generateCmd = &cobra.Command{
	Use:   "generate [ticker]",
	Short: "Generate financial metrics for a ticker",
	Long: `Generate the full metrics record for a ticker: the windowed candle
series, EMA/ATR/RSI indicators, and quote approximations.

Examples:
  syntick generate NLMN
  syntick generate NLMN --days 7
  syntick generate nlmn.us --name "Neulumen Labs" --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		name, _ := cmd.Flags().GetString("name")
		asJSON, _ := cmd.Flags().GetBool("json")

		svc, cleanup, err := buildService()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		metrics, err := svc.Metrics(ctx, args[0], name, days)
		if err != nil {
			return err
		}

		if asJSON {
			out, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		first := metrics.Candles[0]
		last := metrics.Candles[len(metrics.Candles)-1]
		fmt.Printf("🎲 %s (%s)\n", metrics.Ticker, metrics.Name)
		fmt.Printf("   Window:   %d candles (%s to %s)\n", len(metrics.Candles), first.Date, last.Date)
		fmt.Printf("   Close:    %s\n", utils.FormatUSD(last.Close))
		fmt.Printf("   VWAP:     %s\n", utils.FormatUSD(metrics.VWAP))
		fmt.Printf("   RSI:      %.2f\n", metrics.RSI)
		fmt.Printf("   EMA:      %.2f (9)  %.2f (20)\n", metrics.EMA9, metrics.EMA20)
		fmt.Printf("   ATR:      %.2f\n", metrics.ATR)
		fmt.Printf("   Bid/Ask:  %.2f / %.2f (spread %.2f)\n", metrics.Bid, metrics.Ask, metrics.Spread)
		fmt.Printf("   Volume:   %s\n", utils.FormatVolume(metrics.Volume))
		return nil
	},
}

func init() {
	generateCmd.Flags().Int("days", 0, "window in calendar days (default from config)")
	generateCmd.Flags().String("name", "", "display name override")
	generateCmd.Flags().Bool("json", false, "print the raw metrics record as JSON")
}

// --- Chart Command ---

var chartCmd = &cobra.Command{
	Use:   "chart [ticker]",
	Short: "Render a candlestick chart to an SVG file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		width, _ := cmd.Flags().GetInt("width")
		height, _ := cmd.Flags().GetInt("height")
		out, _ := cmd.Flags().GetString("out")

		if width <= 0 {
			width = cfg.Chart.Width
		}
		if height <= 0 {
			height = cfg.Chart.Height
		}

		svc, cleanup, err := buildService()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		series, err := svc.ChartSeries(ctx, args[0], "", days)
		if err != nil {
			return err
		}

		handle, err := chart.Mount("svg", chart.Options{Width: width, Height: height})
		if err != nil {
			return err
		}
		defer handle.Dispose()

		if err := handle.Update(series); err != nil {
			return err
		}
		body, _, err := handle.Render()
		if err != nil {
			return err
		}

		if out == "" {
			out = series.Ticker + ".svg"
		}
		if err := os.WriteFile(out, body, 0o644); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}

		fmt.Printf("📈 Wrote %s (%d candles, %dx%d)\n", out, len(series.Candles), width, height)
		return nil
	},
}

func init() {
	chartCmd.Flags().Int("days", 0, "window in calendar days (default from config)")
	chartCmd.Flags().Int("width", 0, "chart width in pixels (default from config)")
	chartCmd.Flags().Int("height", 0, "chart height in pixels (default from config)")
	chartCmd.Flags().String("out", "", "output file (default: TICKER.svg)")
}

// --- Tickers Command ---

var tickersCmd = &cobra.Command{
	Use:   "tickers [query]",
	Short: "List or search the ticker directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) > 0 {
			query = args[0]
		}

		companies := directory.New().Search(query, 0)
		if len(companies) == 0 {
			fmt.Printf("No tickers match %q\n", query)
			return nil
		}

		fmt.Printf("📇 %d tickers\n\n", len(companies))
		for _, c := range companies {
			fmt.Printf("  %-6s %-28s %s\n", c.Ticker, c.Name, c.Sector)
		}
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  Syntick System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (UTC):    %s\n", utils.FormatDateTime(time.Now().UTC()))
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    History:       %d trading days (default window %dd)\n",
			cfg.Engine.HistoryDays, cfg.Engine.DefaultWindowDays)
		fmt.Printf("    Cache TTL:     %ds (max concurrent %d)\n",
			cfg.Engine.CacheTTLSeconds, cfg.Engine.MaxConcurrent)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("    Chart:         %dx%d (%s)\n",
			cfg.Chart.Width, cfg.Chart.Height, cfg.Chart.Backend)
		fmt.Printf("    Logging:       %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
		fmt.Println()

		// Recorder state
		fmt.Println("  Run Recorder:")
		if cfg.Recorder.Enabled {
			fmt.Printf("    ✅ enabled (%s)\n", cfg.Recorder.Path)
		} else {
			fmt.Println("    ❌ disabled")
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
