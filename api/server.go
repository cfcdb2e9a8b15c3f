// Package api provides the HTTP REST API server for Syntick.
//
// It exposes endpoints for financial metrics, candle series, chart
// rendering, directory search, generation-run diagnostics, configuration,
// and WebSocket streaming.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/syntick/syntick/internal/chart"
	"github.com/syntick/syntick/internal/config"
	"github.com/syntick/syntick/internal/directory"
	"github.com/syntick/syntick/internal/infra"
	"github.com/syntick/syntick/internal/logging"
	"github.com/syntick/syntick/internal/market"
	"github.com/syntick/syntick/internal/recorder"
	"github.com/syntick/syntick/internal/synth"
	"github.com/syntick/syntick/pkg/models"
	"github.com/syntick/syntick/pkg/utils"
)

// Version is stamped by the build and reported by the health endpoint.
var Version = "dev"

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	cfg          *config.Config
	market       *market.Service
	dir          *directory.Directory
	rec          recorder.Recorder // nil when run recording is disabled
	chartLimiter *infra.RateLimiter
	wsHub        *WSHub
	logger       zerolog.Logger
	startedAt    time.Time
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	dir := directory.New()

	var rec recorder.Recorder
	if cfg.Recorder.Enabled {
		sqlite, err := recorder.NewSQLiteRecorder(cfg.Recorder.Path)
		if err != nil {
			return nil, fmt.Errorf("recorder setup failed: %w", err)
		}
		rec = sqlite
	}

	svc := market.NewService(market.ServiceConfig{
		HistoryDays:       cfg.Engine.HistoryDays,
		DefaultWindowDays: cfg.Engine.DefaultWindowDays,
		CacheTTL:          time.Duration(cfg.Engine.CacheTTLSeconds) * time.Second,
		MaxConcurrent:     cfg.Engine.MaxConcurrent,
		Recorder:          rec,
		Directory:         dir,
		Logger:            logger,
	})

	ratePerSec := cfg.API.ChartRatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 20
	}
	burst := cfg.API.ChartBurst
	if burst <= 0 {
		burst = 2 * ratePerSec
	}

	srv := &Server{
		cfg:          cfg,
		market:       svc,
		dir:          dir,
		rec:          rec,
		chartLimiter: infra.NewRateLimiter(burst, time.Second/time.Duration(ratePerSec)),
		wsHub:        NewWSHub(),
		logger:       logger,
		startedAt:    time.Now(),
	}

	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Close releases the run recorder. Call it after ListenAndServe returns.
func (s *Server) Close() error {
	if s.rec != nil {
		return s.rec.Close()
	}
	return nil
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub and snapshot cache janitor
	go s.wsHub.Run()
	go s.runCacheJanitor()

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal().Err(err).Msg("http server error")
		}
	}()
	s.logger.Info().Str("addr", addr).Str("version", Version).Msg("api server listening")

	<-done
	s.logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// runCacheJanitor sweeps expired series snapshots once a minute.
func (s *Server) runCacheJanitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.market.CleanupCache()
	}
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health (also available at /health)
		r.Get("/health", s.handleHealth)

		// Metrics
		r.Get("/metrics/{ticker}", s.handleMetrics)
		r.Post("/metrics/batch", s.handleBatchMetrics)

		// Candles
		r.Get("/candles/{ticker}", s.handleCandles)

		// Chart rendering
		r.Get("/chart/{ticker}", s.handleChart)

		// Ticker directory
		r.Get("/tickers", s.handleTickers)

		// Generation runs
		r.Get("/runs", s.handleRuns)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleUpdateConfig)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// BatchMetricsRequest is the body for POST /api/v1/metrics/batch.
type BatchMetricsRequest struct {
	Tickers []string `json:"tickers"`
	Days    int      `json:"days,omitempty"`
}

// BatchMetricsItem is one per-ticker result in a batch response.
type BatchMetricsItem struct {
	Ticker  string                   `json:"ticker"`
	Success bool                     `json:"success"`
	Metrics *models.FinancialMetrics `json:"metrics,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// CandlesResponse pairs a candle series with its validation report.
type CandlesResponse struct {
	Ticker  string               `json:"ticker"`
	Candles []models.CandlePoint `json:"candles"`
	Report  synth.Report         `json:"report"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":        "ok",
			"version":       Version,
			"uptime":        time.Since(s.startedAt).Round(time.Second).String(),
			"backends":      chart.Backends(),
			"market_status": utils.MarketStatus(),
		},
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	days := queryInt(r, "days", 0)
	name := r.URL.Query().Get("name")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	metrics, err := s.market.Metrics(ctx, ticker, name, days)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	// Broadcast to WebSocket clients
	s.wsHub.Broadcast(WSMessage{
		Type: "generation_complete",
		Data: map[string]interface{}{
			"ticker": metrics.Ticker,
		},
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    metrics,
	})
}

func (s *Server) handleBatchMetrics(w http.ResponseWriter, r *http.Request) {
	var req BatchMetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Tickers) == 0 {
		writeError(w, http.StatusBadRequest, "tickers is required")
		return
	}

	requests := make([]market.BatchRequest, len(req.Tickers))
	for i, t := range req.Tickers {
		requests[i] = market.BatchRequest{Ticker: t, WindowDays: req.Days}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	results := s.market.BatchMetrics(ctx, requests)

	items := make([]BatchMetricsItem, len(results))
	failed := 0
	for i, res := range results {
		items[i] = BatchMetricsItem{
			Ticker:  res.Ticker,
			Success: res.Err == nil,
			Metrics: res.Metrics,
		}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
			failed++
		}
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "batch_complete",
		Data: map[string]interface{}{
			"requested": len(items),
			"failed":    failed,
		},
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    items,
	})
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	days := queryInt(r, "days", 0)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	candles, report, err := s.market.Candles(ctx, ticker, days)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: CandlesResponse{
			Ticker:  utils.NormalizeTicker(ticker),
			Candles: models.CandlePoints(candles),
			Report:  report,
		},
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	days := queryInt(r, "days", 0)
	width := queryInt(r, "width", s.cfg.Chart.Width)
	height := queryInt(r, "height", s.cfg.Chart.Height)
	backend := r.URL.Query().Get("backend")
	if backend == "" {
		backend = s.cfg.Chart.Backend
	}
	if backend == "" {
		backend = "svg"
	}

	// Rendering is the one expensive path; callers queue for a token.
	if err := s.chartLimiter.Wait(r.Context()); err != nil {
		writeError(w, http.StatusTooManyRequests, "chart rate limit exceeded")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	series, err := s.market.ChartSeries(ctx, ticker, "", days)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	handle, err := chart.Mount(backend, chart.Options{Width: width, Height: height})
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	defer handle.Dispose()

	if err := handle.Update(series); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	body, contentType, err := handle.Render()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}

func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 0)

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.dir.Search(query, limit),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.rec == nil {
		writeError(w, http.StatusServiceUnavailable, "run recorder is disabled")
		return
	}

	limit := queryInt(r, "limit", 50)

	var (
		runs []recorder.Run
		err  error
	)
	if ticker := r.URL.Query().Get("ticker"); ticker != "" {
		runs, err = s.rec.RunsForTicker(utils.NormalizeTicker(ticker), limit)
	} else {
		runs, err = s.rec.RecentRuns(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    runs,
	})
}

// ============================================================
// Helpers
// ============================================================

// queryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// statusForError maps service errors to HTTP status codes. Unknown errors
// stay 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, market.ErrEmptyTicker):
		return http.StatusBadRequest
	case errors.Is(err, chart.ErrUnknownBackend):
		return http.StatusBadRequest
	case errors.Is(err, synth.ErrNoValidCandles):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; disconnect
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	h.unregister <- client
}
