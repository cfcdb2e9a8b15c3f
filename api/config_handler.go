package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/syntick/syntick/internal/config"
)

// configMu serialises writes to the config file.
var configMu sync.Mutex

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config     *config.Config `json:"config"`
	ConfigFile string         `json:"config_file"` // path to the active config file
}

// handleGetConfig returns the current (running) configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: config.ConfigFilePath(),
		},
	})
}

// handleUpdateConfig merges the provided partial configuration into the
// running config, persists it to disk, and returns the updated config.
// Engine and recorder settings are read once at startup; a restart applies
// them. Chart defaults take effect on the next request.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var incoming config.Config
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	configMu.Lock()
	defer configMu.Unlock()

	// Merge non-zero values from incoming into running config.
	mergeConfig(s.cfg, &incoming)

	// Persist to disk.
	cfgPath := config.ConfigFilePath()
	if err := config.SaveToFile(s.cfg, cfgPath); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save config: "+err.Error())
		return
	}

	// Nothing generated under the old settings survives the update.
	s.market.FlushCache()

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: cfgPath,
		},
	})
}

// mergeConfig copies non-zero/non-empty values from src into dst.
func mergeConfig(dst, src *config.Config) {
	// Engine
	if src.Engine.HistoryDays != 0 {
		dst.Engine.HistoryDays = src.Engine.HistoryDays
	}
	if src.Engine.DefaultWindowDays != 0 {
		dst.Engine.DefaultWindowDays = src.Engine.DefaultWindowDays
	}
	if src.Engine.CacheTTLSeconds != 0 {
		dst.Engine.CacheTTLSeconds = src.Engine.CacheTTLSeconds
	}
	if src.Engine.MaxConcurrent != 0 {
		dst.Engine.MaxConcurrent = src.Engine.MaxConcurrent
	}

	// API
	if src.API.Host != "" {
		dst.API.Host = src.API.Host
	}
	if src.API.Port != 0 {
		dst.API.Port = src.API.Port
	}
	if len(src.API.CORSOrigins) > 0 {
		dst.API.CORSOrigins = src.API.CORSOrigins
	}
	if src.API.ChartRatePerSec != 0 {
		dst.API.ChartRatePerSec = src.API.ChartRatePerSec
	}
	if src.API.ChartBurst != 0 {
		dst.API.ChartBurst = src.API.ChartBurst
	}

	// Chart
	if src.Chart.Width != 0 {
		dst.Chart.Width = src.Chart.Width
	}
	if src.Chart.Height != 0 {
		dst.Chart.Height = src.Chart.Height
	}
	if src.Chart.Backend != "" {
		dst.Chart.Backend = src.Chart.Backend
	}

	// Recorder
	// Enabled is a bool; always apply it from incoming.
	dst.Recorder.Enabled = src.Recorder.Enabled
	if src.Recorder.Path != "" {
		dst.Recorder.Path = src.Recorder.Path
	}

	// Logging
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
	if src.Logging.FilePath != "" {
		dst.Logging.FilePath = src.Logging.FilePath
	}
	if src.Logging.MaxSizeMB != 0 {
		dst.Logging.MaxSizeMB = src.Logging.MaxSizeMB
	}
	if src.Logging.MaxBackups != 0 {
		dst.Logging.MaxBackups = src.Logging.MaxBackups
	}
	if src.Logging.MaxAgeDays != 0 {
		dst.Logging.MaxAgeDays = src.Logging.MaxAgeDays
	}
}
