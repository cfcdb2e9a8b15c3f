// Package config handles configuration loading for Syntick.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"   yaml:"engine"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Chart    ChartConfig    `mapstructure:"chart"    yaml:"chart"`
	Recorder RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// EngineConfig holds series generation settings.
type EngineConfig struct {
	HistoryDays       int `mapstructure:"history_days"        yaml:"history_days"`        // trading days per generated series
	DefaultWindowDays int `mapstructure:"default_window_days" yaml:"default_window_days"` // calendar days returned when no window given
	CacheTTLSeconds   int `mapstructure:"cache_ttl_seconds"   yaml:"cache_ttl_seconds"`
	MaxConcurrent     int `mapstructure:"max_concurrent"      yaml:"max_concurrent"` // batch generation parallelism
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host            string   `mapstructure:"host"               yaml:"host"`
	Port            int      `mapstructure:"port"               yaml:"port"`
	CORSOrigins     []string `mapstructure:"cors_origins"       yaml:"cors_origins"`
	ChartRatePerSec int      `mapstructure:"chart_rate_per_sec" yaml:"chart_rate_per_sec"`
	ChartBurst      int      `mapstructure:"chart_burst"        yaml:"chart_burst"`
}

// ChartConfig holds chart rendering defaults.
type ChartConfig struct {
	Width   int    `mapstructure:"width"   yaml:"width"`
	Height  int    `mapstructure:"height"  yaml:"height"`
	Backend string `mapstructure:"backend" yaml:"backend"` // "svg" or "json"
}

// RecorderConfig holds generation run recording settings.
type RecorderConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"` // SQLite database file
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"        yaml:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"       yaml:"format"` // "console" or "json"
	FilePath   string `mapstructure:"file_path"    yaml:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.syntick/config.yaml (home directory)
//  3. /etc/syntick/config.yaml (system)
//
// Environment variables override config file values.
// Format: SYNTICK_<SECTION>_<KEY>, e.g., SYNTICK_API_PORT
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".syntick"))
	v.AddConfigPath("/etc/syntick")

	// Environment variable settings
	v.SetEnvPrefix("SYNTICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("SYNTICK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// SaveToFile writes the configuration to path as YAML, creating parent
// directories as needed.
func SaveToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", path, err)
	}
	return nil
}

// ConfigFilePath returns the path configuration updates are persisted to.
// The first existing file in the search order wins; when none exists the
// project-local path is used.
func ConfigFilePath() string {
	candidates := []string{
		filepath.Join("config", "config.yaml"),
		filepath.Join(homeDir(), ".syntick", "config.yaml"),
		"/etc/syntick/config.yaml",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return candidates[0]
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Engine defaults
	v.SetDefault("engine.history_days", 40)
	v.SetDefault("engine.default_window_days", 30)
	v.SetDefault("engine.cache_ttl_seconds", 300) // 5 minutes
	v.SetDefault("engine.max_concurrent", 5)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8400)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.chart_rate_per_sec", 20)
	v.SetDefault("api.chart_burst", 40)

	// Chart defaults
	v.SetDefault("chart.width", 800)
	v.SetDefault("chart.height", 400)
	v.SetDefault("chart.backend", "svg")

	// Recorder defaults (opt-in)
	v.SetDefault("recorder.enabled", false)
	v.SetDefault("recorder.path", filepath.Join(homeDir(), ".syntick", "runs.db"))

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 14)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
