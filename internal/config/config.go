// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/marketlens-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete marketlens configuration.
type Config struct {
	Version string `toml:"version"`

	// Engine configuration (transcript observation)
	Engine EngineConfig `toml:"engine"`

	// Overlay configuration (suggestion overlay)
	Overlay OverlayConfig `toml:"overlay"`

	// Send configuration (programmatic sends)
	Send SendConfig `toml:"send"`

	// Market configuration (data provider)
	Market MarketConfig `toml:"market"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// EngineConfig tunes transcript observation.
type EngineConfig struct {
	// SettleDelayMs postpones the first transcript scan after startup.
	SettleDelayMs int `toml:"settle_delay_ms"`
	// SweepIntervalMs is the period of the fallback rescan.
	SweepIntervalMs int `toml:"sweep_interval_ms"`
	// DiscoveryRetries bounds attempts to find the transcript container.
	DiscoveryRetries int `toml:"discovery_retries"`
	// DiscoveryDelayMs separates discovery attempts.
	DiscoveryDelayMs int `toml:"discovery_delay_ms"`
}

// OverlayConfig tunes the suggestion overlay.
type OverlayConfig struct {
	// Enabled controls whether the overlay is shown at all.
	Enabled bool `toml:"enabled"`
	// RearmDelayMs separates a new-conversation click from the re-show.
	RearmDelayMs int `toml:"rearm_delay_ms"`
	// Suggestions replaces the built-in example queries when non-empty.
	Suggestions []string `toml:"suggestions"`
}

// SendConfig stages programmatic sends.
type SendConfig struct {
	// FindInputDelayMs separates flag-set from the input lookup.
	FindInputDelayMs int `toml:"find_input_delay_ms"`
	// SubmitDelayMs separates value injection from submit activation.
	SubmitDelayMs int `toml:"submit_delay_ms"`
	// ClearFlagDelayMs bounds how long the synthetic flag stays raised.
	ClearFlagDelayMs int `toml:"clear_flag_delay_ms"`
}

// MarketConfig contains data-provider configuration.
type MarketConfig struct {
	// BaseURL is the market data API root.
	BaseURL string `toml:"base_url"`
	// APIKey is an optional bearer token for the provider.
	APIKey string `toml:"api_key"`
	// TimeoutSecs bounds each HTTP request.
	TimeoutSecs int `toml:"timeout_secs"`
	// DefaultPeriod is the lookback range for stock charts.
	DefaultPeriod string `toml:"default_period"`
	// RatePerSec throttles requests to the provider.
	RatePerSec float64 `toml:"rate_per_sec"`
	// CacheEnabled controls the on-disk series cache.
	CacheEnabled bool `toml:"cache_enabled"`
	// CachePath is the cache database file (empty = default
	// ~/.marketlens/cache.db).
	CachePath string `toml:"cache_path"`
	// CacheTTLMinutes is the time-to-live for cached series.
	CacheTTLMinutes int `toml:"cache_ttl_minutes"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light"
	Theme string `toml:"theme"`
	// ExportDir is where chart exports land (empty = current directory).
	ExportDir string `toml:"export_dir"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Engine: EngineConfig{
			SettleDelayMs:    500,
			SweepIntervalMs:  2000,
			DiscoveryRetries: 5,
			DiscoveryDelayMs: 300,
		},

		Overlay: OverlayConfig{
			Enabled:      true,
			RearmDelayMs: 400,
		},

		Send: SendConfig{
			FindInputDelayMs: 50,
			SubmitDelayMs:    120,
			ClearFlagDelayMs: 300,
		},

		Market: MarketConfig{
			BaseURL:         "https://query1.finance.yahoo.com",
			TimeoutSecs:     15,
			DefaultPeriod:   "1mo",
			RatePerSec:      2.0,
			CacheEnabled:    true,
			CacheTTLMinutes: 15,
		},

		UI: UIConfig{
			Theme: "dark",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the marketlens configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".marketlens"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultCachePath returns the default series cache location.
func DefaultCachePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files should be 0600 to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file, falling back to
// defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600
// permissions. The write is atomic so a concurrent reload never sees a
// half-written file.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# marketlens configuration file")
	fmt.Fprintln(&buf, "# Generated by marketlens - edit with care")
	fmt.Fprintln(&buf, "")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// validPeriods mirrors the data provider's accepted lookback ranges.
var validPeriods = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Engine.SettleDelayMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "engine.settle_delay_ms",
			Message: "must be non-negative",
		})
	}
	if c.Engine.SweepIntervalMs < 100 {
		errs = append(errs, ValidationError{
			Field:   "engine.sweep_interval_ms",
			Message: fmt.Sprintf("must be at least 100, got %d", c.Engine.SweepIntervalMs),
		})
	}
	if c.Engine.DiscoveryRetries < 1 || c.Engine.DiscoveryRetries > 50 {
		errs = append(errs, ValidationError{
			Field:   "engine.discovery_retries",
			Message: fmt.Sprintf("must be 1-50, got %d", c.Engine.DiscoveryRetries),
		})
	}

	if c.Overlay.RearmDelayMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "overlay.rearm_delay_ms",
			Message: "must be non-negative",
		})
	}

	if c.Send.FindInputDelayMs < 0 || c.Send.SubmitDelayMs < 0 || c.Send.ClearFlagDelayMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "send",
			Message: "delays must be non-negative",
		})
	}

	if c.Market.BaseURL != "" {
		if _, err := url.Parse(c.Market.BaseURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "market.base_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}
	if c.Market.TimeoutSecs < 1 || c.Market.TimeoutSecs > 120 {
		errs = append(errs, ValidationError{
			Field:   "market.timeout_secs",
			Message: fmt.Sprintf("must be 1-120, got %d", c.Market.TimeoutSecs),
		})
	}
	if !validPeriods[strings.ToLower(c.Market.DefaultPeriod)] {
		errs = append(errs, ValidationError{
			Field:   "market.default_period",
			Message: fmt.Sprintf("invalid period '%s'", c.Market.DefaultPeriod),
		})
	}
	if c.Market.RatePerSec <= 0 {
		errs = append(errs, ValidationError{
			Field:   "market.rate_per_sec",
			Message: "must be positive",
		})
	}
	if c.Market.CacheTTLMinutes < 0 {
		errs = append(errs, ValidationError{
			Field:   "market.cache_ttl_minutes",
			Message: "must be non-negative",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value
// configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.Engine.SettleDelayMs == 0 {
		c.Engine.SettleDelayMs = defaults.Engine.SettleDelayMs
	}
	if c.Engine.SweepIntervalMs == 0 {
		c.Engine.SweepIntervalMs = defaults.Engine.SweepIntervalMs
	}
	if c.Engine.DiscoveryRetries == 0 {
		c.Engine.DiscoveryRetries = defaults.Engine.DiscoveryRetries
	}
	if c.Engine.DiscoveryDelayMs == 0 {
		c.Engine.DiscoveryDelayMs = defaults.Engine.DiscoveryDelayMs
	}

	if c.Overlay.RearmDelayMs == 0 {
		c.Overlay.RearmDelayMs = defaults.Overlay.RearmDelayMs
	}

	if c.Send.FindInputDelayMs == 0 {
		c.Send.FindInputDelayMs = defaults.Send.FindInputDelayMs
	}
	if c.Send.SubmitDelayMs == 0 {
		c.Send.SubmitDelayMs = defaults.Send.SubmitDelayMs
	}
	if c.Send.ClearFlagDelayMs == 0 {
		c.Send.ClearFlagDelayMs = defaults.Send.ClearFlagDelayMs
	}

	if c.Market.BaseURL == "" {
		c.Market.BaseURL = defaults.Market.BaseURL
	}
	if c.Market.TimeoutSecs == 0 {
		c.Market.TimeoutSecs = defaults.Market.TimeoutSecs
	}
	if c.Market.DefaultPeriod == "" {
		c.Market.DefaultPeriod = defaults.Market.DefaultPeriod
	}
	if c.Market.RatePerSec == 0 {
		c.Market.RatePerSec = defaults.Market.RatePerSec
	}
	if c.Market.CacheTTLMinutes == 0 {
		c.Market.CacheTTLMinutes = defaults.Market.CacheTTLMinutes
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the
// config.
//
// Supported environment variables:
//   - MARKETLENS_BASE_URL: overrides market.base_url
//   - MARKETLENS_API_KEY: overrides market.api_key
//   - MARKETLENS_PERIOD: overrides market.default_period
//   - MARKETLENS_NO_CACHE: set to "1" or "true" to disable the cache
//   - MARKETLENS_THEME: overrides ui.theme
//   - MARKETLENS_EXPORT_DIR: overrides ui.export_dir
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("MARKETLENS_BASE_URL"); base != "" {
		c.Market.BaseURL = base
	}
	if key := os.Getenv("MARKETLENS_API_KEY"); key != "" {
		c.Market.APIKey = key
	}
	if period := os.Getenv("MARKETLENS_PERIOD"); period != "" {
		c.Market.DefaultPeriod = period
	}
	if noCache := os.Getenv("MARKETLENS_NO_CACHE"); noCache != "" {
		if noCache == "1" || strings.ToLower(noCache) == "true" {
			c.Market.CacheEnabled = false
		}
	}
	if theme := os.Getenv("MARKETLENS_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if dir := os.Getenv("MARKETLENS_EXPORT_DIR"); dir != "" {
		c.UI.ExportDir = dir
	}
}

// String returns a string representation of the config for debugging.
// The API key is redacted so it never lands in logs.
func (c *Config) String() string {
	safe := *c
	if safe.Market.APIKey != "" {
		safe.Market.APIKey = "[REDACTED]"
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}
