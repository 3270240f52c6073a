// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadFromPathOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[engine]
sweep_interval_ms = 5000

[market]
base_url = "http://localhost:9999"
default_period = "1y"

[overlay]
enabled = true
suggestions = ["Chart TSLA stock"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if got := cfg.Engine.SweepIntervalMs; got != 5000 {
		t.Errorf("SweepIntervalMs = %d, want 5000", got)
	}
	if got := cfg.Market.BaseURL; got != "http://localhost:9999" {
		t.Errorf("BaseURL = %q", got)
	}
	if got := cfg.Market.DefaultPeriod; got != "1y" {
		t.Errorf("DefaultPeriod = %q", got)
	}
	// Untouched sections keep their defaults.
	if got := cfg.Send.SubmitDelayMs; got != Default().Send.SubmitDelayMs {
		t.Errorf("SubmitDelayMs = %d, want default", got)
	}
	if got := cfg.Overlay.Suggestions; len(got) != 1 || got[0] != "Chart TSLA stock" {
		t.Errorf("Suggestions = %v", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad period", func(c *Config) { c.Market.DefaultPeriod = "fortnight" }, "market.default_period"},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme"},
		{"zero rate", func(c *Config) { c.Market.RatePerSec = 0 }, "market.rate_per_sec"},
		{"tiny sweep", func(c *Config) { c.Engine.SweepIntervalMs = 10 }, "engine.sweep_interval_ms"},
		{"huge timeout", func(c *Config) { c.Market.TimeoutSecs = 999 }, "market.timeout_secs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name field %s", err, tt.field)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARKETLENS_BASE_URL", "http://127.0.0.1:8080")
	t.Setenv("MARKETLENS_API_KEY", "secret-token")
	t.Setenv("MARKETLENS_NO_CACHE", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if got := cfg.Market.BaseURL; got != "http://127.0.0.1:8080" {
		t.Errorf("BaseURL = %q", got)
	}
	if got := cfg.Market.APIKey; got != "secret-token" {
		t.Errorf("APIKey = %q", got)
	}
	if cfg.Market.CacheEnabled {
		t.Error("CacheEnabled = true, want false")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.Market.DefaultPeriod = "5y"
	cfg.Overlay.Suggestions = []string{"one", "two"}

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != 0600 {
		t.Errorf("config file mode = %o, want 0600", got)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if got := loaded.Market.DefaultPeriod; got != "5y" {
		t.Errorf("DefaultPeriod = %q, want 5y", got)
	}
	if got := loaded.Overlay.Suggestions; len(got) != 2 {
		t.Errorf("Suggestions = %v", got)
	}
}

func TestStringRedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Market.APIKey = "sk-very-secret"

	out := cfg.String()
	if strings.Contains(out, "sk-very-secret") {
		t.Error("String() leaks API key")
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Error("String() missing redaction marker")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, 50*time.Millisecond, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	cfg := Default()
	cfg.Market.DefaultPeriod = "ytd"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-reloaded:
		if got.Market.DefaultPeriod != "ytd" {
			t.Errorf("reloaded period = %q, want ytd", got.Market.DefaultPeriod)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatcherSkipsInvalidEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	reloads := make(chan *Config, 4)
	w, err := NewWatcher(path, 50*time.Millisecond, func(c *Config) {
		reloads <- c
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("[ui]\ntheme = \"solarized\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-reloads:
		t.Errorf("invalid edit produced reload: %+v", got)
	case <-time.After(500 * time.Millisecond):
		// no reload, as intended
	}
}
