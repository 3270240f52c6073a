// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for marketlens.
//
// TOML configuration with sensible defaults, environment variable
// overrides, validation, and live reload on file change.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - EngineConfig: Transcript observation timing
//   - MarketConfig: Data provider, throttle, and cache settings
//   - Watcher: Reloads the config when the file changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (MARKETLENS_*)
//   - ~/.marketlens/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	period := cfg.Market.DefaultPeriod
//	sweep := cfg.Engine.SweepIntervalMs
package config
