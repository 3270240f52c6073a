// marketlens TUI - a chat interface with inline market charts.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/marketlens-tui/internal/config"
	"github.com/jeranaias/marketlens-tui/internal/engine"
	"github.com/jeranaias/marketlens-tui/internal/marketdata"
	"github.com/jeranaias/marketlens-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "version", "--version", "-v":
			fmt.Printf("marketlens %s (%s)\n", Version, GitCommit)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		case "purge-cache":
			runPurgeCache()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown argument: %s\n\n", arg)
			printUsage()
			os.Exit(1)
		}
	}
	runTUI()
}

func printUsage() {
	fmt.Println("marketlens - chat TUI with inline stock and statement charts")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  marketlens              Launch the chat interface")
	fmt.Println("  marketlens purge-cache  Empty the series cache")
	fmt.Println("  marketlens version      Print version information")
	fmt.Println()
	fmt.Println("Configuration lives at ~/.marketlens/config.toml and")
	fmt.Println("reloads automatically while the app is running.")
	fmt.Println("Set MARKETLENS_DEBUG=1 to log to marketlens-debug.log.")
}

// runPurgeCache empties the series cache used by the chart-data
// client.
func runPurgeCache() {
	cfg, err := config.Load()
	if err != nil && cfg == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cachePath := cfg.Market.CachePath
	if cachePath == "" {
		if cachePath, err = config.DefaultCachePath(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if _, err := os.Stat(cachePath); err != nil {
		fmt.Println("No series cache to purge.")
		return
	}

	cache, err := marketdata.OpenCache(cachePath, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		os.Exit(1)
	}
	defer cache.Close()

	if err := cache.Purge(); err != nil {
		fmt.Fprintf(os.Stderr, "Error purging cache: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Purged series cache at %s\n", cachePath)
}

func runTUI() {
	// log.Printf output would tear the alt screen, so it goes to a
	// file when debugging and nowhere otherwise.
	if os.Getenv("MARKETLENS_DEBUG") != "" {
		f, err := tea.LogToFile("marketlens-debug.log", "marketlens")
		if err == nil {
			defer f.Close()
		}
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.Load()
	if err != nil {
		// A broken config file still yields usable defaults; only a
		// validation failure is fatal.
		if cfg == nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	// First run: materialize the defaults so users have a file to edit.
	if path, pathErr := config.ConfigPath(); pathErr == nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			if dirErr := config.EnsureConfigDir(); dirErr != nil {
				log.Printf("main: create config dir: %v", dirErr)
			} else if saveErr := config.Save(cfg); saveErr != nil {
				log.Printf("main: write default config: %v", saveErr)
			}
		}
	}

	client := marketdata.NewClient().
		WithBaseURL(cfg.Market.BaseURL).
		WithAPIKey(cfg.Market.APIKey).
		WithTimeout(time.Duration(cfg.Market.TimeoutSecs) * time.Second).
		WithThrottler(marketdata.NewThrottler(map[string]float64{
			"chartdata": cfg.Market.RatePerSec,
		}))

	if cfg.Market.CacheEnabled {
		cachePath := cfg.Market.CachePath
		var pathErr error
		if cachePath == "" {
			cachePath, pathErr = config.DefaultCachePath()
		}
		if pathErr == nil {
			ttl := time.Duration(cfg.Market.CacheTTLMinutes) * time.Minute
			cache, cacheErr := marketdata.OpenCache(cachePath, ttl)
			if cacheErr != nil {
				log.Printf("main: series cache unavailable: %v", cacheErr)
			} else {
				defer cache.Close()
				client.WithCache(cache)
			}
		}
	}

	// Engine tuning applies on restart; a live reload would swap
	// timers under in-flight work.
	if path, pathErr := config.ConfigPath(); pathErr == nil {
		watcher, watchErr := config.NewWatcher(path, 500*time.Millisecond, func(_ *config.Config) {
			log.Printf("main: config reloaded, engine settings apply on restart")
		})
		if watchErr == nil {
			if watchErr = watcher.Watch(); watchErr != nil {
				log.Printf("main: config watch unavailable: %v", watchErr)
				watcher.Close()
			} else {
				defer watcher.Close()
			}
		}
	}

	h := chat.NewHost()
	eng := engine.New(cfg, h, client)

	p := tea.NewProgram(
		chat.New(h),
		tea.WithAltScreen(),
	)
	h.SetProgram(p)

	eng.Start()
	_, runErr := p.Run()
	eng.Stop()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running marketlens: %v\n", runErr)
		os.Exit(1)
	}
}
