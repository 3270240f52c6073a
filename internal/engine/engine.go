// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine assembles the augmentation pipeline: one run loop,
// the transcript observer, the visualization manager, the suggestion
// overlay, and the programmatic sender, wired over a host adapter.
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/marketlens-tui/internal/config"
	"github.com/jeranaias/marketlens-tui/internal/host"
	"github.com/jeranaias/marketlens-tui/internal/marketdata"
	"github.com/jeranaias/marketlens-tui/internal/observe"
	"github.com/jeranaias/marketlens-tui/internal/overlay"
	"github.com/jeranaias/marketlens-tui/internal/runloop"
	"github.com/jeranaias/marketlens-tui/internal/send"
	"github.com/jeranaias/marketlens-tui/internal/viz"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine owns the run loop and every component on it. Construct with
// New, call Start once, Stop once; both are idempotent.
type Engine struct {
	loop *runloop.Loop
	flag *runloop.Flag

	adapter  host.Adapter
	observer *observe.Observer
	viz      *viz.Manager
	overlay  *overlay.Controller
	sender   *send.Sender

	overlayEnabled bool

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	quit      chan struct{}
	pumpDone  chan struct{}
}

// New wires an engine over adapter using cfg and a ready market data
// client.
func New(cfg *config.Config, adapter host.Adapter, client *marketdata.Client) *Engine {
	loop := runloop.New()
	flag := &runloop.Flag{}

	vm := viz.NewManager(loop, adapter, client,
		marketdata.Period(cfg.Market.DefaultPeriod)).
		WithExportDir(cfg.UI.ExportDir)

	observer := observe.New(loop, adapter, vm, observe.Options{
		SettleDelay:      msecs(cfg.Engine.SettleDelayMs),
		SweepInterval:    msecs(cfg.Engine.SweepIntervalMs),
		DiscoveryRetries: cfg.Engine.DiscoveryRetries,
		DiscoveryDelay:   msecs(cfg.Engine.DiscoveryDelayMs),
	})

	sender := send.New(loop, adapter, flag, send.Delays{
		FindInput: msecs(cfg.Send.FindInputDelayMs),
		Submit:    msecs(cfg.Send.SubmitDelayMs),
		ClearFlag: msecs(cfg.Send.ClearFlagDelayMs),
	})

	ctrl := overlay.NewController(loop, adapter, sender,
		cfg.Overlay.Suggestions, msecs(cfg.Overlay.RearmDelayMs))

	return &Engine{
		loop:           loop,
		flag:           flag,
		adapter:        adapter,
		observer:       observer,
		viz:            vm,
		overlay:        ctrl,
		sender:         sender,
		overlayEnabled: cfg.Overlay.Enabled,
		quit:           make(chan struct{}),
		pumpDone:       make(chan struct{}),
	}
}

// Loop exposes the run loop for hosts that need to post work onto the
// engine's thread.
func (e *Engine) Loop() *runloop.Loop { return e.loop }

// Send dispatches text through the host input as a programmatic send.
// The send counts as user-visible activity even though the flag
// suppresses its echoed events, so the overlay is dismissed first.
func (e *Engine) Send(text string) {
	e.loop.Post(func() {
		e.overlay.Dismiss()
		e.sender.Send(text)
	})
}

// Start brings the engine up: run loop, event pump, observer, and the
// initial overlay.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.started.Store(true)
		e.loop.Start()
		go e.pump()
		e.observer.Start()
		if e.overlayEnabled {
			e.loop.Post(e.overlay.Show)
		}
	})
}

// Stop tears the engine down exactly once: producers first, then the
// injected UI, then the loop. Fetches still in flight resolve into a
// closed loop and are dropped.
func (e *Engine) Stop() {
	if !e.started.Load() {
		return
	}
	e.stopOnce.Do(func() {
		close(e.quit)
		e.observer.Stop()
		e.loop.Post(e.overlay.Stop)
		e.loop.Sync(func() {}) // drain teardown work
		e.loop.Close()
		<-e.pumpDone
	})
}

// pump forwards host events onto the run loop. Synthetic activity from
// the sender is filtered out here: the overlay must only react to the
// user's own keystrokes and submits.
func (e *Engine) pump() {
	defer close(e.pumpDone)
	events := e.adapter.Events()
	for {
		select {
		case <-e.quit:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if e.synthetic(ev) {
				continue
			}
			if !e.loop.Post(func() { e.overlay.HandleEvent(ev) }) {
				return
			}
		}
	}
}

// synthetic reports whether ev was produced by a programmatic send.
func (e *Engine) synthetic(ev host.Event) bool {
	switch ev.Kind {
	case host.EventKeystroke, host.EventSubmit, host.EventMessageSent:
		return e.flag.Get()
	}
	return false
}

func msecs(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
