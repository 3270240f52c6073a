// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package observe watches the host transcript for new messages. Two
// producers feed it: mutation notifications from the host and a
// periodic sweep that catches anything notifications miss. Both funnel
// into one idempotent scan keyed by per-node markers, so a message is
// classified at most once no matter how many times it is seen.
package observe

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/marketlens-tui/internal/classify"
	"github.com/jeranaias/marketlens-tui/internal/host"
	"github.com/jeranaias/marketlens-tui/internal/runloop"
	"github.com/jeranaias/marketlens-tui/internal/viz"
)

// =============================================================================
// MARKERS
// =============================================================================

const (
	// markerProcessed is set on every scanned node, classified or not.
	markerProcessed = "marketlens-processed"

	// markerID carries the engine-assigned message identity. It lives on
	// the host node: if the host replaces the node, the identity is lost
	// and the message is seen as new again.
	markerID = "marketlens-id"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options tune the observer's timing.
type Options struct {
	// SettleDelay postpones the first attach so a host that is still
	// rendering its initial transcript is not scanned mid-build.
	SettleDelay time.Duration

	// SweepInterval is the period of the fallback rescan.
	SweepInterval time.Duration

	// DiscoveryRetries bounds attempts to find the transcript before the
	// observer gives up on mutation notifications. The sweep still runs;
	// the engine fails open, not closed.
	DiscoveryRetries int

	// DiscoveryDelay separates transcript discovery attempts.
	DiscoveryDelay time.Duration
}

// DefaultOptions returns the standard observer timing.
func DefaultOptions() Options {
	return Options{
		SettleDelay:      500 * time.Millisecond,
		SweepInterval:    2 * time.Second,
		DiscoveryRetries: 5,
		DiscoveryDelay:   300 * time.Millisecond,
	}
}

// =============================================================================
// OBSERVER
// =============================================================================

// Observer drives the transcript scan. All state is owned by the run
// loop; Start and Stop post onto it.
type Observer struct {
	loop    *runloop.Loop
	adapter host.Adapter
	viz     *viz.Manager
	opts    Options

	running     bool
	cancelMut   func()
	sweepTimer  *time.Timer
	settleTimer *time.Timer
}

// New creates an Observer over the given host.
func New(loop *runloop.Loop, adapter host.Adapter, vm *viz.Manager, opts Options) *Observer {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultOptions().SettleDelay
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultOptions().SweepInterval
	}
	if opts.DiscoveryRetries <= 0 {
		opts.DiscoveryRetries = DefaultOptions().DiscoveryRetries
	}
	if opts.DiscoveryDelay <= 0 {
		opts.DiscoveryDelay = DefaultOptions().DiscoveryDelay
	}
	return &Observer{loop: loop, adapter: adapter, viz: vm, opts: opts}
}

// Start arms the observer. The first scan waits out the settle delay;
// starting twice is a no-op.
func (o *Observer) Start() {
	o.loop.Post(func() {
		if o.running {
			return
		}
		o.running = true
		o.settleTimer = o.loop.PostDelayed(o.opts.SettleDelay, func() {
			if !o.running {
				return
			}
			o.attach(o.opts.DiscoveryRetries)
			o.scan()
			o.scheduleSweep()
		})
	})
}

// Stop tears the observer down: both producers are cancelled before
// any visualization is destroyed, so nothing re-mounts mid-teardown.
// Stopping twice is a no-op.
func (o *Observer) Stop() {
	o.loop.Post(func() {
		if !o.running {
			return
		}
		o.running = false
		if o.settleTimer != nil {
			o.settleTimer.Stop()
		}
		if o.sweepTimer != nil {
			o.sweepTimer.Stop()
		}
		if o.cancelMut != nil {
			o.cancelMut()
			o.cancelMut = nil
		}
		o.viz.DestroyAll()
	})
}

// =============================================================================
// PRODUCERS
// =============================================================================

// attach subscribes to host mutation notifications, retrying while the
// transcript container does not exist yet.
func (o *Observer) attach(retriesLeft int) {
	if !o.running {
		return
	}
	cancel, err := o.adapter.SubscribeMutations(func() {
		o.loop.Post(o.scan)
	})
	if err == nil {
		o.cancelMut = cancel
		return
	}
	if retriesLeft <= 1 {
		log.Printf("observe: transcript not found after %d attempts, relying on sweep: %v",
			o.opts.DiscoveryRetries, err)
		return
	}
	o.loop.PostDelayed(o.opts.DiscoveryDelay, func() {
		o.attach(retriesLeft - 1)
	})
}

// scheduleSweep arms the next periodic rescan. The chain re-arms
// itself until Stop flips running.
func (o *Observer) scheduleSweep() {
	o.sweepTimer = o.loop.PostDelayed(o.opts.SweepInterval, func() {
		if !o.running {
			return
		}
		o.scan()
		o.scheduleSweep()
	})
}

// =============================================================================
// SCAN
// =============================================================================

// scan walks the transcript once. Every unvisited node is marked
// processed exactly as it is examined, so overlapping scans from the
// two producers cannot double-classify.
func (o *Observer) scan() {
	if !o.running {
		return
	}
	o.viz.PruneDead()
	for _, node := range o.adapter.MessageNodes() {
		if !node.Alive() {
			continue
		}
		if _, done := node.Marker(markerProcessed); done {
			continue
		}
		node.SetMarker(markerProcessed, "1")

		id, ok := node.Marker(markerID)
		if !ok {
			id = uuid.NewString()
			node.SetMarker(markerID, id)
		}

		query, ok := classify.Classify(node.Text())
		if !ok {
			continue
		}
		o.viz.RequestMount(node, id, query)
	}
}
