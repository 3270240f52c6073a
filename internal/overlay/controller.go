// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package overlay manages the dismissible suggestion overlay shown
// above the host's input: a singleton block of tappable example
// queries, hidden on the first sign of user activity and re-shown only
// when a new conversation starts.
package overlay

import (
	"log"
	"time"

	"github.com/jeranaias/marketlens-tui/internal/host"
	"github.com/jeranaias/marketlens-tui/internal/runloop"
)

// =============================================================================
// CONTROLLER
// =============================================================================

// phase is the overlay's visibility state.
type phase int

const (
	phaseHidden phase = iota
	phaseShown
)

// Sender dispatches a suggestion's text as if the user had typed and
// submitted it.
type Sender interface {
	Send(text string)
}

// DefaultSuggestions are the example queries offered when no custom
// set is configured.
var DefaultSuggestions = []string{
	"Show me a chart of AAPL stock",
	"What is the MSFT share price?",
	"Show the balance sheet for NVDA",
	"Income statement for GOOG",
}

// Controller owns the suggestion overlay. All methods run on the run
// loop; the engine posts host events into HandleEvent.
type Controller struct {
	loop    *runloop.Loop
	adapter host.Adapter
	sender  Sender

	entries    []string
	rearmDelay time.Duration

	state    phase
	block    *host.Block
	rearming bool
}

// NewController creates a hidden controller over the given suggestion
// entries. Empty entries fall back to DefaultSuggestions.
func NewController(loop *runloop.Loop, adapter host.Adapter, sender Sender, entries []string, rearmDelay time.Duration) *Controller {
	if len(entries) == 0 {
		entries = DefaultSuggestions
	}
	c := &Controller{
		loop:       loop,
		adapter:    adapter,
		sender:     sender,
		entries:    entries,
		rearmDelay: rearmDelay,
	}
	c.block = host.NewBlock(host.BlockOverlay)
	c.block.SetContent("Try asking")
	c.block.SetEntries(entries)
	c.block.SetActivateHandler(c.activate)
	return c
}

// Shown reports whether the overlay is currently visible.
func (c *Controller) Shown() bool { return c.state == phaseShown }

// Block exposes the overlay block for hosts and tests.
func (c *Controller) Block() *host.Block { return c.block }

// =============================================================================
// SHOW / HIDE
// =============================================================================

// Show inserts the overlay before the host's input. Showing while
// already shown is a no-op, so repeated triggers never stack blocks.
// A host without an anchor leaves the overlay hidden.
func (c *Controller) Show() {
	if c.state == phaseShown {
		return
	}
	if err := c.adapter.InsertBeforeInput(c.block); err != nil {
		log.Printf("overlay: insert: %v", err)
		return
	}
	c.state = phaseShown
}

// hide removes the overlay subtree from the host. Exactly-once: a
// second trigger finds the state already hidden and returns.
func (c *Controller) hide() {
	if c.state != phaseShown {
		return
	}
	c.state = phaseHidden
	c.adapter.RemoveBlock(c.block)
}

// =============================================================================
// EVENTS
// =============================================================================

// HandleEvent reacts to one host signal. Any user activity dismisses a
// shown overlay; a new-conversation click re-arms a hidden one.
func (c *Controller) HandleEvent(e host.Event) {
	switch e.Kind {
	case host.EventKeystroke, host.EventSubmit, host.EventMessageSent:
		c.hide()
	case host.EventControlClick:
		switch {
		case host.IsNewConversationLabel(e.Label):
			c.rearm()
		case host.IsSubmitLabel(e.Label):
			// A clicked send button is user activity like any other.
			c.hide()
		}
	}
}

// rearm schedules a re-show after the configured delay, giving the
// host time to finish resetting its transcript. Overlapping triggers
// collapse into one pending re-show.
func (c *Controller) rearm() {
	if c.state == phaseShown || c.rearming {
		return
	}
	c.rearming = true
	c.loop.PostDelayed(c.rearmDelay, func() {
		c.rearming = false
		c.Show()
	})
}

// =============================================================================
// ACTIVATION
// =============================================================================

// activate handles a suggestion tap from the host's render loop. The
// consume decision is returned synchronously; the hide-and-send unit
// runs on the run loop.
func (c *Controller) activate(entry string) bool {
	c.loop.Post(func() {
		c.hide()
		c.sender.Send(entry)
	})
	return true
}

// Dismiss hides a shown overlay on behalf of a programmatic send. The
// send's echoed host events are filtered as synthetic, so the engine
// calls this directly as part of the send unit. Loop context required.
func (c *Controller) Dismiss() {
	c.hide()
}

// Stop removes the overlay unconditionally.
func (c *Controller) Stop() {
	c.hide()
}
