// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package send dispatches text through the host's own input path, as
// if the user had typed and submitted it. The staged delays let the
// host's change detection observe each step; the synthetic-interaction
// flag tells the rest of the engine that the activity it is about to
// see was machine-made.
package send

import (
	"log"
	"time"

	"github.com/jeranaias/marketlens-tui/internal/host"
	"github.com/jeranaias/marketlens-tui/internal/runloop"
)

// =============================================================================
// DELAYS
// =============================================================================

// Delays stage the send sequence.
type Delays struct {
	// FindInput separates flag-set from the input lookup.
	FindInput time.Duration

	// Submit separates value injection from submit activation.
	Submit time.Duration

	// ClearFlag bounds how long the synthetic flag stays raised after
	// submit, covering the host's own message-sent signal.
	ClearFlag time.Duration
}

// DefaultDelays returns the standard send staging.
func DefaultDelays() Delays {
	return Delays{
		FindInput: 50 * time.Millisecond,
		Submit:    120 * time.Millisecond,
		ClearFlag: 300 * time.Millisecond,
	}
}

// =============================================================================
// SENDER
// =============================================================================

// Sender performs programmatic sends. Controls are re-queried at each
// stage rather than held across delays; the host may re-render between
// them.
type Sender struct {
	loop    *runloop.Loop
	adapter host.Adapter
	flag    *runloop.Flag
	delays  Delays
}

// New creates a Sender raising flag around each send.
func New(loop *runloop.Loop, adapter host.Adapter, flag *runloop.Flag, delays Delays) *Sender {
	if delays.FindInput <= 0 {
		delays.FindInput = DefaultDelays().FindInput
	}
	if delays.Submit <= 0 {
		delays.Submit = DefaultDelays().Submit
	}
	if delays.ClearFlag <= 0 {
		delays.ClearFlag = DefaultDelays().ClearFlag
	}
	return &Sender{loop: loop, adapter: adapter, flag: flag, delays: delays}
}

// Send types text into the host's input and submits it. The flag is
// raised for the whole sequence and cleared on every exit path, so an
// aborted send never leaves the engine believing a synthetic
// interaction is still in flight.
func (s *Sender) Send(text string) {
	s.flag.Set()

	s.loop.PostDelayed(s.delays.FindInput, func() {
		input, ok := s.adapter.InputControl()
		if !ok {
			log.Printf("send: no input control, aborting")
			s.flag.Clear()
			return
		}

		// Value flows through the host's change path; focus is left
		// wherever the user had it.
		input.SetValue(text)
		input.NotifyChanged()

		s.loop.PostDelayed(s.delays.Submit, func() {
			s.submit()
			s.loop.PostDelayed(s.delays.ClearFlag, s.flag.Clear)
		})
	})
}

// submit activates the host's send control, falling back to a form
// submit request when no control exists or activation fails.
func (s *Sender) submit() {
	if control, ok := s.adapter.SubmitControl(); ok {
		if control.Activate() {
			return
		}
	}
	if !s.adapter.RequestSubmit() {
		log.Printf("send: host has no submit path")
	}
}
