// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package send

import (
	"testing"
	"time"

	"github.com/jeranaias/marketlens-tui/internal/host/hosttest"
	"github.com/jeranaias/marketlens-tui/internal/runloop"
)

func fastDelays() Delays {
	return Delays{
		FindInput: 5 * time.Millisecond,
		Submit:    5 * time.Millisecond,
		ClearFlag: 10 * time.Millisecond,
	}
}

func newSender(t *testing.T) (*Sender, *runloop.Flag, *runloop.Loop, *hosttest.Host) {
	t.Helper()
	loop := runloop.New()
	loop.Start()
	t.Cleanup(loop.Close)

	h := hosttest.New()
	flag := &runloop.Flag{}
	return New(loop, h, flag, fastDelays()), flag, loop, h
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestSendTypesAndSubmits(t *testing.T) {
	s, flag, _, h := newSender(t)

	s.Send("What is the AAPL share price?")

	if !flag.Get() {
		t.Error("flag not raised at send start")
	}
	waitFor(t, func() bool { return h.TheSubmit().Activations() == 1 })

	if got := h.TheInput().Value(); got != "What is the AAPL share price?" {
		t.Errorf("input value = %q", got)
	}
	if got := h.TheInput().ChangeCount(); got != 1 {
		t.Errorf("change notifications = %d, want 1", got)
	}
	if h.TheInput().Focused() {
		t.Error("send must not steal focus")
	}
	waitFor(t, func() bool { return !flag.Get() })
}

func TestMissingInputAbortsAndClearsFlag(t *testing.T) {
	s, flag, _, h := newSender(t)
	h.DropInput()

	s.Send("hello")

	waitFor(t, func() bool { return !flag.Get() })
	if got := h.TheSubmit().Activations(); got != 0 {
		t.Errorf("activations = %d, want 0 after abort", got)
	}
}

func TestMissingSubmitFallsBackToRequestSubmit(t *testing.T) {
	s, flag, _, h := newSender(t)
	h.DropSubmit()

	s.Send("hello")

	waitFor(t, func() bool { return h.SubmitRequests() == 1 })
	waitFor(t, func() bool { return !flag.Get() })
}

func TestFailedActivationFallsBack(t *testing.T) {
	s, _, _, h := newSender(t)
	h.TheSubmit().Result = false

	s.Send("hello")

	waitFor(t, func() bool { return h.SubmitRequests() == 1 })
	if got := h.TheSubmit().Activations(); got != 1 {
		t.Errorf("activations = %d, want 1 (attempted before fallback)", got)
	}
}

func TestFlagOutlivesSubmitThenClears(t *testing.T) {
	loop := runloop.New()
	loop.Start()
	t.Cleanup(loop.Close)

	h := hosttest.New()
	flag := &runloop.Flag{}
	s := New(loop, h, flag, Delays{
		FindInput: 5 * time.Millisecond,
		Submit:    5 * time.Millisecond,
		ClearFlag: 250 * time.Millisecond,
	})

	s.Send("hello")
	waitFor(t, func() bool { return h.TheSubmit().Activations() == 1 })

	// Flag covers the host's own message-sent signal window.
	if !flag.Get() {
		t.Error("flag cleared before ClearFlag delay")
	}
	waitFor(t, func() bool { return !flag.Get() })
}
