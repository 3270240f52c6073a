// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/marketlens-tui/internal/host"
)

// =============================================================================
// HOST ADAPTER
// =============================================================================

// Host adapts the chat TUI to the engine's host.Adapter contract. The
// TUI owns the transcript and input; the engine only sees this
// adapter.
type Host struct {
	mu sync.Mutex

	nodes   []*MessageNode
	overlay *host.Block

	subscribers map[int]func()
	nextSubID   int

	input  *inputAdapter
	submit *submitAdapter
	events chan host.Event

	program *tea.Program
}

// NewHost creates the adapter. SetProgram must be called before the
// engine starts.
func NewHost() *Host {
	h := &Host{
		subscribers: make(map[int]func()),
		events:      make(chan host.Event, 64),
	}
	h.input = &inputAdapter{h: h}
	h.submit = &submitAdapter{h: h}
	return h
}

// SetProgram binds the running bubbletea program so the adapter can
// push UI refreshes and input updates.
func (h *Host) SetProgram(p *tea.Program) {
	h.mu.Lock()
	h.program = p
	h.mu.Unlock()
}

// send pushes a message into the TUI event loop.
func (h *Host) send(msg tea.Msg) {
	h.mu.Lock()
	p := h.program
	h.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// emit delivers a host event to the engine, dropping when the engine
// is not draining.
func (h *Host) emit(e host.Event) {
	select {
	case h.events <- e:
	default:
	}
}

// =============================================================================
// TRANSCRIPT (TUI side)
// =============================================================================

// addMessage appends a transcript entry and fires mutation
// subscribers.
func (h *Host) addMessage(role Role, text string) *MessageNode {
	n := newMessageNode(role, text)
	h.mu.Lock()
	h.nodes = append(h.nodes, n)
	subs := snapshotSubs(h.subscribers)
	h.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	h.send(refreshMsg{})
	return n
}

// clearTranscript removes every message, killing the backing nodes so
// stale engine references see dead elements.
func (h *Host) clearTranscript() {
	h.mu.Lock()
	old := h.nodes
	h.nodes = nil
	subs := snapshotSubs(h.subscribers)
	h.mu.Unlock()

	for _, n := range old {
		n.kill()
	}
	for _, fn := range subs {
		fn()
	}
	h.send(refreshMsg{})
}

// messages returns the current transcript for rendering.
func (h *Host) messages() []*MessageNode {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*MessageNode, len(h.nodes))
	copy(out, h.nodes)
	return out
}

// overlayBlock returns the injected suggestion overlay, if shown.
func (h *Host) overlayBlock() *host.Block {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overlay
}

// lastChartBlock returns the most recently attached chart block; chart
// keys operate on it.
func (h *Host) lastChartBlock() *host.Block {
	msgs := h.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		blocks := msgs[i].Blocks()
		if len(blocks) > 0 {
			return blocks[len(blocks)-1]
		}
	}
	return nil
}

func snapshotSubs(m map[int]func()) []func() {
	out := make([]func(), 0, len(m))
	for _, fn := range m {
		out = append(out, fn)
	}
	return out
}

// =============================================================================
// host.Adapter IMPLEMENTATION (engine side)
// =============================================================================

// MessageNodes implements host.Adapter.
func (h *Host) MessageNodes() []host.Node {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]host.Node, len(h.nodes))
	for i, n := range h.nodes {
		out[i] = n
	}
	return out
}

// InputControl implements host.Adapter. The TUI exposes a single text
// field, but selection still runs through the shared priority matcher
// so this host ranks inputs the same way richer hosts do.
func (h *Host) InputControl() (host.Input, bool) {
	return host.PickInput([]host.InputCandidate{
		{Class: host.InputSingleLine, Input: h.input},
	})
}

// SubmitControl implements host.Adapter.
func (h *Host) SubmitControl() (host.Control, bool) {
	return h.submit, true
}

// SubscribeMutations implements host.Adapter.
func (h *Host) SubscribeMutations(fn func()) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSubID
	h.nextSubID++
	h.subscribers[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
	}, nil
}

// InsertBeforeInput implements host.Adapter. The overlay renders
// directly above the input box.
func (h *Host) InsertBeforeInput(b *host.Block) error {
	h.mu.Lock()
	h.overlay = b
	h.mu.Unlock()
	h.send(refreshMsg{})
	return nil
}

// RemoveBlock implements host.Adapter.
func (h *Host) RemoveBlock(b *host.Block) {
	h.mu.Lock()
	if h.overlay == b {
		h.overlay = nil
	}
	nodes := make([]*MessageNode, len(h.nodes))
	copy(nodes, h.nodes)
	h.mu.Unlock()

	for _, n := range nodes {
		n.Detach(b)
	}
	h.send(refreshMsg{})
}

// RequestSubmit implements host.Adapter.
func (h *Host) RequestSubmit() bool {
	h.send(submitMsg{})
	return true
}

// Events implements host.Adapter.
func (h *Host) Events() <-chan host.Event {
	return h.events
}

// =============================================================================
// INPUT / SUBMIT ADAPTERS
// =============================================================================

// inputAdapter mirrors the text input for the engine. SetValue flows
// through the TUI event loop so the widget and the adapter never
// diverge.
type inputAdapter struct {
	h *Host

	mu      sync.Mutex
	value   string
	focused bool
}

// SetValue implements host.Input.
func (i *inputAdapter) SetValue(text string) {
	i.mu.Lock()
	i.value = text
	i.mu.Unlock()
	i.h.send(setInputMsg{text: text})
}

// NotifyChanged implements host.Input.
func (i *inputAdapter) NotifyChanged() {
	i.h.send(refreshMsg{})
}

// Focused implements host.Input.
func (i *inputAdapter) Focused() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.focused
}

// sync mirrors the widget state after the TUI processes input.
func (i *inputAdapter) sync(value string, focused bool) {
	i.mu.Lock()
	i.value = value
	i.focused = focused
	i.mu.Unlock()
}

// submitAdapter is the engine's view of the send action.
type submitAdapter struct {
	h *Host
}

// Activate implements host.Control.
func (s *submitAdapter) Activate() bool {
	s.h.send(submitMsg{})
	return true
}
