// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package hosttest provides a scriptable in-memory host for engine
// tests. It implements host.Adapter with synchronous mutation
// notifications and full inspection of injected blocks, so tests can
// script host behavior (messages appearing, nodes dying, inputs going
// missing) without a real UI.
package hosttest

import (
	"sync"

	"github.com/jeranaias/marketlens-tui/internal/host"
)

// =============================================================================
// FAKE HOST
// =============================================================================

// Host is an in-memory host.Adapter.
type Host struct {
	mu sync.Mutex

	nodes    []*Node
	input    *Input
	submit   *Control
	overlays []*host.Block

	subscribers map[int]func()
	nextSubID   int

	// NoTranscript makes SubscribeMutations fail, simulating a host
	// whose message container never appears.
	NoTranscript bool

	// NoAnchor makes InsertBeforeInput fail.
	NoAnchor bool

	events         chan host.Event
	submitRequests int
}

// New creates a fake host with an input and a submit control present.
func New() *Host {
	return &Host{
		input:       &Input{},
		submit:      &Control{Result: true},
		subscribers: make(map[int]func()),
		events:      make(chan host.Event, 64),
	}
}

// =============================================================================
// SCRIPTING SURFACE (test side)
// =============================================================================

// AddMessage appends a message node and fires mutation subscribers.
func (h *Host) AddMessage(text string) *Node {
	h.mu.Lock()
	n := &Node{text: text, markers: make(map[string]string), alive: true}
	h.nodes = append(h.nodes, n)
	h.mu.Unlock()
	h.notify()
	return n
}

// RemoveMessage marks a node dead and drops it from the transcript,
// then fires mutation subscribers.
func (h *Host) RemoveMessage(n *Node) {
	h.mu.Lock()
	n.mu.Lock()
	n.alive = false
	n.mu.Unlock()
	for i, cur := range h.nodes {
		if cur == n {
			h.nodes = append(h.nodes[:i], h.nodes[i+1:]...)
			break
		}
	}
	h.mu.Unlock()
	h.notify()
}

// ReplaceMessage simulates a host re-render that strips markers: the
// old node dies and a fresh node with the same text appears.
func (h *Host) ReplaceMessage(n *Node) *Node {
	text := n.Text()
	h.RemoveMessage(n)
	return h.AddMessage(text)
}

// DropInput simulates the input control disappearing.
func (h *Host) DropInput() {
	h.mu.Lock()
	h.input = nil
	h.mu.Unlock()
}

// DropSubmit simulates the send control disappearing.
func (h *Host) DropSubmit() {
	h.mu.Lock()
	h.submit = nil
	h.mu.Unlock()
}

// Emit delivers a host event to the engine.
func (h *Host) Emit(e host.Event) {
	h.events <- e
}

// Overlays returns the currently inserted overlay blocks.
func (h *Host) Overlays() []*host.Block {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*host.Block, len(h.overlays))
	copy(out, h.overlays)
	return out
}

// SubmitRequests returns how many times RequestSubmit was called.
func (h *Host) SubmitRequests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.submitRequests
}

// TheInput returns the fake input for inspection.
func (h *Host) TheInput() *Input { return h.input }

// TheSubmit returns the fake submit control for inspection.
func (h *Host) TheSubmit() *Control { return h.submit }

// notify runs all mutation subscribers synchronously.
func (h *Host) notify() {
	h.mu.Lock()
	subs := make([]func(), 0, len(h.subscribers))
	for _, fn := range h.subscribers {
		subs = append(subs, fn)
	}
	h.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// =============================================================================
// host.Adapter IMPLEMENTATION
// =============================================================================

// MessageNodes returns live nodes in transcript order.
func (h *Host) MessageNodes() []host.Node {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]host.Node, len(h.nodes))
	for i, n := range h.nodes {
		out[i] = n
	}
	return out
}

// InputControl returns the fake input if present.
func (h *Host) InputControl() (host.Input, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.input == nil {
		return nil, false
	}
	return h.input, true
}

// SubmitControl returns the fake send control if present.
func (h *Host) SubmitControl() (host.Control, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.submit == nil {
		return nil, false
	}
	return h.submit, true
}

// SubscribeMutations registers a synchronous subscriber.
func (h *Host) SubscribeMutations(fn func()) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.NoTranscript {
		return nil, host.ErrNoTranscript
	}
	id := h.nextSubID
	h.nextSubID++
	h.subscribers[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
	}, nil
}

// InsertBeforeInput records an overlay insertion.
func (h *Host) InsertBeforeInput(b *host.Block) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.NoAnchor {
		return host.ErrNoAnchor
	}
	h.overlays = append(h.overlays, b)
	return nil
}

// RemoveBlock removes b from overlays and from every node.
func (h *Host) RemoveBlock(b *host.Block) {
	h.mu.Lock()
	for i, cur := range h.overlays {
		if cur == b {
			h.overlays = append(h.overlays[:i], h.overlays[i+1:]...)
			break
		}
	}
	nodes := append([]*Node(nil), h.nodes...)
	h.mu.Unlock()
	for _, n := range nodes {
		n.Detach(b)
	}
}

// RequestSubmit counts fallback submit requests.
func (h *Host) RequestSubmit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.submitRequests++
	return true
}

// Events returns the host event channel.
func (h *Host) Events() <-chan host.Event {
	return h.events
}

// =============================================================================
// FAKE NODE
// =============================================================================

// Node is an in-memory message node.
type Node struct {
	mu      sync.Mutex
	text    string
	markers map[string]string
	blocks  []*host.Block
	alive   bool
}

// Text returns the message text.
func (n *Node) Text() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.text
}

// Marker returns an engine-written annotation.
func (n *Node) Marker(key string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.markers[key]
	return v, ok
}

// SetMarker writes an engine annotation.
func (n *Node) SetMarker(key, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.markers[key] = value
}

// Attach appends b as the node's last child block.
func (n *Node) Attach(b *host.Block) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.alive {
		return host.ErrNoTranscript
	}
	n.blocks = append(n.blocks, b)
	return nil
}

// Detach removes b if attached.
func (n *Node) Detach(b *host.Block) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, cur := range n.blocks {
		if cur == b {
			n.blocks = append(n.blocks[:i], n.blocks[i+1:]...)
			return
		}
	}
}

// Alive reports whether the node still exists in the host.
func (n *Node) Alive() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.alive
}

// Blocks returns the currently attached blocks for inspection.
func (n *Node) Blocks() []*host.Block {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*host.Block, len(n.blocks))
	copy(out, n.blocks)
	return out
}

// =============================================================================
// FAKE CONTROLS
// =============================================================================

// Input is an in-memory text input.
type Input struct {
	mu          sync.Mutex
	value       string
	changeCount int
	focused     bool
}

// SetValue records the value as if set through the host change path.
func (i *Input) SetValue(text string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.value = text
}

// NotifyChanged counts emitted change notifications.
func (i *Input) NotifyChanged() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.changeCount++
}

// Focused reports the scripted focus state.
func (i *Input) Focused() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.focused
}

// Value returns the current value for inspection.
func (i *Input) Value() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.value
}

// ChangeCount returns how many change notifications were emitted.
func (i *Input) ChangeCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.changeCount
}

// Control is an in-memory activatable control.
type Control struct {
	mu          sync.Mutex
	Result      bool
	activations int
}

// Activate records an activation and returns the scripted result.
func (c *Control) Activate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activations++
	return c.Result
}

// Activations returns how many times the control was activated.
func (c *Control) Activations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activations
}
