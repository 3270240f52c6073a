// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	"github.com/jeranaias/marketlens-tui/internal/host"
)

// Role labels who authored a transcript entry.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

// MessageNode is one transcript entry. It implements host.Node: the
// engine reads its text, stores markers on it, and attaches chart
// blocks under it. The TUI renders it from the bubbletea goroutine
// while the engine touches it from the run loop, so everything is
// mutex-guarded.
type MessageNode struct {
	mu      sync.Mutex
	role    Role
	text    string
	markers map[string]string
	blocks  []*host.Block
	alive   bool
}

func newMessageNode(role Role, text string) *MessageNode {
	return &MessageNode{
		role:    role,
		text:    text,
		markers: make(map[string]string),
		alive:   true,
	}
}

// Role returns who authored the message.
func (n *MessageNode) Role() Role { return n.role }

// Text implements host.Node.
func (n *MessageNode) Text() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.text
}

// Marker implements host.Node.
func (n *MessageNode) Marker(key string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.markers[key]
	return v, ok
}

// SetMarker implements host.Node.
func (n *MessageNode) SetMarker(key, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.markers[key] = value
}

// Attach implements host.Node.
func (n *MessageNode) Attach(b *host.Block) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.alive {
		return host.ErrNoTranscript
	}
	n.blocks = append(n.blocks, b)
	return nil
}

// Detach implements host.Node.
func (n *MessageNode) Detach(b *host.Block) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, cur := range n.blocks {
		if cur == b {
			n.blocks = append(n.blocks[:i], n.blocks[i+1:]...)
			return
		}
	}
}

// Alive implements host.Node.
func (n *MessageNode) Alive() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.alive
}

// Blocks returns the attached chart blocks for rendering.
func (n *MessageNode) Blocks() []*host.Block {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*host.Block, len(n.blocks))
	copy(out, n.blocks)
	return out
}

func (n *MessageNode) kill() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alive = false
	n.blocks = nil
}
